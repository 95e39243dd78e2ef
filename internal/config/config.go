package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends accepted in STORAGE_BACKEND
const (
	BackendJSON       = "json"
	BackendClickHouse = "clickhouse"
	BackendMock       = "mock"
)

// Config holds the application configuration
type Config struct {
	BotToken        string `env:"BOT_TOKEN"`
	ChannelID       int64  `env:"CHANNEL_ID"`
	ModerationGroup int64  `env:"MODERATION_GROUP"`
	CardNumber      string `env:"CARD_NUMBER"`
	BotLink         string `env:"BOT_LINK"`

	// Promo footer appended to every published post
	FooterChannelLink  string `env:"FOOTER_CHANNEL_LINK,default=https://t.me/sutnistua"`
	FooterChannelTitle string `env:"FOOTER_CHANNEL_TITLE,default=@sutnistua"`
	FooterChannelName  string `env:"FOOTER_CHANNEL_NAME,default=Сутність UA ONLINE"`

	PriceInfo   int    `env:"PRICE_INFO,default=25"`
	PriceDelete int    `env:"PRICE_DELETE,default=50"`
	Currency    string `env:"CURRENCY,default=грн"`
	Timezone    string `env:"TIMEZONE,default=Europe/Kyiv"`

	AlbumQuietPeriod time.Duration `env:"ALBUM_QUIET_PERIOD,default=1s"`
	RestartDelay     time.Duration `env:"RESTART_DELAY,default=5s"`

	PostsFile      string `env:"POSTS_FILE,default=posts.json"`
	ModeratorsFile string `env:"MODERATORS_FILE,default=moderators.json"`
	AuditLogFile   string `env:"AUDIT_LOG_FILE,default=logs.csv"`
	StorageBackend string `env:"STORAGE_BACKEND,default=json"`

	// Bot mode configuration
	WebhookMode bool   `env:"WEBHOOK_MODE,default=false"`
	WebhookURL  string `env:"WEBHOOK_URL"`
	Port        string `env:"PORT,default=8080"`

	// AdminToken enables the operator API when set
	AdminToken string `env:"ADMIN_TOKEN"`
	Debug      bool   `env:"DEBUG,default=false"`

	ClickHouse ClickHouse `env:",prefix=CLICKHOUSE_"`
}

// ClickHouse holds the connection settings of the ClickHouse backend
type ClickHouse struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=9000"`
	Database string `env:"DATABASE,default=default"`
	User     string `env:"USER,default=default"`
	Password string `env:"PASSWORD"`
	UseTLS   bool   `env:"USE_TLS,default=false"`
}

// LoadFromEnv loads and validates configuration from environment variables
func LoadFromEnv() (*Config, error) {
	return Load(context.Background(), envconfig.OsLookuper())
}

// Load fills the configuration from the given lookuper and validates it
func Load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClickHouseFromEnv loads only the ClickHouse settings, for tools that do not run the bot
func LoadClickHouseFromEnv() (*ClickHouse, error) {
	ch := &ClickHouse{}
	if err := envconfig.ProcessWith(context.Background(), ch, envconfig.PrefixLookuper("CLICKHOUSE_", envconfig.OsLookuper())); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return ch, nil
}

// Validate checks that every required key is present and non-empty
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.ChannelID == 0 {
		errs = append(errs, errors.New("CHANNEL_ID is required"))
	}
	if c.ModerationGroup == 0 {
		errs = append(errs, errors.New("MODERATION_GROUP is required"))
	}
	if strings.TrimSpace(c.CardNumber) == "" {
		errs = append(errs, errors.New("CARD_NUMBER is required"))
	}
	if strings.TrimSpace(c.BotLink) == "" {
		errs = append(errs, errors.New("BOT_LINK is required"))
	}
	if c.WebhookMode && strings.TrimSpace(c.WebhookURL) == "" {
		errs = append(errs, errors.New("WEBHOOK_URL is required when WEBHOOK_MODE is true"))
	}
	switch c.StorageBackend {
	case BackendJSON, BackendClickHouse, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (expected json, clickhouse or mock)", c.StorageBackend))
	}
	if c.PriceInfo <= 0 || c.PriceDelete <= 0 {
		errs = append(errs, errors.New("PRICE_INFO and PRICE_DELETE must be positive"))
	}
	if c.AlbumQuietPeriod <= 0 {
		errs = append(errs, errors.New("ALBUM_QUIET_PERIOD must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
