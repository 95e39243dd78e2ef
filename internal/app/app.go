package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsbot/internal/audit"
	"newsbot/internal/bot"
	"newsbot/internal/config"
	"newsbot/internal/moderators"
	"newsbot/internal/state"
	"newsbot/internal/storage"
	"newsbot/internal/storage/ch"
	"newsbot/internal/storage/jsonfile"
	"newsbot/internal/storage/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	state  *state.State
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger, state: state.New()}

	logger.Info("Starting news bot...",
		zap.Int64("channel_id", cfg.ChannelID),
		zap.Int64("moderation_group", cfg.ModerationGroup),
		zap.String("storage", cfg.StorageBackend),
	)

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		app.db.Close()
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initDatabase opens the configured storage backend and seeds the post id counter
func (a *App) initDatabase() error {
	var db storage.Storage
	switch a.config.StorageBackend {
	case config.BackendMock:
		a.logger.Warn("Using mock database, published posts are not persisted")
		db = stubs.NewMockDB()
	case config.BackendClickHouse:
		opts := a.config.ClickHouse
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", opts.Host),
			zap.Int("port", opts.Port),
			zap.String("database", opts.Database),
			zap.String("user", opts.User),
			zap.Bool("tls", opts.UseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(ch.Options{
			Host:     opts.Host,
			Port:     opts.Port,
			Database: opts.Database,
			User:     opts.User,
			Password: opts.Password,
			UseTLS:   opts.UseTLS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	default:
		a.logger.Info("Using JSON file storage", zap.String("path", a.config.PostsFile))
		db = jsonfile.NewFileDB(a.config.PostsFile, a.config.Location(), a.logger)
	}

	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	maxID, err := db.MaxPostID(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to read last post id: %w", err)
	}
	a.state.SeedPostID(maxID)
	a.logger.Info("Database initialized successfully", zap.Int64("last_post_id", maxID))

	a.db = db
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	cfg := a.config

	mods, err := moderators.Load(cfg.ModeratorsFile)
	if err != nil {
		return fmt.Errorf("failed to load moderators: %w", err)
	}

	auditLog, err := audit.Open(cfg.AuditLogFile, cfg.Location(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	telegramBot, err := bot.NewBot(cfg.BotToken, bot.Settings{
		ChannelID:          cfg.ChannelID,
		ModerationGroup:    cfg.ModerationGroup,
		CardNumber:         cfg.CardNumber,
		BotLink:            cfg.BotLink,
		FooterChannelLink:  cfg.FooterChannelLink,
		FooterChannelTitle: cfg.FooterChannelTitle,
		FooterChannelName:  cfg.FooterChannelName,
		PriceInfo:          cfg.PriceInfo,
		PriceDelete:        cfg.PriceDelete,
		Currency:           cfg.Currency,
		Location:           cfg.Location(),
		AlbumQuietPeriod:   cfg.AlbumQuietPeriod,
		RestartDelay:       cfg.RestartDelay,
	}, bot.Deps{
		DB:         a.db,
		State:      a.state,
		Moderators: mods,
		Audit:      auditLog,
		Logger:     a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int("moderators", mods.Len()))

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, metrics, the webhook and the operator API
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "News bot is running (mode: %s)", mode)
	})

	mux.Handle("/metrics", promhttp.Handler())

	bot.NewHTTPServer(a.bot, a.config.AdminToken).RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Run starts the application and blocks until a shutdown signal or a fatal error
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down...")
		a.stopServer()
		return nil
	})

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			stop()
			_ = g.Wait()
			_ = a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		g.Go(func() error {
			return a.bot.RunWorker(ctx)
		})
	} else {
		g.Go(func() error {
			return a.bot.Start(ctx)
		})
	}

	err := g.Wait()

	// Update handlers have returned, so albums can flush into an open store
	if closeErr := a.Shutdown(); err == nil {
		err = closeErr
	}
	return err
}

func (a *App) stopServer() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
}

// Shutdown flushes buffered albums and closes the database. It must run after the
// update loop has returned.
func (a *App) Shutdown() error {
	a.bot.Shutdown()

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
