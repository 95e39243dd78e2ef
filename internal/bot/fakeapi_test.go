package bot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/moderators"
	"newsbot/internal/state"
	"newsbot/internal/storage/stubs"
)

// fakeAPI records outbound Telegram calls and can fail them on demand
type fakeAPI struct {
	mu sync.Mutex

	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	groups   []tgbotapi.MediaGroupConfig
	nextID   int

	sendErr    func(c tgbotapi.Chattable) error
	requestErr func(c tgbotapi.Chattable) error
	groupErr   func(cfg tgbotapi.MediaGroupConfig) error

	updates chan tgbotapi.Update
	stops   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 1000, updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	hook := f.sendErr
	f.mu.Unlock()
	if hook != nil {
		if err := hook(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	hook := f.requestErr
	f.mu.Unlock()
	if hook != nil {
		if err := hook(c); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	hook := f.groupErr
	f.mu.Unlock()
	if hook != nil {
		if err := hook(cfg); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, cfg)
	msgs := make([]tgbotapi.Message, len(cfg.Media))
	for i := range msgs {
		f.nextID++
		msgs[i] = tgbotapi.Message{MessageID: f.nextID}
	}
	return msgs, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeAPI) GetWebhookInfo() (tgbotapi.WebhookInfo, error) {
	return tgbotapi.WebhookInfo{URL: "https://bot.example.com/telegram-webhook"}, nil
}

func (f *fakeAPI) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) messagesTo(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) photosTo(chatID int64) []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok && p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeAPI) videosTo(chatID int64) []tgbotapi.VideoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.VideoConfig
	for _, c := range f.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok && v.ChatID == chatID {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeAPI) groupsTo(chatID int64) []tgbotapi.MediaGroupConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MediaGroupConfig
	for _, g := range f.groups {
		if g.ChatID == chatID {
			out = append(out, g)
		}
	}
	return out
}

func (f *fakeAPI) answers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if a, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAPI) lastAnswer(t *testing.T) string {
	t.Helper()
	all := f.answers()
	require.NotEmpty(t, all, "no callback answered")
	return all[len(all)-1].Text
}

func (f *fakeAPI) keyboardEdits() []tgbotapi.EditMessageReplyMarkupConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeAPI) deletes() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DeleteMessageConfig
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) setSendErr(fn func(c tgbotapi.Chattable) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = fn
}

func (f *fakeAPI) setRequestErr(fn func(c tgbotapi.Chattable) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestErr = fn
}

func (f *fakeAPI) setGroupErr(fn func(cfg tgbotapi.MediaGroupConfig) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupErr = fn
}

const (
	testChannel    int64 = -1002808799226
	testModeration int64 = -1002935218273
	testUser       int64 = 501
	testRequester  int64 = 777
	testModerator  int64 = 901
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	bot      *Bot
	api      *fakeAPI
	db       *stubs.MockDB
	state    *state.State
	auditLog string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	auditPath := filepath.Join(t.TempDir(), "logs.csv")
	auditLog, err := audit.Open(auditPath, kyiv, zap.NewNop())
	require.NoError(t, err)

	api := newFakeAPI()
	db := stubs.NewMockDB()
	st := state.New()

	b := newBot(api, Settings{
		ChannelID:          testChannel,
		ModerationGroup:    testModeration,
		CardNumber:         "4441 1111 2222 3333",
		BotLink:            "https://t.me/news_bot",
		FooterChannelLink:  "https://t.me/sutnistua",
		FooterChannelTitle: "@sutnistua",
		FooterChannelName:  "Сутність UA ONLINE",
		PriceInfo:          25,
		PriceDelete:        50,
		Currency:           "грн",
		Location:           kyiv,
		AlbumQuietPeriod:   50 * time.Millisecond,
		RestartDelay:       10 * time.Millisecond,
	}, Deps{
		DB:         db,
		State:      st,
		Moderators: moderators.New(map[string]string{"901": "Олена"}),
		Audit:      auditLog,
		Logger:     zap.NewNop(),
	})
	b.now = func() time.Time { return testNow }

	return &testEnv{bot: b, api: api, db: db, state: st, auditLog: auditPath}
}

// auditActions returns the translated action column of every audit row
func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(e.auditLog)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	var out []string
	for _, row := range rows[1:] {
		out = append(out, row[3])
	}
	return out
}

func privateChat(userID int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: userID, Type: "private"}
}

func photoMessage(msgID int, userID int64, caption string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: msgID,
		From:      &tgbotapi.User{ID: userID, UserName: "reporter", FirstName: "Taras"},
		Chat:      privateChat(userID),
		Caption:   caption,
		Photo: []tgbotapi.PhotoSize{
			{FileID: "photo-small", Width: 90},
			{FileID: "photo-large", Width: 1280},
		},
	}
}

func videoMessage(msgID int, userID int64, caption string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: msgID,
		From:      &tgbotapi.User{ID: userID, UserName: "reporter"},
		Chat:      privateChat(userID),
		Caption:   caption,
		Video:     &tgbotapi.Video{FileID: "video-1"},
	}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "someone"},
		Chat:      privateChat(userID),
		Text:      text,
	}
}

func commandMessage(chat *tgbotapi.Chat, from int64, command string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      chat,
		Text:      command,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}
}

// callback builds a button press from a message in chatID
func callback(data string, from, chatID int64) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: from, FirstName: "Olena", LastName: "K"},
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
}

func (e *testEnv) message(m *tgbotapi.Message) {
	e.bot.HandleUpdate(tgbotapi.Update{Message: m})
}

func (e *testEnv) press(q *tgbotapi.CallbackQuery) {
	e.bot.HandleUpdate(tgbotapi.Update{CallbackQuery: q})
}
