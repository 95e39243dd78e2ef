package bot

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/audit"
	"newsbot/internal/models"
)

// albumBuffer collects the messages of a media group until no new message arrived for
// the quiet period. Every new message re-arms the timer.
type albumBuffer struct {
	mu     sync.Mutex
	quiet  time.Duration
	groups map[string]*pendingAlbum
	flush  func([]*tgbotapi.Message)

	// inflight counts timer flushes that already left the map
	inflight sync.WaitGroup
}

type pendingAlbum struct {
	messages []*tgbotapi.Message
	timer    *time.Timer
	gen      uint64
}

func newAlbumBuffer(quiet time.Duration, flush func([]*tgbotapi.Message)) *albumBuffer {
	return &albumBuffer{
		quiet:  quiet,
		groups: make(map[string]*pendingAlbum),
		flush:  flush,
	}
}

func albumKey(m *tgbotapi.Message) string {
	return strconv.FormatInt(m.Chat.ID, 10) + ":" + m.MediaGroupID
}

// add buffers a message of an album
func (a *albumBuffer) add(m *tgbotapi.Message) {
	key := albumKey(m)

	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok := a.groups[key]
	if !ok {
		g = &pendingAlbum{}
		a.groups[key] = g
	}
	g.messages = append(g.messages, m)
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
	}
	gen := g.gen
	g.timer = time.AfterFunc(a.quiet, func() { a.fire(key, gen) })
}

// fire flushes the album unless a newer message re-armed it
func (a *albumBuffer) fire(key string, gen uint64) {
	a.mu.Lock()
	g, ok := a.groups[key]
	if !ok || g.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	a.inflight.Add(1)
	a.mu.Unlock()
	defer a.inflight.Done()

	a.flush(sortedByID(g.messages))
}

// drain flushes every buffered album immediately and waits for timer flushes that are
// already running
func (a *albumBuffer) drain() {
	a.mu.Lock()
	groups := a.groups
	a.groups = make(map[string]*pendingAlbum)
	a.mu.Unlock()

	for _, g := range groups {
		g.timer.Stop()
		a.flush(sortedByID(g.messages))
	}
	a.inflight.Wait()
}

func (a *albumBuffer) pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func sortedByID(msgs []*tgbotapi.Message) []*tgbotapi.Message {
	out := append([]*tgbotapi.Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out
}

// flushAlbum handles a complete album as payment proof, evidence or a new post
func (b *Bot) flushAlbum(msgs []*tgbotapi.Message) {
	if len(msgs) == 0 {
		return
	}
	first := msgs[0]
	defer b.recoverHandler("flushAlbum", first.Chat.ID)

	var items []models.MediaItem
	caption := ""
	for _, m := range msgs {
		if item, ok := mediaOf(m); ok {
			items = append(items, item)
		}
		if caption == "" && strings.TrimSpace(m.Caption) != "" {
			caption = m.Caption
		}
	}
	if len(items) == 0 {
		return
	}

	if b.trySubmitProof(first, items) {
		return
	}
	if b.tryForwardEvidence(first, items) {
		return
	}
	if caption == "" {
		b.reply(first.Chat.ID, textNoAlbumCaption)
		return
	}

	b.submitAlbum(first, items, caption)
}

func (b *Bot) submitAlbum(first *tgbotapi.Message, items []models.MediaItem, caption string) {
	user := first.From
	post, ok := b.addPost(models.PendingPost{
		UserID:      user.ID,
		Username:    displayName(user),
		AuthorPhone: b.state.Phone(user.ID),
		Caption:     caption,
		Media:       items,
		IsAlbum:     true,
		CreatedAt:   b.now(),
	}, first.Chat.ID)
	if !ok {
		return
	}

	if _, err := b.sendAlbum(b.settings.ModerationGroup, items, moderationCaption(post)); err != nil {
		b.abandonPost(post, first.Chat.ID, err)
		return
	}
	if _, err := b.sendText(b.settings.ModerationGroup, textAlbumAwaiting, moderationKeyboard(post.ID)); err != nil {
		b.abandonPost(post, first.Chat.ID, err)
		return
	}

	postsSubmitted.WithLabelValues("album").Inc()
	b.reply(first.Chat.ID, textAlbumSubmitted)
	b.audit.Record(audit.Entry{
		Action: audit.ActionPostSubmitted,
		User:   strconv.FormatInt(user.ID, 10),
		Extra:  "post_id=" + strconv.FormatInt(post.ID, 10) + ", album=" + strconv.Itoa(len(items)),
	})
	b.logger.Info("Album submitted for moderation",
		zap.Int64("post_id", post.ID),
		zap.Int64("user_id", user.ID),
		zap.Int("items", len(items)),
	)
}
