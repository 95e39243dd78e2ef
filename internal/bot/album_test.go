package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbot/internal/models"
)

func albumMessage(msgID int, userID int64, group, caption string) *tgbotapi.Message {
	m := photoMessage(msgID, userID, caption)
	m.MediaGroupID = group
	m.Photo = []tgbotapi.PhotoSize{{FileID: "photo-" + strconv.Itoa(msgID)}}
	return m
}

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]*tgbotapi.Message
}

func (r *flushRecorder) flush(msgs []*tgbotapi.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, msgs)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestAlbumBuffer_ReArmsOnEveryMessage(t *testing.T) {
	rec := &flushRecorder{}
	buf := newAlbumBuffer(100*time.Millisecond, rec.flush)

	buf.add(albumMessage(2, testUser, "g1", ""))
	time.Sleep(60 * time.Millisecond)
	buf.add(albumMessage(1, testUser, "g1", "Caption"))
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, rec.count(), "second message must re-arm the timer")
	assert.Equal(t, 1, buf.pending())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	batch := rec.batches[0]
	rec.mu.Unlock()
	require.Len(t, batch, 2)
	assert.Equal(t, 1, batch[0].MessageID)
	assert.Equal(t, 2, batch[1].MessageID)
	assert.Equal(t, 0, buf.pending())
}

func TestAlbumBuffer_SeparatesGroupsAndChats(t *testing.T) {
	rec := &flushRecorder{}
	buf := newAlbumBuffer(30*time.Millisecond, rec.flush)

	buf.add(albumMessage(1, testUser, "g1", "a"))
	buf.add(albumMessage(2, testUser, "g2", "b"))
	buf.add(albumMessage(3, testRequester, "g1", "c"))

	assert.Equal(t, 3, buf.pending())
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestAlbumBuffer_DrainFlushesImmediately(t *testing.T) {
	rec := &flushRecorder{}
	buf := newAlbumBuffer(50*time.Millisecond, rec.flush)

	buf.add(albumMessage(1, testUser, "g1", "a"))
	buf.add(albumMessage(2, testUser, "g1", ""))
	buf.drain()

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, buf.pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "stopped timer must not flush again")
}

func TestAlbum_SubmittedAsOnePost(t *testing.T) {
	env := newTestEnv(t)

	env.message(albumMessage(12, testUser, "album-1", ""))
	env.message(albumMessage(10, testUser, "album-1", ""))
	env.message(albumMessage(11, testUser, "album-1", "Flood in Kyiv"))

	require.Eventually(t, func() bool {
		return len(env.api.groupsTo(testModeration)) == 1
	}, time.Second, 10*time.Millisecond)

	group := env.api.groupsTo(testModeration)[0]
	require.Len(t, group.Media, 3)
	for i, want := range []string{"photo-10", "photo-11", "photo-12"} {
		m, ok := group.Media[i].(tgbotapi.InputMediaPhoto)
		require.True(t, ok)
		assert.Equal(t, tgbotapi.FileID(want), m.Media)
	}
	first := group.Media[0].(tgbotapi.InputMediaPhoto)
	assert.Contains(t, first.Caption, "НОВИЙ ПОСТ #1")
	assert.Contains(t, first.Caption, "Flood in Kyiv")

	require.Eventually(t, func() bool {
		texts := env.api.textsTo(testUser)
		return len(texts) == 1 && texts[0] == textAlbumSubmitted
	}, time.Second, 10*time.Millisecond)

	msgs := env.api.messagesTo(testModeration)
	require.Len(t, msgs, 1)
	assert.Equal(t, textAlbumAwaiting, msgs[0].Text)
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "approve:1", *kb.InlineKeyboard[0][0].CallbackData)

	posts := env.state.PendingPosts()
	require.Len(t, posts, 1)
	assert.True(t, posts[0].IsAlbum)
	assert.Equal(t, "Flood in Kyiv", posts[0].Caption)

	// Approving publishes the whole album to the channel
	env.press(callback("approve:1", testModerator, testModeration))

	channel := env.api.groupsTo(testChannel)
	require.Len(t, channel, 1)
	assert.Len(t, channel[0].Media, 3)
	published := channel[0].Media[0].(tgbotapi.InputMediaPhoto)
	assert.Contains(t, published.Caption, "Надіслати новину")

	stored, err := env.db.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(1), stored[0].PostID)
}

func TestAlbum_WithoutCaption(t *testing.T) {
	env := newTestEnv(t)

	env.message(albumMessage(10, testUser, "album-2", ""))
	env.message(albumMessage(11, testUser, "album-2", " "))

	require.Eventually(t, func() bool {
		texts := env.api.textsTo(testUser)
		return len(texts) == 1 && texts[0] == textNoAlbumCaption
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, env.state.PendingPosts())
	assert.Empty(t, env.api.groupsTo(testModeration))
}

func TestAlbumBuffer_DrainWaitsForRunningFlush(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &flushRecorder{}
	buf := newAlbumBuffer(10*time.Millisecond, func(msgs []*tgbotapi.Message) {
		close(started)
		<-release
		rec.flush(msgs)
	})

	buf.add(albumMessage(1, testUser, "g1", "Caption"))
	<-started
	assert.Equal(t, 0, buf.pending(), "a running flush has left the buffer")

	drained := make(chan struct{})
	go func() {
		buf.drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("drain returned while a flush was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after the flush finished")
	}
	assert.Equal(t, 1, rec.count())
}

func TestAlbum_CaptionTooLong(t *testing.T) {
	env := newTestEnv(t)

	env.message(albumMessage(10, testUser, "album-6", strings.Repeat("б", 1500)))
	env.message(albumMessage(11, testUser, "album-6", ""))

	require.Eventually(t, func() bool {
		texts := env.api.textsTo(testUser)
		return len(texts) == 1 && strings.HasPrefix(texts[0], "⚠️ Підпис задовгий")
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, env.state.PendingPosts())
	assert.Empty(t, env.api.groupsTo(testModeration))
}

func TestAlbum_UsedAsPaymentProof(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetPayment(testRequester, models.ActionInfo, 123, 25, testNow)

	env.message(albumMessage(20, testRequester, "album-3", ""))
	env.message(albumMessage(21, testRequester, "album-3", ""))

	require.Eventually(t, func() bool {
		return len(env.api.messagesTo(testModeration)) == 1
	}, time.Second, 10*time.Millisecond)

	groups := env.api.groupsTo(testModeration)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Media, 2, "every album item reaches the moderators")
	first, ok := groups[0].Media[0].(tgbotapi.InputMediaPhoto)
	require.True(t, ok)
	assert.Contains(t, first.Caption, "Доказ оплати")
	assert.Empty(t, env.api.photosTo(testModeration))

	buttons := env.api.messagesTo(testModeration)[0]
	assert.Equal(t, textProofAwaiting, buttons.Text)
	kb, ok := buttons.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "moderator_confirm_payment:777:123:info", *kb.InlineKeyboard[0][0].CallbackData)

	assert.Empty(t, env.state.PendingPosts())
	p, _ := env.state.Payment(testRequester)
	assert.Equal(t, models.PaymentProofSent, p.Status)
}

func TestAlbum_ForwardFailureClosesPost(t *testing.T) {
	env := newTestEnv(t)
	env.api.setGroupErr(func(tgbotapi.MediaGroupConfig) error {
		return assert.AnError
	})

	env.message(albumMessage(10, testUser, "album-4", "Caption"))
	env.message(albumMessage(11, testUser, "album-4", ""))

	require.Eventually(t, func() bool {
		texts := env.api.textsTo(testUser)
		return len(texts) == 1 && texts[0] == textSubmitFailed
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, env.state.PendingPosts())
}

func TestShutdown_FlushesBufferedAlbums(t *testing.T) {
	env := newTestEnv(t)
	env.bot.albums.quiet = time.Hour

	env.message(albumMessage(10, testUser, "album-5", "Caption"))
	env.message(albumMessage(11, testUser, "album-5", ""))

	env.bot.Shutdown()

	assert.Len(t, env.api.groupsTo(testModeration), 1)
	assert.Len(t, env.state.PendingPosts(), 1)
}
