package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbot/internal/models"
)

const testAdminToken = "s3cret"

func newTestMux(env *testEnv, token string) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPServer(env.bot, token).RegisterRoutes(mux)
	return mux
}

func TestWebhook_EnqueuesUpdate(t *testing.T) {
	env := newTestEnv(t)
	mux := newTestMux(env, testAdminToken)

	body := `{"update_id": 17, "message": {"message_id": 5, "text": "hi", "chat": {"id": 501, "type": "private"}, "from": {"id": 501}}}`
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.bot.updates, 1)
	update := <-env.bot.updates
	assert.Equal(t, 17, update.UpdateID)
	require.NotNil(t, update.Message)
	assert.Equal(t, "hi", update.Message.Text)
}

func TestWebhook_RejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	mux := newTestMux(env, testAdminToken)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.bot.updates)
}

func TestWebhook_FullQueue(t *testing.T) {
	env := newTestEnv(t)
	mux := newTestMux(env, testAdminToken)

	for i := 0; i < cap(env.bot.updates); i++ {
		require.True(t, env.bot.Enqueue(tgbotapi.Update{UpdateID: i}))
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(`{"update_id": 1000}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_Auth(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  string
		header string
		method string
		want   int
	}{
		{name: "missing header", token: testAdminToken, method: http.MethodGet, want: http.StatusUnauthorized},
		{name: "wrong token", token: testAdminToken, header: "Bearer nope", method: http.MethodGet, want: http.StatusUnauthorized},
		{name: "no bearer prefix", token: testAdminToken, header: testAdminToken, method: http.MethodGet, want: http.StatusUnauthorized},
		{name: "valid token", token: testAdminToken, header: "Bearer " + testAdminToken, method: http.MethodGet, want: http.StatusOK},
		{name: "wrong method", token: testAdminToken, header: "Bearer " + testAdminToken, method: http.MethodPost, want: http.StatusMethodNotAllowed},
		{name: "api disabled", token: "", header: "Bearer " + testAdminToken, method: http.MethodGet, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(env, tt.token)
			req := httptest.NewRequest(tt.method, "/api/pending-posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func getJSON(t *testing.T, mux *http.ServeMux, path string, v interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAPI_PendingPosts(t *testing.T) {
	env := newTestEnv(t)
	mux := newTestMux(env, testAdminToken)

	var posts []models.PendingPost
	getJSON(t, mux, "/api/pending-posts", &posts)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	env.message(photoMessage(10, testUser, "First"))
	env.message(photoMessage(11, testUser, "Second"))
	env.press(callback("reject:1", testModerator, testModeration))

	getJSON(t, mux, "/api/pending-posts", &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.Equal(t, "Second", posts[0].Caption)
	assert.Equal(t, models.PostPending, posts[0].Status)
}

func TestAPI_Payments(t *testing.T) {
	env := newTestEnv(t)
	mux := newTestMux(env, testAdminToken)

	env.state.SetPayment(testRequester, models.ActionDelete, 123, 50, testNow)
	env.state.SetPayment(testUser, models.ActionInfo, 124, 25, testNow)
	_, err := env.state.MarkProofSent(testRequester, testNow)
	require.NoError(t, err)

	var all []models.PendingPayment
	getJSON(t, mux, "/api/payments", &all)
	assert.Len(t, all, 2)

	var sent []models.PendingPayment
	getJSON(t, mux, "/api/payments?status=proof_sent", &sent)
	require.Len(t, sent, 1)
	assert.Equal(t, testRequester, sent[0].RequesterID)
	assert.Equal(t, models.ActionDelete, sent[0].Action)

	var none []models.PendingPayment
	getJSON(t, mux, "/api/payments?status=completed", &none)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
