package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"newsbot/internal/models"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/telegram-webhook"

// HTTPServer serves the webhook endpoint and the read-only operator API
type HTTPServer struct {
	bot        *Bot
	adminToken string
}

// NewHTTPServer creates the HTTP handlers of the bot. The operator API is disabled
// when adminToken is empty.
func NewHTTPServer(bot *Bot, adminToken string) *HTTPServer {
	return &HTTPServer{
		bot:        bot,
		adminToken: adminToken,
	}
}

// RegisterRoutes registers the bot routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(WebhookPath, hs.handleWebhook)

	mux.HandleFunc("/api/pending-posts", hs.authMiddleware(hs.handlePendingPosts))
	mux.HandleFunc("/api/payments", hs.authMiddleware(hs.handlePayments))
}

// handleWebhook queues an update for the worker and answers Telegram right away
func (hs *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Error decoding webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !hs.bot.Enqueue(update) {
		hs.bot.logger.Warn("Webhook queue is full, asking Telegram to retry", zap.Int("update_id", update.UpdateID))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// authMiddleware checks the bearer admin token
func (hs *HTTPServer) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hs.adminToken == "" {
			http.NotFound(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(hs.adminToken)) != 1 {
			hs.bot.logger.Warn("Unauthorized API request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}

		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}
		next(w, r)
	}
}

// handlePendingPosts returns the posts waiting for a moderator decision
func (hs *HTTPServer) handlePendingPosts(w http.ResponseWriter, r *http.Request) {
	posts := hs.bot.state.PendingPosts()
	if posts == nil {
		posts = []models.PendingPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// handlePayments returns payment requests, optionally filtered by ?status=
func (hs *HTTPServer) handlePayments(w http.ResponseWriter, r *http.Request) {
	status := models.PaymentStatus(r.URL.Query().Get("status"))

	payments := []models.PendingPayment{}
	for _, p := range hs.bot.state.Payments() {
		if status == "" || p.Status == status {
			payments = append(payments, p)
		}
	}
	writeJSON(w, http.StatusOK, payments)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
