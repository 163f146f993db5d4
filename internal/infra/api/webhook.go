package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/infra/logging"
	"subscription-commerce/internal/infra/metrics"
	"subscription-commerce/internal/usecase"

	"github.com/rs/zerolog"
)

// webhookEnvelope is the gateway's notification shape. Only data.id is
// trusted; everything about the payment is re-fetched from the gateway.
type webhookEnvelope struct {
	Action   string `json:"action"`
	ID       string `json:"id"`
	LiveMode bool   `json:"live_mode"`
	Data     struct {
		ID string `json:"id"`
	} `json:"data"`
}

// WebhookHandler receives gateway payment notifications and drives the
// reconciliation pipeline.
type WebhookHandler struct {
	reconcile usecase.ReconcileUseCase
	secret    string // empty disables signature verification
	log       *zerolog.Logger
}

func NewWebhookHandler(reconcile usecase.ReconcileUseCase, secret string, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile, secret: secret, log: logger}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := "error"
	defer func() {
		metrics.ObserveWebhookDuration(result, time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		result = "ignored"
		metrics.IncWebhook("ignored", "method_not_allowed")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || ct != "application/json" {
		result = "ignored"
		metrics.IncWebhook("ignored", "unsupported_media_type")
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "content-type must be application/json"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		metrics.IncWebhook("error", "body_read")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}

	if h.secret != "" && !h.verifySignature(r, body) {
		result = "ignored"
		metrics.IncWebhook("ignored", "bad_signature")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid signature"})
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.IncWebhook("error", "bad_json")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	// The top-level id is the notification id, not a payment id; only
	// data.id identifies the payment.
	paymentID := env.Data.ID
	if paymentID == "" {
		metrics.IncWebhook("error", "missing_id")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing payment id"})
		return
	}

	if env.Action != "payment.created" && env.Action != "payment.updated" {
		result = "ignored"
		metrics.IncWebhook("ignored", "action")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "not handled"})
		return
	}

	ctx := logging.WithPaymentID(r.Context(), paymentID)
	l := logging.With(ctx, h.log)

	res, err := h.reconcile.ProcessPayment(ctx, paymentID)
	if err != nil {
		reason := "unknown"
		switch {
		case errors.Is(err, domain.ErrMissingUserReference):
			reason = "missing_user"
		case errors.Is(err, domain.ErrNoActivePlans):
			reason = "no_plans"
		}
		metrics.IncWebhook("error", reason)
		l.Error().Err(err).Str("action", env.Action).Str("notification_id", env.ID).Msg("webhook reconciliation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "internal_error",
			"message": "payment could not be processed",
		})
		return
	}

	switch {
	case res.TestMode:
		result = "test"
		metrics.IncWebhook("test", "")
	default:
		result = "processed"
		metrics.IncWebhook("processed", "")
		metrics.IncPayment(res.Status)
		if res.Amount > 0 {
			metrics.AddPaymentRevenue(res.Currency, res.Amount)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// verifySignature checks the hex HMAC-SHA256 of the raw body carried in
// the x-signature header.
func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) bool {
	sig := r.Header.Get("X-Signature")
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(want))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
