// Package webhook implements the payment provider webhook endpoint.
//
// The handler verifies the HMAC signature over the raw request body before
// any parsing, then hands the event to the reconciliation service. A failed
// signature check is answered with 400, a processing failure with 500 so the
// provider redelivers the event.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/metrics"
	"github.com/osoriolabs/lawdesk/internal/paymentprovider"
)

// SignatureHeader carries the provider's signature of the raw body.
const SignatureHeader = "Stripe-Signature"

type Service interface {
	ProcessEvent(ctx context.Context, event *paymentprovider.Event) error
}

type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		metrics.WebhookSignatureFailures.Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var event paymentprovider.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The reconcile service records the per-event outcome metric.
	if err := h.service.ProcessEvent(r.Context(), &event); err != nil {
		log.Error("failed to process webhook event",
			slog.String("event_type", event.Type), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed", slog.String("event_type", event.Type), slog.String("event_id", event.ID))
	render.JSON(w, r, map[string]bool{"received": true})
}

// verifySignature checks the t=<unix>,v1=<hex> signature scheme: the
// signed payload is "<t>.<body>" and v1 is its HMAC-SHA256 under the
// endpoint secret. Comparison is constant time.
func verifySignature(secret string, body []byte, header string) bool {
	var timestamp, provided string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			provided = kv[1]
		}
	}
	if timestamp == "" || provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}
