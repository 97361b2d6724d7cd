package payment

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

const maxWebhookBody = 64 << 10

type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, body []byte) error
}

type WebhookHandler struct {
	*transport.BaseHandler
	processor WebhookProcessor
}

func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(lg),
		processor:   processor,
	}
}

type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandlePayOSWebhook handles POST /payments/payos/webhook.
// The raw body is handed over untouched because the signature covers it.
func (h *WebhookHandler) HandlePayOSWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.processor.ProcessWebhook(r.Context(), body); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: "ok"})
}
