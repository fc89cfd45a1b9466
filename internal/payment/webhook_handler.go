package payment

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/webhook"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/signature"
)

const DefaultSignatureHeader = "X-Signature"

// WebhookHandler is the provider callback endpoint. Only signature failures
// are answered with a non-200 status; everything after verification is
// reported in the body and kept in the inbox for follow-up.
type WebhookHandler struct {
	*transport.BaseHandler
	paymentService  ServiceAPI
	inbox           WebhookEventRepositoryAPI
	verifier        *signature.Verifier
	signatureHeader string
	maxBodyBytes    int64
}

func NewWebhookHandler(paymentService ServiceAPI, inbox WebhookEventRepositoryAPI, verifier *signature.Verifier, signatureHeader string, maxBodyBytes int64, logger *slog.Logger) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = DefaultSignatureHeader
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &WebhookHandler{
		BaseHandler:     transport.NewBaseHandler(logger),
		paymentService:  paymentService,
		inbox:           inbox,
		verifier:        verifier,
		signatureHeader: signatureHeader,
		maxBodyBytes:    maxBodyBytes,
	}
}

// HandlePaymentCallback handles POST /api/v1/webhooks/payment-provider
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Logger.Warn("payment callback body too large", "limit", h.maxBodyBytes, "remote_addr", r.RemoteAddr)
			h.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.HandleError(w, internal.NewValidationError("unable to read request body", internal.ErrCodeInvalidPayload).WithCause(err))
		return
	}

	// The signature covers the exact bytes received; nothing is decoded before this.
	if err := h.verifier.Verify(body, r.Header.Get(h.signatureHeader)); err != nil {
		h.Logger.Warn("payment callback signature rejected", "error", err, "remote_addr", r.RemoteAddr)
		code := internal.ErrCodeInvalidSignature
		if errors.Is(err, signature.ErrMissingSignature) {
			code = internal.ErrCodeMissingSignature
		}
		h.HandleError(w, internal.NewAuthenticationError("invalid webhook signature", code).WithCause(err))
		return
	}

	ctx := r.Context()
	record := &webhook.Event{
		ID:             uuid.NewString(),
		Payload:        string(body),
		SignatureValid: !h.verifier.Permissive(),
		Outcome:        webhook.OutcomeReceived,
		RemoteAddr:     r.RemoteAddr,
		ReceivedAt:     time.Now().UTC(),
	}
	stored := true
	if err := h.inbox.Create(ctx, record); err != nil {
		stored = false
		h.Logger.Error("failed to store payment callback", "error", err, "event_id", record.ID)
	}

	event, err := ParseCallback(body)
	if err != nil {
		h.Logger.Warn("payment callback rejected", "error", err, "event_id", record.ID)
		h.complete(r, record, stored, webhook.OutcomeRejected, err)
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "rejected", Message: describe(err)})
		return
	}
	record.ProviderEventID = event.ProviderID
	record.OrderID = event.OrderID
	record.Status = event.ProviderStatus

	result, err := h.paymentService.ApplyProviderEvent(ctx, event)
	if err != nil {
		outcome := webhook.OutcomeFailed
		if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode < http.StatusInternalServerError {
			outcome = webhook.OutcomeRejected
		}
		h.Logger.Error("payment callback processing failed",
			"error", err,
			"event_id", record.ID,
			"order_id", event.OrderID,
			"outcome", outcome)
		h.complete(r, record, stored, outcome, err)
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "error", Message: describe(err)})
		return
	}

	h.complete(r, record, stored, result.Outcome, nil)

	h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "ok", Outcome: result.Outcome, Message: result.Reason})
}

func (h *WebhookHandler) complete(r *http.Request, record *webhook.Event, stored bool, outcome string, cause error) {
	if !stored {
		return
	}
	now := time.Now().UTC()
	record.Outcome = outcome
	record.ProcessedAt = &now
	if cause != nil {
		msg := cause.Error()
		record.ProcessingError = &msg
	}
	if err := h.inbox.Complete(r.Context(), record); err != nil {
		h.Logger.Error("failed to update stored payment callback", "error", err, "event_id", record.ID)
	}
}

func describe(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			return "callback accepted for manual review"
		}
		return appErr.GetDetailedMessage()
	}
	return "callback accepted for manual review"
}
