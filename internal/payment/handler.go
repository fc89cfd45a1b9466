package payment

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
}

func NewHandler(paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(logger),
		PaymentService: paymentService,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.NewAuthenticationError("authentication required", internal.ErrCodeInvalidToken))
		return
	}

	var req CreatePaymentRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = principal.UserID
	}
	if !principal.CanActFor(userID) {
		h.HandleError(w, internal.NewForbiddenError("cannot create a payment for another user"))
		return
	}

	result, err := h.PaymentService.CreateIntent(r.Context(), CreateIntentInput{
		UserID:     userID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		PropertyID: req.PropertyID,
	})
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, CreatePaymentResponse{
		TransactionID:  result.Payment.ID,
		Status:         string(result.Payment.Status),
		PaymentURL:     result.PaymentURL,
		PaymentAddress: result.PaymentAddress,
		ExpiresAt:      result.Payment.ExpiresAt,
	})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.NewAuthenticationError("authentication required", internal.ErrCodeInvalidToken))
		return
	}

	p, err := h.PaymentService.GetPayment(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToPaymentResponse(p))
}
