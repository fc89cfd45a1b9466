package refund

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
)

type RefundRequest struct {
	Reason string `json:"reason"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{BaseHandler: transport.NewBaseHandler(logger), Service: svc}
}

// RefundPayment handles POST /api/v1/admin/payments/{id}/refund
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.NewAuthenticationError("authentication required", internal.ErrCodeInvalidToken))
		return
	}
	if !principal.IsAdmin() {
		h.HandleError(w, internal.NewForbiddenError("admin role required"))
		return
	}

	var req RefundRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.Service.RequestRefund(r.Context(), chi.URLParam(r, "id"), req.Reason, principal.UserID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
