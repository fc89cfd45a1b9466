package reconciliation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{BaseHandler: transport.NewBaseHandler(logger), Service: svc}
}

// ReconcileWallet handles GET /api/v1/admin/wallets/{id}/reconcile
func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

// ReconcileAll handles GET /api/v1/admin/reconciliation
func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	onlyDiscrepancies := false
	if raw := r.URL.Query().Get("only_discrepancies"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleError(w, internal.NewValidationFieldError("only_discrepancies", "only_discrepancies must be a boolean", internal.ErrCodeValidationFailed))
			return
		}
		onlyDiscrepancies = v
	}

	summary, err := h.Service.ReconcileAll(r.Context(), onlyDiscrepancies)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
