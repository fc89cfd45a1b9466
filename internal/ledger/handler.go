package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

// authorize resolves {userId} and checks the caller may act on it.
func (h *Handler) authorize(r *http.Request) (string, error) {
	userID := chi.URLParam(r, "userId")
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		return "", internal.NewAuthenticationError("authentication required", internal.ErrCodeInvalidToken)
	}
	if !principal.CanActFor(userID) {
		return "", internal.NewForbiddenError("cannot access another user's wallet")
	}
	return userID, nil
}

// GetWallet handles GET /wallets/{userId}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authorize(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	account, err := h.Service.GetBalance(r.Context(), userID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, WalletResponse{Wallet: account})
}

// ListEntries handles GET /wallets/{userId}/entries
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authorize(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	page, err := h.QueryInt(r, "page", 1)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	pageSize, err := h.QueryInt(r, "page_size", defaultPageSize)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	filter := EntryFilter{
		Type:     wallet.EntryType(r.URL.Query().Get("type")),
		Status:   wallet.EntryStatus(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.Service.ListEntries(r.Context(), userID, filter)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Withdraw handles POST /wallets/{userId}/withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authorize(r)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	var req WithdrawalRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.Service.DebitWallet(r.Context(), userID, req.Amount, req.Reference, wallet.EntryTypeWithdrawal)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Applied {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, MutationResponse{Entry: result.Entry, Wallet: result.Wallet, Applied: result.Applied})
}
