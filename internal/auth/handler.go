package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Tokens TokenValidator
}

func NewHandler(tokens TokenValidator, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Tokens:      tokens,
	}
}

// AuthMiddleware verifies the bearer token and puts the caller's Principal on
// the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleError(w, internal.NewAuthenticationError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Tokens.ValidateToken(token)
		if err != nil {
			code := internal.ErrCodeInvalidToken
			msg := "invalid token"
			if errors.Is(err, ErrTokenExpired) {
				code = internal.ErrCodeTokenExpired
				msg = "token expired"
			}
			h.HandleError(w, internal.NewAuthenticationError(msg, code).WithCause(err))
			return
		}

		principal := internal.Principal{UserID: claims.UserID, Role: claims.Role}
		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.UserID, "role", principal.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must be mounted behind AuthMiddleware.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			h.HandleError(w, internal.NewAuthenticationError("authentication required", internal.ErrCodeInvalidToken))
			return
		}
		if !principal.IsAdmin() {
			h.Logger.Warn("admin route denied", "user_id", principal.UserID, "role", principal.Role, "path", r.URL.Path)
			h.HandleError(w, internal.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
