package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/auth"
)

const secret = "test-secret-that-is-at-least-32-bytes"

var _ = Describe("JWTTokenGenerator", func() {
	var gen *auth.JWTTokenGenerator

	BeforeEach(func() {
		gen = auth.NewJWTTokenGenerator(secret, "ireva")
	})

	It("round-trips user id and role", func() {
		token, err := gen.GenerateToken("user-1", internal.RoleAdmin, time.Hour)
		Expect(err).ToNot(HaveOccurred())

		claims, err := gen.ValidateToken(token)
		Expect(err).ToNot(HaveOccurred())
		Expect(claims.UserID).To(Equal("user-1"))
		Expect(claims.Role).To(Equal(internal.RoleAdmin))
	})

	It("reports expired tokens", func() {
		token, err := gen.GenerateToken("user-1", internal.RoleInvestor, -time.Minute)
		Expect(err).ToNot(HaveOccurred())

		_, err = gen.ValidateToken(token)
		Expect(err).To(MatchError(auth.ErrTokenExpired))
	})

	It("rejects a token signed with another secret", func() {
		other := auth.NewJWTTokenGenerator("another-secret-that-is-long-enough!!", "ireva")
		token, _ := other.GenerateToken("user-1", internal.RoleAdmin, time.Hour)

		_, err := gen.ValidateToken(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects a token from another issuer", func() {
		other := auth.NewJWTTokenGenerator(secret, "someone-else")
		token, _ := other.GenerateToken("user-1", internal.RoleAdmin, time.Hour)

		_, err := gen.ValidateToken(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects the none algorithm", func() {
		claims := auth.Claims{
			UserID: "user-1",
			Role:   internal.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "ireva",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).ToNot(HaveOccurred())

		_, err = gen.ValidateToken(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("refuses to issue tokens for unknown roles", func() {
		_, err := gen.GenerateToken("user-1", "superuser", time.Hour)
		Expect(err).To(MatchError(auth.ErrUnknownRole))
	})
})

var _ = Describe("Handler middleware", func() {
	var (
		gen     *auth.JWTTokenGenerator
		handler *auth.Handler
		seen    internal.Principal
	)

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = internal.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/user-1", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		seen = internal.Principal{}
		gen = auth.NewJWTTokenGenerator(secret, "ireva")
		handler = auth.NewHandler(gen, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("injects the principal for a valid token", func() {
		token, _ := gen.GenerateToken("user-1", internal.RoleInvestor, time.Hour)

		rec := serve(handler.AuthMiddleware(capture), token)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(seen).To(Equal(internal.Principal{UserID: "user-1", Role: internal.RoleInvestor}))
	})

	It("answers 401 without a token", func() {
		rec := serve(handler.AuthMiddleware(capture), "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_TOKEN"))
	})

	It("answers 401 with TOKEN_EXPIRED for an expired token", func() {
		token, _ := gen.GenerateToken("user-1", internal.RoleInvestor, -time.Minute)
		rec := serve(handler.AuthMiddleware(capture), token)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring("TOKEN_EXPIRED"))
	})

	It("lets admins through RequireAdmin", func() {
		token, _ := gen.GenerateToken("admin-1", internal.RoleAdmin, time.Hour)
		rec := serve(handler.AuthMiddleware(handler.RequireAdmin(capture)), token)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(seen.IsAdmin()).To(BeTrue())
	})

	It("answers 403 to investors on admin routes", func() {
		token, _ := gen.GenerateToken("user-1", internal.RoleInvestor, time.Hour)
		rec := serve(handler.AuthMiddleware(handler.RequireAdmin(capture)), token)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
