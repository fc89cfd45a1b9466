package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
)

var (
	ErrMissingSignature = errors.New("signature: missing signature header")
	ErrInvalidSignature = errors.New("signature: signature does not match payload")
	ErrSecretRequired   = errors.New("signature: webhook secret is required in production")
)

const prefix = "sha256="

// Sign returns the lowercase hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier authenticates raw webhook bodies against a shared secret.
type Verifier struct {
	secret     []byte
	permissive bool
	logger     *slog.Logger
}

// NewVerifier refuses to build a permissive verifier in production.
func NewVerifier(secret string, production bool, logger *slog.Logger) (*Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if secret == "" {
		if production {
			return nil, ErrSecretRequired
		}
		logger.Warn("webhook signature verification is running in permissive mode: no secret configured")
		return &Verifier{permissive: true, logger: logger}, nil
	}
	return &Verifier{secret: []byte(secret), logger: logger}, nil
}

func (v *Verifier) Permissive() bool {
	return v.permissive
}

// Verify checks header against the HMAC of the exact bytes received.
// The header may carry an optional "sha256=" prefix.
func (v *Verifier) Verify(body []byte, header string) error {
	if v.permissive {
		v.logger.Warn("accepting webhook without signature check (permissive mode)", "body_size", len(body))
		return nil
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		header = header[len(prefix):]
	}

	given, err := hex.DecodeString(header)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(given, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
