package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Poynt signs webhooks with HMAC-SHA1
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"go.uber.org/zap"
)

// SignatureHeader carries base64(HMAC-SHA1(body, secret))
const SignatureHeader = "poynt-webhook-signature"

// Sign computes the signature Poynt sends for payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ErrEmptySecret is returned when the configured webhook secret is blank.
// It is not a rejection, so the delivery answers 5xx and is retried.
var ErrEmptySecret = errors.New("webhook secret is empty")

// Verifier checks webhook signatures against the shared secret held in the
// secret manager. While a secret is being rotated the previous version is
// accepted as well.
type Verifier struct {
	secrets         ports.SecretManagerAdapter
	path            string
	previousVersion string
	logger          *zap.Logger
}

// NewVerifier creates a verifier reading the secret at path
func NewVerifier(secrets ports.SecretManagerAdapter, path, previousVersion string, logger *zap.Logger) *Verifier {
	return &Verifier{secrets: secrets, path: path, previousVersion: previousVersion, logger: logger}
}

// Verify returns ErrInvalidSignature unless signature matches payload
func (v *Verifier) Verify(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return domain.WrapError(domain.ErrorCodeInvalidSignature, "missing webhook signature", domain.ErrInvalidSignature)
	}

	current, err := v.secrets.GetSecret(ctx, v.path)
	if err != nil {
		return fmt.Errorf("load webhook secret: %w", err)
	}
	// an empty key would let anyone sign; fail closed so Poynt retries
	if current.Value == "" {
		return ErrEmptySecret
	}
	if matches(payload, signature, current.Value) {
		return nil
	}

	if v.previousVersion != "" {
		previous, err := v.secrets.GetSecretVersion(ctx, v.path, v.previousVersion)
		if err != nil {
			v.logger.Warn("Failed to load previous webhook secret", zap.Error(err))
		} else if previous.Value != "" && matches(payload, signature, previous.Value) {
			v.logger.Info("Webhook signed with previous secret version",
				zap.String("version", v.previousVersion),
			)
			return nil
		}
	}

	return domain.WrapError(domain.ErrorCodeInvalidSignature, "webhook signature mismatch", domain.ErrInvalidSignature)
}

func matches(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
