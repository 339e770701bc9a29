package poynt

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	adapterports "github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	keys "github.com/kevin07696/poynt-sync-service/pkg/crypto"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// refresh a little before the provider's expiry
const tokenExpiryLeeway = 60 * time.Second

// TokenProvider supplies bearer tokens for API calls
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a fixed bearer token, used for tests and local sandboxes
type StaticToken string

// Token returns the fixed token
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Invalidate is a no-op
func (s StaticToken) Invalidate() {}

// TokenSource exchanges a self-signed JWT for an access token and caches it
type TokenSource struct {
	expiresAt  time.Time
	config     *Config
	httpClient adapterports.HTTPClient
	secrets    adapterports.SecretManagerAdapter
	logger     adapterports.Logger
	key        *rsa.PrivateKey
	now        func() time.Time
	token      string
	mu         sync.Mutex
}

// NewTokenSource creates a token source that loads the application key from secrets
func NewTokenSource(
	config *Config,
	httpClient adapterports.HTTPClient,
	secrets adapterports.SecretManagerAdapter,
	logger adapterports.Logger,
) *TokenSource {
	return &TokenSource{
		config:     config,
		httpClient: httpClient,
		secrets:    secrets,
		logger:     logger,
		now:        time.Now,
	}
}

// Token returns a cached access token, fetching a new one when needed
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}

	assertion, err := s.signAssertion(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grantType", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-version", s.config.APIVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Poynt token endpoint returned non-200 status",
			adapterports.Int("status_code", resp.StatusCode),
		)
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response has no access token")
	}

	s.token = tr.AccessToken
	s.expiresAt = s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryLeeway)

	s.logger.Info("Obtained Poynt access token",
		adapterports.Duration("expires_in", time.Duration(tr.ExpiresIn)*time.Second),
	)
	return s.token, nil
}

// Invalidate drops the cached token so the next call fetches a new one
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *TokenSource) signAssertion(ctx context.Context) (string, error) {
	if s.key == nil {
		secret, err := s.secrets.GetSecret(ctx, s.config.PrivateKeyPath)
		if err != nil {
			return "", fmt.Errorf("failed to load application key: %w", err)
		}
		key, err := keys.ParsePrivateKey(secret.Value)
		if err != nil {
			return "", fmt.Errorf("failed to parse application key: %w", err)
		}
		if fp, err := keys.Fingerprint(&key.PublicKey); err == nil {
			s.logger.Info("Loaded Poynt application key",
				adapterports.String("key_version", secret.Version),
				adapterports.String("fingerprint", fp),
			)
		}
		s.key = key
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.config.ApplicationID,
		Subject:   s.config.ApplicationID,
		Audience:  jwt.ClaimStrings{s.config.BaseURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		ID:        uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
