package poynt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	adapterports "github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	keys "github.com/kevin07696/poynt-sync-service/pkg/crypto"
	"github.com/kevin07696/poynt-sync-service/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type pemSecrets struct {
	pem string
}

func (p pemSecrets) GetSecret(context.Context, string) (*adapterports.Secret, error) {
	return &adapterports.Secret{Value: p.pem}, nil
}

func (p pemSecrets) GetSecretVersion(ctx context.Context, path, _ string) (*adapterports.Secret, error) {
	return p.GetSecret(ctx, path)
}

func TestTokenSource_SignsAssertionAndCaches(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair()
	require.NoError(t, err)
	key, err := keys.ParsePrivateKey(kp.PrivateKeyPEM)
	require.NoError(t, err)
	keyPEM := []byte(kp.PrivateKeyPEM)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.PostForm.Get("grantType"))

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*jwt.Token) (interface{}, error) {
			return &key.PublicKey, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "urn:aid:app-1", claims.Issuer)
		assert.Equal(t, "urn:aid:app-1", claims.Subject)
		assert.NotEmpty(t, claims.ID)

		_, _ = io.WriteString(w, `{"accessToken":"access-1","tokenType":"BEARER","expiresIn":900}`)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.ApplicationID = "urn:aid:app-1"
	cfg.PrivateKeyPath = "poynt-sync/app-key"

	source := NewTokenSource(cfg, server.Client(), pemSecrets{pem: string(keyPEM)}, security.NewZapLogger(zaptest.NewLogger(t)))

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	token, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call should hit the cache")

	source.Invalidate()
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// expired tokens are refreshed
	source.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTokenSource_RejectsBadKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://unused.invalid"

	source := NewTokenSource(cfg, http.DefaultClient, pemSecrets{pem: "not a key"}, security.NewZapLogger(zaptest.NewLogger(t)))
	_, err := source.Token(context.Background())
	assert.ErrorContains(t, err, "parse application key")
}
