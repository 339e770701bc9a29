package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLocalSecretManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "poynt"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poynt", "webhook"), []byte("whsec-current\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poynt", "webhook.3"), []byte(`{"value":"whsec-old"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poynt", "bundle"), []byte(`{"signing_secret":"s1","app_id":"a1"}`), 0o600))

	m := NewLocalSecretManager(dir, zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("plain_text", func(t *testing.T) {
		s, err := m.GetSecret(ctx, "poynt/webhook")
		require.NoError(t, err)
		assert.Equal(t, "whsec-current", s.Value)
	})

	t.Run("version_file", func(t *testing.T) {
		s, err := m.GetSecretVersion(ctx, "poynt/webhook", "3")
		require.NoError(t, err)
		assert.Equal(t, "whsec-old", s.Value)
		assert.Equal(t, "3", s.Version)
	})

	t.Run("json_field", func(t *testing.T) {
		s, err := m.GetSecret(ctx, "poynt/bundle#signing_secret")
		require.NoError(t, err)
		assert.Equal(t, "s1", s.Value)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := m.GetSecret(ctx, "poynt/nope")
		assert.ErrorContains(t, err, "secret not found")
	})

	t.Run("no_escape_from_base", func(t *testing.T) {
		_, err := m.GetSecret(ctx, "../../etc/passwd")
		assert.Error(t, err)
	})
}

type fakeSecretsAPI struct {
	calls int
	err   error
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	version := "current"
	if in.VersionId != nil {
		version = *in.VersionId
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         in.SecretId,
		SecretString: aws.String(`{"signing_secret":"s-` + version + `"}`),
		VersionId:    aws.String(version),
		CreatedDate:  aws.Time(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, nil
}

func TestAWSSecretsManagerAdapter(t *testing.T) {
	api := &fakeSecretsAPI{}
	a := newAWSAdapter(api, DefaultAWSSecretsManagerConfig("us-east-1"), zaptest.NewLogger(t))
	ctx := context.Background()

	s, err := a.GetSecret(ctx, "poynt-sync/webhook#signing_secret")
	require.NoError(t, err)
	assert.Equal(t, "s-current", s.Value)
	assert.Equal(t, "poynt-sync/webhook", s.Metadata["name"])

	_, err = a.GetSecret(ctx, "poynt-sync/webhook#signing_secret")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls, "second read is cached")

	s, err = a.GetSecretVersion(ctx, "poynt-sync/webhook#signing_secret", "v0")
	require.NoError(t, err)
	assert.Equal(t, "s-v0", s.Value)
	assert.Equal(t, 2, api.calls)

	api.err = errors.New("AccessDenied")
	_, err = a.GetSecret(ctx, "other")
	assert.ErrorContains(t, err, "AccessDenied")
}
