package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// localSecretManager implements SecretManagerAdapter using local files.
// Development only; use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a new local filesystem secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret reads basePath/path. Files are either plain text (a PEM key,
// a signing secret) or {"value": ..., "version": ..., "tags": {...}}.
// Versioned reads look for basePath/path.<version>.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	name, field := splitField(secretPath)
	secret, err := m.read(name)
	if err != nil {
		return nil, err
	}
	return selectField(secret, field)
}

// GetSecretVersion reads the versioned file written next to the current one
func (m *localSecretManager) GetSecretVersion(ctx context.Context, secretPath string, version string) (*ports.Secret, error) {
	name, field := splitField(secretPath)
	secret, err := m.read(name + "." + version)
	if err != nil {
		return nil, err
	}
	secret.Version = version
	return selectField(secret, field)
}

func (m *localSecretManager) read(name string) (*ports.Secret, error) {
	filePath := filepath.Join(m.basePath, filepath.Clean("/"+name))

	m.logger.Debug("Reading secret from filesystem", zap.String("path", name))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var doc struct {
		Value   string            `json:"value"`
		Version string            `json:"version"`
		Tags    map[string]string `json:"tags"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Value != "" {
		version := doc.Version
		if version == "" {
			version = "1"
		}
		return &ports.Secret{Value: doc.Value, Version: version, Metadata: doc.Tags}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "1",
	}, nil
}
