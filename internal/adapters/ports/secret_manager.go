package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (webhook signing secret, PEM key)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter retrieves secrets from a secret management service.
// Backends: AWS Secrets Manager, HashiCorp Vault, local files.
// Implementations cache with a TTL.
type SecretManagerAdapter interface {
	// GetSecret retrieves the current version of a secret by path.
	// Path format depends on implementation:
	//   - AWS: "poynt-sync/webhook-secret"
	//   - Vault: "secret/data/poynt-sync/webhook"
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// GetSecretVersion retrieves a specific version of a secret.
	// The webhook validator uses it to accept the previous signing secret during rotation.
	GetSecretVersion(ctx context.Context, path string, version string) (*Secret, error)
}
