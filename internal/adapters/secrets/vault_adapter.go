package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string

	Token string

	// AppRole credentials
	RoleID   string
	SecretID string

	// Kubernetes service account token path and role
	K8sTokenPath string
	K8sRole      string

	// Vault Enterprise namespace
	Namespace string

	// KV v2 mount path (default: "secret")
	MountPath string

	CacheTTL    time.Duration
	EnableCache bool

	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for Vault adapter
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:      address,
		AuthMethod:   "token",
		MountPath:    "secret",
		K8sTokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
		CacheTTL:     5 * time.Minute,
		EnableCache:  true,
	}
}

// vaultAdapter implements ports.SecretManagerAdapter over the Vault KV v2 engine.
// Secrets are stored under a "value" key; "path#field" selects another key.
type vaultAdapter struct {
	kv     *vault.KVv2
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
	)

	return &vaultAdapter{
		kv:     client.KVv2(cfg.MountPath),
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	var loginPath string
	data := map[string]interface{}{}

	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return errors.New("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return errors.New("role_id and secret_id are required for AppRole auth")
		}
		loginPath = "auth/approle/login"
		data["role_id"] = cfg.RoleID
		data["secret_id"] = cfg.SecretID

	case "kubernetes":
		if cfg.K8sRole == "" {
			return errors.New("k8s_role is required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read service account token: %w", err)
		}
		loginPath = "auth/kubernetes/login"
		data["jwt"] = string(jwt)
		data["role"] = cfg.K8sRole

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}

	resp, err := client.Logical().WriteWithContext(ctx, loginPath, data)
	if err != nil {
		return fmt.Errorf("%s login failed: %w", cfg.AuthMethod, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s login returned no auth info", cfg.AuthMethod)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret retrieves the latest version of a secret
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	name, field := splitField(path)
	kvSecret, err := a.kv.Get(ctx, name)
	if err != nil {
		a.logger.Error("Failed to retrieve secret from Vault",
			zap.String("path", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret %s from Vault: %w", name, err)
	}

	secret, err := fromKVSecret(kvSecret, field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	a.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion retrieves a specific KV v2 version of a secret
func (a *vaultAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	v, err := strconv.Atoi(version)
	if err != nil {
		return nil, fmt.Errorf("invalid Vault secret version %q: %w", version, err)
	}

	name, field := splitField(path)
	kvSecret, err := a.kv.GetVersion(ctx, name, v)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s version %d: %w", name, v, err)
	}
	return fromKVSecret(kvSecret, field)
}

func fromKVSecret(kvSecret *vault.KVSecret, field string) (*ports.Secret, error) {
	if kvSecret == nil || kvSecret.Data == nil {
		return nil, errors.New("secret not found")
	}
	if field == "" {
		field = "value"
	}
	value, ok := kvSecret.Data[field].(string)
	if !ok || value == "" {
		return nil, fmt.Errorf("field %q is empty or not a string", field)
	}

	secret := &ports.Secret{Value: value, Metadata: make(map[string]string)}
	if md := kvSecret.VersionMetadata; md != nil {
		secret.Version = strconv.Itoa(md.Version)
		secret.CreatedAt = md.CreatedTime.Format(time.RFC3339)
	}
	for k, v := range kvSecret.CustomMetadata {
		if s, ok := v.(string); ok {
			secret.Metadata[k] = s
		}
	}
	return secret, nil
}
