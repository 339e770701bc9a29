package app

import (
	"context"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"github.com/kevin07696/poynt-sync-service/internal/adapters/secrets"
	"github.com/kevin07696/poynt-sync-service/internal/config"
	"go.uber.org/zap"
)

// NewSecretManager builds the configured secret backend:
//   - aws: AWS Secrets Manager (AWS_REGION, optional AWS_PROFILE / AWS_SECRETS_ENDPOINT)
//   - vault: HashiCorp Vault KV v2 (VAULT_ADDR, VAULT_AUTH_METHOD)
//   - local: files under LOCAL_SECRETS_PATH, development only
func NewSecretManager(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		if cfg.CacheTTL > 0 {
			awsCfg.CacheTTL = cfg.CacheTTL
		}
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		if cfg.VaultAuth != "" {
			vaultCfg.AuthMethod = cfg.VaultAuth
		}
		vaultCfg.Token = cfg.VaultToken
		vaultCfg.K8sRole = cfg.VaultRole
		vaultCfg.Namespace = cfg.VaultNamespace
		if cfg.VaultMountPath != "" {
			vaultCfg.MountPath = cfg.VaultMountPath
		}
		if cfg.CacheTTL > 0 {
			vaultCfg.CacheTTL = cfg.CacheTTL
		}
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "local":
		logger.Warn("Using LOCAL secret manager - NOT for production use!",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalSecretManager(cfg.LocalPath, logger), nil

	default:
		return nil, fmt.Errorf("unknown secret manager %q", cfg.Backend)
	}
}
