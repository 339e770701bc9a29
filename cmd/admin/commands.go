package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kevin07696/poynt-sync-service/internal/app"
	"github.com/kevin07696/poynt-sync-service/internal/config"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	keys "github.com/kevin07696/poynt-sync-service/pkg/crypto"
)

// Flags resolve flag > POYNT_ADMIN_* env > default through viper.
const envPrefix = "POYNT_ADMIN"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "poynt-admin",
		Short:         "Operate the Poynt sync service: replay deliveries, retry syncs, inspect orders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment")
	root.PersistentFlags().Duration("timeout", 2*time.Minute, "overall command timeout")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(replayCmd(v))
	root.AddCommand(resyncCmd(v))
	root.AddCommand(orderCmd(v))
	root.AddCommand(keygenCmd())
	return root
}

func replayCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <delivery-id>",
		Short: "Re-dispatch a journaled webhook delivery without signature verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, a *app.App) error {
				receipt, err := a.Webhooks.Replay(ctx, args[0])
				if err != nil {
					return fmt.Errorf("replay %s: %w", args[0], err)
				}
				return printJSON(cmd.OutOrStdout(), receipt)
			})
		},
	}
}

func resyncCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Retry journaled outbound sync failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := v.GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return withApp(cmd, v, func(ctx context.Context, a *app.App) error {
				report, err := a.Hooks.Resync(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().Int("limit", 50, "maximum failures to retry")
	_ = v.BindPFlag("limit", cmd.Flags().Lookup("limit"))
	return cmd
}

// orderView is the printed shape of an order and its refunds
type orderView struct {
	Order   *domain.Order    `json:"order"`
	Refunds []*domain.Refund `json:"refunds"`
}

func orderCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "Print a local order with its provider metadata and refunds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, v, func(ctx context.Context, a *app.App) error {
				order, err := a.Orders.GetOrder(ctx, nil, id)
				if err != nil {
					return err
				}
				refunds, err := a.Refunds.ListRefunds(ctx, nil, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), orderView{Order: order, Refunds: refunds})
			})
		},
	}
}

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a Poynt application key pair; prints the public key to register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			kp, err := keys.GenerateRSAKeyPair()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, []byte(kp.PrivateKeyPEM), 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private key written to %s\nfingerprint: %s\n\n%s", out, kp.Fingerprint, kp.PublicKeyPEM)
			return nil
		},
	}
	cmd.Flags().String("out", "poynt-private-key.pem", "path for the private key file")
	return cmd
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", s)
	}
	return id, nil
}

// withApp loads configuration, wires the service graph and runs fn under
// the command timeout.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(v.GetString("env-file"))
	if err != nil {
		return err
	}

	logger, err := app.NewLogger("production", v.GetString("log-level"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize service", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
