package cmd

import (
	"fmt"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newKeysCmd returns the parent "keys" command.
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysCreateCmd())
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var tierFlag string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new API key and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := model.ParseTier(tierFlag)
			if !ok {
				return fmt.Errorf("unknown tier %q (want free or pro)", tierFlag)
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Quota.Backend == config.BackendMemory {
				log.Warn("quota backend is memory; the key will not survive this process")
			}

			gate, closeBackend, err := openGate(cfg, log)
			if err != nil {
				return err
			}
			defer closeBackend()

			key, err := gate.Register(cmd.Context(), tier)
			if err != nil {
				return err
			}
			log.Info("key registered", zap.String("tier", tier.String()))

			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&tierFlag, "tier", string(model.TierFree), "key tier: free or pro")
	return cmd
}
