package cmd

import (
	"fmt"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the configured seed keys in the quota backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.Quota.Backend == config.BackendMemory {
			log.Warn("quota backend is memory; seeded keys live only as long as this process")
		}

		gate, closeBackend, err := openGate(cfg, log)
		if err != nil {
			return err
		}
		defer closeBackend()

		if err := seedKeys(cmd.Context(), gate, cfg.Quota.SeedKeys, log); err != nil {
			return fmt.Errorf("seed keys: %w", err)
		}
		log.Info("seed completed", zap.Int("keys", len(cfg.Quota.SeedKeys)))
		return nil
	},
}
