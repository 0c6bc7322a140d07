package cmd

import (
	"fmt"
	"os"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "agenthost-mini",
		Short: "AgentHost Mini research relay",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		SilenceUsage: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before config")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(newKeysCmd())
}
