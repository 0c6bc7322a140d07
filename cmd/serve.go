package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthost/agenthost-mini/internal/agent"
	httpSrv "github.com/agenthost/agenthost-mini/internal/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gate, closeBackend, err := openGate(cfg, log)
		if err != nil {
			return err
		}
		defer closeBackend()

		if err := seedKeys(cmd.Context(), gate, cfg.Quota.SeedKeys, log); err != nil {
			return fmt.Errorf("seed keys: %w", err)
		}

		client := agent.NewClient(agent.Config{
			Endpoint:      cfg.Agent.Endpoint,
			Token:         cfg.Agent.Token,
			SessionKey:    cfg.Agent.SessionKey,
			AgentID:       cfg.Agent.AgentID,
			Timeout:       cfg.Agent.Timeout,
			FailThreshold: cfg.Agent.Breaker.FailThreshold,
			OpenFor:       cfg.Agent.Breaker.OpenFor,
		})

		server := httpSrv.NewServer(cfg, gate, client, log)

		addr := cfg.ListenAddr()
		log.Info("agenthost-mini starting",
			zap.String("addr", addr),
			zap.String("mode", cfg.Mode),
			zap.String("agent_endpoint", cfg.Agent.Endpoint),
			zap.Bool("agent_token", cfg.Agent.Token != ""),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server exited", zap.Error(err))
				return err
			}
		}

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Shutdown(ctx)
	},
}
