package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmadzakiakmal/shiptrack/export"
	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/server"
	"github.com/ahmadzakiakmal/shiptrack/shipclient"
	"github.com/ahmadzakiakmal/shiptrack/srvreg"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the shipment intake HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			logger.Info("Configuration loaded",
				"node_id", cfg.NodeID,
				"http_port", cfg.HTTPPort,
				"dialect", cfg.Database.Dialect,
				"drafts_dir", cfg.Drafts.Dir,
				"shipments_endpoint", cfg.Shipments.Endpoint,
			)

			st, err := openStack(cfg, logger, true)
			if err != nil {
				return err
			}
			defer st.Close()

			if client, ok := st.submitter.(*shipclient.Client); ok {
				checkCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Shipments.Timeout)
				if err := client.HealthCheck(checkCtx); err != nil {
					logger.Error("Shipment service health check failed; finalize will fail until it is reachable", "err", err)
				} else {
					logger.Info("Shipment service connection verified", "endpoint", client.Endpoint())
				}
				cancel()
			}

			svc, err := intake.NewService(st.submitter, st.drafts, cfg.Render, export.NewPipeline(), logger.With("module", "intake"))
			if err != nil {
				return err
			}

			serviceRegistry := srvreg.NewServiceRegistry(svc, st.local, st.repo, cfg.NodeID, logger.With("module", "srvreg"))
			serviceRegistry.RegisterDefaultServices()

			webServer := server.NewWebServer(cfg.HTTPPort, serviceRegistry, cfg.NodeID, logger.With("module", "server"))
			if err := webServer.Start(); err != nil {
				return fmt.Errorf("failed to start web server: %w", err)
			}
			logger.Info("Shipment intake node ready", "node_id", cfg.NodeID, "url", fmt.Sprintf("http://localhost:%s", cfg.HTTPPort))

			// Wait for interrupt signal to gracefully shut down
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)
			select {
			case <-quit:
				logger.Info("Shutdown signal received, gracefully shutting down")
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := webServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during server shutdown", "err", err)
			}
			logger.Info("Shipment intake node stopped")
			return nil
		},
	}
}
