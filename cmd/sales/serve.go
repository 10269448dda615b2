package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/the-sales-must-flow/internal/api"
	"github.com/Veraticus/the-sales-must-flow/internal/cli"
	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/Veraticus/the-sales-must-flow/internal/notify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard aggregates over HTTP",
		Long: `Start a JSON API exposing revenue, breakdowns, and full dashboard snapshots.

When notify.amqp_url is configured, cache invalidations are exchanged with
other replicas over AMQP.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr, :8080)")
	cmd.Flags().Bool("warm", false, "load the data before accepting requests")
	_ = viper.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	interruptHandler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Shutting down API...")
	ctx := interruptHandler.HandleInterrupts(cmd.Context())

	svc, l, err := newDashboard(logger)
	if err != nil {
		return err
	}

	if warm, _ := cmd.Flags().GetBool("warm"); warm {
		if _, err := svc.Table(ctx); err != nil {
			logger.Warn("Initial load failed, serving anyway", "error", err)
		}
	}

	var opts []api.Option
	opts = append(opts, api.WithLogger(logger))

	if nc := config.LoadNotifyConfig(); nc.Enabled() {
		client, err := notify.Connect(ctx, notify.Config{
			URL:      nc.AMQPURL,
			Exchange: nc.Exchange,
			Queue:    nc.Queue,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("Failed to close AMQP client", "error", closeErr)
			}
		}()

		opts = append(opts, api.WithPublisher(client))
		go func() {
			err := client.Consume(ctx, notify.InvalidateHandler(l, logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Invalidation consumer stopped", "error", err)
			}
		}()
	}

	server, err := api.NewServer(svc, l, opts...)
	if err != nil {
		return err
	}

	sc := config.LoadServerConfig()
	return server.ListenAndServe(ctx, api.ServeConfig{
		Addr:            sc.Addr,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		ShutdownTimeout: sc.ShutdownTimeout,
	})
}
