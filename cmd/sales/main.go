package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Veraticus/the-sales-must-flow/internal/cli"
	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "📈 Retail sales dashboard",
		Long: `the-sales-must-flow: loads a retail sales CSV and reports per-city revenue,
year-over-year change, and monthly and category breakdowns.

Render once to the terminal, browse interactively, or serve the numbers over HTTP.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/sales/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("data-url", "", "sales CSV location (http(s)://, gs://, file:// or a path)")
	cmd.PersistentFlags().Int("year", 0, "target year for metrics")
	cmd.PersistentFlags().StringSlice("cities", nil, "cities shown in the metric row")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyLoggingLevel, cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLoggingFormat, cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyDashboardDataURL, cmd.PersistentFlags().Lookup("data-url"))
	_ = viper.BindPFlag(config.KeyDashboardYear, cmd.PersistentFlags().Lookup("year"))
	_ = viper.BindPFlag(config.KeyDashboardCities, cmd.PersistentFlags().Lookup("cities"))

	cmd.AddCommand(flowCmd())
	cmd.AddCommand(dashboardCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(cacheCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// A .env file is optional
	_ = godotenv.Load()

	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(dir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables: SALES_DASHBOARD_DATA_URL and friends
	viper.SetEnvPrefix(strings.ToUpper(config.AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := common.SetupLogger(viper.GetString(config.KeyLoggingLevel), viper.GetString(config.KeyLoggingFormat)); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sales version %s\n", version)
			return err
		},
	}
}
