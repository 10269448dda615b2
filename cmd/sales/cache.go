package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/cli"
	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/Veraticus/the-sales-must-flow/internal/loader"
	"github.com/Veraticus/the-sales-must-flow/internal/notify"
	"github.com/spf13/cobra"
)

const apiTimeout = 15 * time.Second

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate a running server's data cache",
	}
	cmd.PersistentFlags().String("server", "", "base URL of a running 'sales serve' (e.g. http://localhost:8080)")

	cmd.AddCommand(&cobra.Command{
		Use:   "invalidate [source-url]",
		Short: "Drop a cached table, or every cached table when no URL is given",
		Long: `Drop cached tables so the next request reloads the data.

With --server the request goes to that API. Otherwise the invalidation is
broadcast over AMQP to every replica listening on notify.exchange.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCacheInvalidate,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entries and hit counts of a running server",
		Args:  cobra.NoArgs,
		RunE:  runCacheStats,
	})
	return cmd
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sourceURL := ""
	if len(args) == 1 {
		sourceURL = strings.TrimSpace(args[0])
	}
	scope := "all sources"
	if sourceURL != "" {
		scope = sourceURL
	}

	server, _ := cmd.Flags().GetString("server")
	switch nc := config.LoadNotifyConfig(); {
	case server != "":
		body, err := json.Marshal(map[string]string{"source_url": sourceURL})
		if err != nil {
			return err
		}
		if err := callAPI(ctx, http.MethodPost, server, "/api/v1/cache/invalidate", bytes.NewReader(body), nil); err != nil {
			return err
		}
	case nc.Enabled():
		client, err := notify.Connect(ctx, notify.Config{URL: nc.AMQPURL, Exchange: nc.Exchange, Queue: nc.Queue}, slog.Default())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		if err := client.PublishInvalidation(ctx, sourceURL); err != nil {
			return err
		}
	default:
		return common.NewUserError("nowhere to send the invalidation: pass --server or set notify.amqp_url", nil)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Invalidated "+scope))
	return err
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		return common.NewUserError("--server is required", nil)
	}

	var stats loader.Stats
	if err := callAPI(cmd.Context(), http.MethodGet, server, "/api/v1/cache", nil, &stats); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%s\nFetches: %d  Hits: %d\n",
		cli.FormatTitle("Cache"), stats.Fetches, stats.Hits); err != nil {
		return err
	}
	if len(stats.Entries) == 0 {
		_, err := fmt.Fprintln(out, cli.SubtleStyle.Render("No cached tables"))
		return err
	}
	for _, e := range stats.Entries {
		if _, err := fmt.Fprintf(out, "  %s  %d rows  loaded %s\n",
			e.Source, e.Rows, e.LoadedAt.Local().Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
	}
	return nil
}

// callAPI sends one request to a running server and decodes a JSON response into out.
func callAPI(ctx context.Context, method, server, path string, body io.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(server, "/")+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", server, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
