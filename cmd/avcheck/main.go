// avcheck bulk-verifies voter records against the registration lookup
// service and writes out the voters whose absentee-ballot application has
// been received. Orchestration only; the search logic lives in
// internal/scan.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"avcheck/internal/lookup"
	"avcheck/internal/platform/config"
	"avcheck/internal/platform/httpserver"
	"avcheck/internal/platform/logger"
	"avcheck/internal/platform/metrics"
	"avcheck/internal/roster"
	"avcheck/internal/scan"
	"avcheck/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "avcheck",
		Short:         "Bulk-verify voter registration and absentee-ballot status",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScanCmd())
	return root
}

func newScanCmd() *cobra.Command {
	cfg := config.FromEnv()
	var inPath, outPath string
	var retryDelaySeconds int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Resolve birth months and collect voters with recorded AV applications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if retryDelaySeconds > 0 {
				cfg.RetryDelay = time.Duration(retryDelaySeconds) * time.Second
			}
			return runScan(cmd.Context(), cfg, inPath, outPath)
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "older_registered_voters.txt", "Input roster file")
	cmd.Flags().StringVar(&outPath, "out", "voters_with_absentee_ballots.txt", "Output ballots file")
	cmd.Flags().StringVar(&cfg.LookupURL, "url", cfg.LookupURL, "Lookup service URL")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Max in-flight lookup requests")
	cmd.Flags().IntVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "Attempts per request before giving up")
	cmd.Flags().IntVar(&retryDelaySeconds, "retry-delay-seconds", 0, "Delay between attempts (overrides env)")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics and /healthz on this address (empty disables)")
	cmd.Flags().StringVar(&cfg.PostgresDSN, "pg-dsn", cfg.PostgresDSN, "Also record target voters in this PostgreSQL database (empty disables)")

	return cmd
}

func runScan(ctx context.Context, cfg config.Scan, inPath, outPath string) error {
	log := logger.New()
	m := metrics.New()

	voters, err := roster.ReadFile(inPath)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "roster loaded", "path", inPath, "voters", len(voters))

	if cfg.MetricsAddr != "" {
		srv := httpserver.New(cfg.MetricsAddr, httpserver.MetricsRouter())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.ErrorContext(ctx, "metrics server error", "error", err)
			}
		}()
		defer srv.Close()
		log.InfoContext(ctx, "serving metrics", "addr", cfg.MetricsAddr)
	}

	client, err := lookup.New(cfg.LookupURL,
		lookup.WithConcurrency(cfg.Concurrency),
		lookup.WithRetry(cfg.RetryMax, cfg.RetryDelay),
		lookup.WithLogger(log),
		lookup.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	svc, err := scan.New(client, scan.WithLogger(log), scan.WithMetrics(m))
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, voters)
	if err != nil {
		return err
	}

	if err := roster.WriteFile(outPath, result.Target); err != nil {
		return err
	}
	log.InfoContext(ctx, "ballots file written", "path", outPath, "voters", len(result.Target))

	for _, v := range result.Unresolved {
		fmt.Fprintf(os.Stderr, "unresolved: %s\n", v)
	}

	if cfg.PostgresDSN != "" {
		sink, err := postgres.NewSink(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.Record(ctx, result.Target); err != nil {
			return err
		}
		log.InfoContext(ctx, "results recorded in postgres", "voters", len(result.Target))
	}
	return nil
}
