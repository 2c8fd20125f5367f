// Command bhavcopy downloads NSE F&O bhavcopy archives and writes the
// per-symbol option summaries the dashboard API serves.
//
//	bhavcopy                              last trading day
//	bhavcopy -date 2024-07-10             one day
//	bhavcopy -from 2024-07-01 -to 2024-07-05 -symbol NIFTY
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fnopulse/internal/bhavcopy"
	"fnopulse/internal/config"
	"fnopulse/internal/exporter"
	"fnopulse/internal/infrastructure"
	"fnopulse/pkg/contracts"
)

type cliOptions struct {
	date        string
	from        string
	to          string
	symbol      string
	out         string
	summaryOnly bool
	config      string
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("bhavcopy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &cliOptions{}
	fs.StringVar(&opts.date, "date", "", "date (YYYY-MM-DD); defaults to the last trading day")
	fs.StringVar(&opts.from, "from", "", "range start (YYYY-MM-DD), used with -to")
	fs.StringVar(&opts.to, "to", "", "range end (YYYY-MM-DD), used with -from")
	fs.StringVar(&opts.symbol, "symbol", "", "keep only this underlying")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to bhavcopy.output_dir)")
	fs.BoolVar(&opts.summaryOnly, "summary-only", false, "skip the raw option contract files")
	fs.StringVar(&opts.config, "config", "", "config file (defaults to config.yaml next to the executable)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if (opts.from == "") != (opts.to == "") {
		return nil, errors.New("-from and -to must be given together")
	}
	if opts.from != "" && opts.date != "" {
		return nil, errors.New("-date cannot be combined with -from/-to")
	}
	opts.symbol = strings.ToUpper(strings.TrimSpace(opts.symbol))
	return opts, nil
}

// dates resolves the requested trading days. now is only used when no
// date was given.
func (o *cliOptions) dates(now time.Time) ([]time.Time, error) {
	switch {
	case o.from != "":
		from, err := bhavcopy.ParseDate(o.from)
		if err != nil {
			return nil, err
		}
		to, err := bhavcopy.ParseDate(o.to)
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, fmt.Errorf("-to %s is before -from %s", o.to, o.from)
		}
		days := bhavcopy.TradingDays(from, to)
		if len(days) == 0 {
			return nil, fmt.Errorf("no weekdays between %s and %s", o.from, o.to)
		}
		return days, nil
	case o.date != "":
		d, err := bhavcopy.ParseDate(o.date)
		if err != nil {
			return nil, err
		}
		return []time.Time{d}, nil
	default:
		return []time.Time{bhavcopy.LastTradingDay(now)}, nil
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, opts *cliOptions, stdout io.Writer) error {
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.out != "" {
		cfg.Bhavcopy.OutputDir = opts.out
	}
	// A one-shot run has nothing to scrape metrics from.
	cfg.Telemetry.MetricsEnabled = false

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	dates, err := opts.dates(time.Now())
	if err != nil {
		return err
	}

	client, err := bhavcopy.NewClient(cfg.Bhavcopy, metrics, logger)
	if err != nil {
		return err
	}
	summaries := exporter.NewSummaryExporter(exporter.NewCSVWriter(cfg.Bhavcopy.OutputDir, logger))
	runner := bhavcopy.NewRunner(client, summaries, logger)

	fmt.Fprintf(stdout, "%s\n", contracts.GetVersionString())
	fmt.Fprintf(stdout, "Dates to process: %d\n", len(dates))
	fmt.Fprintf(stdout, "Output directory: %s\n\n", cfg.Bhavcopy.OutputDir)

	result, err := runner.Run(ctx, bhavcopy.Options{
		Dates:       dates,
		Symbol:      opts.symbol,
		SummaryOnly: opts.summaryOnly,
	})
	if result != nil {
		printResult(stdout, result)
	}
	if err != nil {
		return err
	}
	if len(result.Days) == 0 {
		return errors.New("no bhavcopy data was processed")
	}
	return nil
}

func printResult(w io.Writer, result *bhavcopy.Result) {
	for _, day := range result.Days {
		fmt.Fprintf(w, "%s  %-6s  %6d contracts  %4d symbols  %s\n",
			day.Date.Format(bhavcopy.DateLayout), day.Format, day.Contracts, len(day.Records), day.SummaryPath)
	}
	for _, d := range result.NoData {
		fmt.Fprintf(w, "%s  no data (holiday?)\n", d.Format(bhavcopy.DateLayout))
	}
	for _, f := range result.Failed {
		fmt.Fprintf(w, "%s  failed: %v\n", f.Date.Format(bhavcopy.DateLayout), f.Err)
	}
	if result.CombinedPath != "" {
		fmt.Fprintf(w, "\nCombined summary: %s\n", result.CombinedPath)
	}
	if len(result.Days) > 0 {
		fmt.Fprintf(w, "Total unique symbols: %d\n", result.Symbols())
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("bhavcopy failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}
