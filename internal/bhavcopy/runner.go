package bhavcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fnopulse/internal/exporter"
	"fnopulse/internal/infrastructure"
	"fnopulse/pkg/contracts/domain"
)

// Downloader fetches one day's bhavcopy. *Client implements it.
type Downloader interface {
	Prime(ctx context.Context) error
	Download(ctx context.Context, date time.Time) (*Download, error)
}

// Options selects what a Run processes.
type Options struct {
	Dates       []time.Time
	Symbol      string
	SummaryOnly bool
}

// DayResult is one processed trading day.
type DayResult struct {
	Date        time.Time
	Format      Format
	Contracts   int
	RawPath     string
	SummaryPath string
	Records     []domain.MarketRecord
}

// DayError records a day that could not be processed.
type DayError struct {
	Date time.Time
	Err  error
}

// Result summarizes a Run. NoData lists holidays; Failed lists days that
// errored for any other reason.
type Result struct {
	Days         []DayResult
	NoData       []time.Time
	Failed       []DayError
	CombinedPath string
}

// Symbols is the number of distinct symbols in the latest processed day.
func (r *Result) Symbols() int {
	if len(r.Days) == 0 {
		return 0
	}
	return len(r.Days[len(r.Days)-1].Records)
}

// Runner downloads a set of days and writes their summaries.
type Runner struct {
	client      Downloader
	exporter    *exporter.SummaryExporter
	concurrency int
	logger      *slog.Logger
}

// NewRunner writes through exp. Downloads run concurrently but share the
// client's rate limiter.
func NewRunner(client Downloader, exp *exporter.SummaryExporter, logger *slog.Logger) *Runner {
	return &Runner{
		client:      client,
		exporter:    exp,
		concurrency: 4,
		logger:      infrastructure.WithComponent(logger, "bhavcopy_runner"),
	}
}

type fetched struct {
	download *Download
	err      error
}

// Run processes opts.Dates in order. A day that fails to download or has
// an unknown layout is recorded and skipped. Context cancellation and
// output errors abort the run.
// The combined summary is written when more than one day succeeded.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	ctx = infrastructure.EnsureRequestID(ctx)
	if err := r.client.Prime(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.WarnContext(ctx, "could not establish exchange session", slog.String("error", err.Error()))
	}

	results := make([]fetched, len(opts.Dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, date := range opts.Dates {
		g.Go(func() error {
			dl, err := r.client.Download(gctx, date)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = fetched{download: dl, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bhavcopy run cancelled: %w", err)
	}

	result := &Result{}
	var all []domain.MarketRecord
	for i, date := range opts.Dates {
		f := results[i]
		switch {
		case errors.Is(f.err, ErrNoData):
			result.NoData = append(result.NoData, date)
			continue
		case f.err != nil:
			r.logger.WarnContext(ctx, "bhavcopy download failed",
				slog.String("date", date.Format(DateLayout)),
				slog.String("error", f.err.Error()))
			result.Failed = append(result.Failed, DayError{Date: date, Err: f.err})
			continue
		}

		day, err := r.process(ctx, f.download, opts)
		if errors.Is(err, ErrMissingColumns) {
			r.logger.WarnContext(ctx, "bhavcopy layout not recognized",
				slog.String("date", date.Format(DateLayout)),
				slog.String("error", err.Error()))
			result.Failed = append(result.Failed, DayError{Date: date, Err: err})
			continue
		}
		if err != nil {
			return result, err
		}
		result.Days = append(result.Days, *day)
		all = append(all, day.Records...)
	}

	if len(result.Days) > 1 {
		path, err := r.exporter.ExportCombined(all)
		if err != nil {
			return result, err
		}
		result.CombinedPath = path
	}

	r.logger.InfoContext(ctx, "bhavcopy run complete",
		slog.Int("requested", len(opts.Dates)),
		slog.Int("processed", len(result.Days)),
		slog.Int("no_data", len(result.NoData)),
		slog.Int("failed", len(result.Failed)),
		slog.Int("symbols", result.Symbols()))
	return result, nil
}

func (r *Runner) process(ctx context.Context, dl *Download, opts Options) (*DayResult, error) {
	label := dl.Date.Format(DateLayout)
	options, column := FilterOptions(dl.Table)
	if column == "" {
		r.logger.WarnContext(ctx, "option type column not detected, keeping all rows",
			slog.String("date", label), slog.Any("columns", dl.Table.Header))
	}
	r.logger.DebugContext(ctx, "filtered option contracts",
		slog.String("date", label),
		slog.String("column", column),
		slog.Int("contracts", options.Len()),
		slog.Int("total", dl.Table.Len()))

	if opts.Symbol != "" {
		options = FilterSymbol(options, opts.Symbol)
	}

	day := &DayResult{Date: dl.Date, Format: dl.Format, Contracts: options.Len()}
	if !opts.SummaryOnly {
		path, err := r.exporter.ExportRaw(dl.Date, options.Header, options.Rows)
		if err != nil {
			return nil, err
		}
		day.RawPath = path
	}

	records, err := Summarize(options, label)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", label, err)
	}
	day.Records = records

	path, err := r.exporter.ExportDay(dl.Date, records)
	if err != nil {
		return nil, err
	}
	day.SummaryPath = path
	return day, nil
}
