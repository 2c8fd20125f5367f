package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fnopulse/internal/config"
	"fnopulse/internal/dataprocessing"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/infrastructure"
	"fnopulse/pkg/contracts/domain"
)

// State is the lifecycle of the loaded dataset.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// dataset is one immutable load result. Reload swaps the pointer.
type dataset struct {
	index     *dataprocessing.Index
	read      dataprocessing.ReadStats
	normalize dataprocessing.NormalizeStats
	loadedAt  time.Time
	attempts  int
}

// DatasetStatus is the load state exposed to health checks.
type DatasetStatus struct {
	State    State     `json:"state"`
	Source   string    `json:"source"`
	Location string    `json:"location"`
	Records  int       `json:"records"`
	Dates    int       `json:"dates"`
	Symbols  int       `json:"symbols"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
	// RetryAfter hints how long a client should wait while loading.
	RetryAfter time.Duration `json:"-"`
}

// DatesResult lists every trading date and the latest one.
type DatesResult struct {
	Dates  []string `json:"dates"`
	Latest string   `json:"latest"`
}

// Diagnostics reports data-quality counters for the loaded file.
type Diagnostics struct {
	Source    string                        `json:"source"`
	Location  string                        `json:"location"`
	LoadedAt  time.Time                     `json:"loaded_at"`
	Records   int                           `json:"records"`
	Read      dataprocessing.ReadStats      `json:"read"`
	Normalize dataprocessing.NormalizeStats `json:"normalize"`
	Coerced   int                           `json:"coerced_total"`
}

// DatasetService loads the options summary once and answers queries
// against the in-memory index.
type DatasetService struct {
	source      Source
	retry       config.RetryConfig
	loadTimeout time.Duration
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	state     State
	current   *dataset
	lastErr   error
	listeners []StatusListener

	// wait is swapped in tests to avoid real backoff sleeps.
	wait func(ctx context.Context, d time.Duration) error
}

// NewDatasetService creates a service in the loading state. Call Load to
// populate it. metrics may be nil.
func NewDatasetService(source Source, cfg config.DataConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetService {
	retry := cfg.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.Multiplier < 1 {
		retry.Multiplier = 1
	}
	return &DatasetService{
		source:      source,
		retry:       retry,
		loadTimeout: cfg.LoadTimeout,
		metrics:     metrics,
		logger:      infrastructure.WithComponent(logger, "dataset_service"),
		state:       StateLoading,
		wait:        sleepContext,
	}
}

// Load populates the dataset unless it is already ready. Concurrent calls
// share one fetch.
func (s *DatasetService) Load(ctx context.Context) error {
	s.mu.RLock()
	ready := s.state == StateReady
	s.mu.RUnlock()
	if ready {
		return nil
	}
	return s.refresh(ctx)
}

// Reload fetches the source again and swaps the whole dataset in one step.
// A failed reload keeps serving the previous dataset.
func (s *DatasetService) Reload(ctx context.Context) error {
	return s.refresh(ctx)
}

// StatusListener receives the dataset status after a load attempt.
type StatusListener func(DatasetStatus)

// Subscribe registers fn to be called after every load and reload,
// successful or not. fn runs on the loading goroutine and must not block.
func (s *DatasetService) Subscribe(fn StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *DatasetService) notify() {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	status := s.Status()
	for _, fn := range listeners {
		fn(status)
	}
}

func (s *DatasetService) refresh(ctx context.Context) error {
	_, err, shared := s.group.Do("load", func() (interface{}, error) {
		err := s.load(ctx)
		s.notify()
		return nil, err
	})
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight dataset load")
	}
	return err
}

func (s *DatasetService) load(ctx context.Context) error {
	start := time.Now()
	s.logger.InfoContext(ctx, "loading dataset",
		slog.String("source", s.source.Kind()),
		slog.String("location", s.source.Location()))

	ds, err := s.loadWithRetry(ctx)
	duration := time.Since(start)

	records, coerced, attempts := 0, 0, s.retry.MaxAttempts
	if ds != nil {
		records = ds.index.Len()
		coerced = ds.normalize.TotalCoerced()
		attempts = ds.attempts
	}
	infrastructure.RecordDatasetLoad(ctx, s.metrics, s.source.Kind(), attempts, records, coerced, duration, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = err
		if s.current == nil {
			s.state = StateFailed
		}
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("error", err.Error()),
			slog.Bool("serving_previous", s.current != nil),
			slog.Duration("duration", duration))
		return err
	}

	s.current = ds
	s.state = StateReady
	s.lastErr = nil
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.Int("records", records),
		slog.Int("dates", len(ds.index.Dates())),
		slog.Int("symbols", len(ds.index.Symbols())),
		slog.Int("coerced", coerced),
		slog.Int("attempts", ds.attempts),
		slog.Duration("duration", duration))
	return nil
}

// loadWithRetry retries with exponential backoff. Malformed files and
// cancellation are not retried.
func (s *DatasetService) loadWithRetry(ctx context.Context) (*dataset, error) {
	delay := s.retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		ds, err := s.loadOnce(ctx)
		if err == nil {
			ds.attempts = attempt
			return ds, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			break
		}
		if attempt == s.retry.MaxAttempts {
			break
		}

		s.logger.WarnContext(ctx, "dataset load attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := s.wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("dataset load cancelled after %d attempts: %w", attempt, err)
		}
		delay = time.Duration(float64(delay) * s.retry.Multiplier)
		if s.retry.MaxDelay > 0 && delay > s.retry.MaxDelay {
			delay = s.retry.MaxDelay
		}
	}

	return nil, fmt.Errorf("dataset load failed: %w", lastErr)
}

// retryable reports whether err could clear on another attempt. Content
// errors in the file itself cannot.
func retryable(err error) bool {
	var parseErr *csv.ParseError
	switch {
	case errors.Is(err, dataprocessing.ErrNoHeader),
		errors.Is(err, ErrHeaderMismatch),
		errors.As(err, &parseErr):
		return false
	}
	return true
}

func (s *DatasetService) loadOnce(ctx context.Context) (*dataset, error) {
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	rc, err := s.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, readStats, err := dataprocessing.ReadRows(rc)
	if err != nil {
		if !retryable(err) {
			return nil, apperrors.NewParsingError("read dataset", err)
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	normalizer := dataprocessing.NewNormalizer(s.logger)
	records := normalizer.NormalizeAll(rows)

	return &dataset{
		index:     dataprocessing.NewIndex(records),
		read:      readStats,
		normalize: normalizer.Stats(),
		loadedAt:  time.Now(),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status reports the lifecycle state. It never fails.
func (s *DatasetService) Status() DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := DatasetStatus{
		State:    s.state,
		Source:   s.source.Kind(),
		Location: s.source.Location(),
	}
	if s.current != nil {
		status.Records = s.current.index.Len()
		status.Dates = len(s.current.index.Dates())
		status.Symbols = len(s.current.index.Symbols())
		status.LoadedAt = s.current.loadedAt
		status.Attempts = s.current.attempts
	}
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	if s.state == StateLoading {
		status.RetryAfter = s.retry.InitialDelay
		if status.RetryAfter < time.Second {
			status.RetryAfter = time.Second
		}
	}
	return status
}

// snapshot returns the ready dataset or a NotReadyError.
func (s *DatasetService) snapshot() (*dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil, &NotReadyError{State: s.state, Cause: s.lastErr}
	}
	return s.current, nil
}

// Dates lists every trading date in ascending order.
func (s *DatasetService) Dates(ctx context.Context) (DatesResult, error) {
	ds, err := s.snapshot()
	if err != nil {
		return DatesResult{}, err
	}
	latest, _ := ds.index.LatestDate()
	return DatesResult{Dates: ds.index.Dates(), Latest: latest}, nil
}

// Symbols lists every symbol in ascending order.
func (s *DatasetService) Symbols(ctx context.Context) ([]string, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return ds.index.Symbols(), nil
}

// Snapshot returns the records for date. "" and "latest" select the latest
// date; an unknown date yields an empty snapshot.
func (s *DatasetService) Snapshot(ctx context.Context, date string) (domain.Snapshot, error) {
	ds, err := s.snapshot()
	if err != nil {
		return domain.Snapshot{}, err
	}
	resolved, _ := ds.index.ResolveDate(date)
	return domain.Snapshot{Date: resolved, Records: ds.index.RecordsOn(resolved)}, nil
}

// Summary returns the aggregates for date.
func (s *DatasetService) Summary(ctx context.Context, date string) (*domain.DerivedSnapshot, error) {
	snap, err := s.Snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	return dataprocessing.Summarize(snap.Date, snap.Records), nil
}

// History returns every record for symbol in date order.
func (s *DatasetService) History(ctx context.Context, symbol string) ([]domain.MarketRecord, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return ds.index.History(symbol), nil
}

// Detail builds the per-symbol view as of date.
func (s *DatasetService) Detail(ctx context.Context, symbol, date string) (*dataprocessing.SymbolDetail, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	resolved, _ := ds.index.ResolveDate(date)
	return dataprocessing.BuildDetail(symbol, resolved, ds.index.History(symbol)), nil
}

// Record returns symbol's record on date, or nil when it did not trade that
// day.
func (s *DatasetService) Record(ctx context.Context, symbol, date string) (*domain.MarketRecord, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	resolved, _ := ds.index.ResolveDate(date)
	rec, ok := ds.index.Lookup(resolved, symbol)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Table returns the filtered and sorted rows for date.
func (s *DatasetService) Table(ctx context.Context, date string, q dataprocessing.TableQuery) (domain.Snapshot, error) {
	snap, err := s.Snapshot(ctx, date)
	if err != nil {
		return domain.Snapshot{}, err
	}
	rows, err := dataprocessing.Table(snap.Records, q)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return domain.Snapshot{Date: snap.Date, Records: rows}, nil
}

// Diagnostics reports what the reader and normalizer repaired.
func (s *DatasetService) Diagnostics(ctx context.Context) (Diagnostics, error) {
	ds, err := s.snapshot()
	if err != nil {
		return Diagnostics{}, err
	}
	return Diagnostics{
		Source:    s.source.Kind(),
		Location:  s.source.Location(),
		LoadedAt:  ds.loadedAt,
		Records:   ds.index.Len(),
		Read:      ds.read,
		Normalize: ds.normalize,
		Coerced:   ds.normalize.TotalCoerced(),
	}, nil
}
