package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnopulse/internal/config"
	"fnopulse/internal/dataprocessing"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/shared/testutil"
	"fnopulse/pkg/contracts/domain"
)

const sampleCSV = `Date,Symbol,CE_Volume,PE_Volume,CE_OI,PE_OI,CE_OI_Change,PE_OI_Change,CE_Turnover,PE_Turnover,CE_Contracts,PE_Contracts,PCR_OI,PCR_Volume
2024-01-01,NIFTY,1000,800,5000,6000,100,200,10000000,8000000,10,8,1.2,0.8
2024-01-01,RELIANCE,500,200,3000,1500,-50,20,5000000,2000000,5,2,0.5,0.4
2024-01-02,NIFTY,1200,1500,5500,7000,500,1000,12000000,15000000,12,15,1.273,1.25
2024-01-02,RELIANCE,abc,300,3100,1600,100,100,6000000,3000000,6,3,,0.5
`

const laterCSV = `Date,Symbol,CE_Volume,PE_Volume,CE_OI,PE_OI,CE_OI_Change,PE_OI_Change,CE_Turnover,PE_Turnover,CE_Contracts,PE_Contracts,PCR_OI,PCR_Volume
2024-01-03,TCS,10,20,30,40,0,0,1,2,1,2,1.333,2
`

func testDataConfig() config.DataConfig {
	return config.DataConfig{
		LoadTimeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     15 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// recordWaits replaces backoff sleeps with a recorder.
func recordWaits(svc *DatasetService) *[]time.Duration {
	var waits []time.Duration
	svc.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func newLoadedService(t *testing.T) *DatasetService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDatasetService(&FileSource{Path: writeDataset(t, sampleCSV)}, testDataConfig(), nil, logger)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestDatasetService_NotReadyBeforeLoad(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDatasetService(&FileSource{Path: "unused.csv"}, testDataConfig(), nil, logger)
	ctx := context.Background()

	status := svc.Status()
	assert.Equal(t, StateLoading, status.State)
	assert.Equal(t, time.Second, status.RetryAfter)

	queries := map[string]func() error{
		"dates":       func() error { _, err := svc.Dates(ctx); return err },
		"symbols":     func() error { _, err := svc.Symbols(ctx); return err },
		"snapshot":    func() error { _, err := svc.Snapshot(ctx, ""); return err },
		"summary":     func() error { _, err := svc.Summary(ctx, ""); return err },
		"history":     func() error { _, err := svc.History(ctx, "NIFTY"); return err },
		"detail":      func() error { _, err := svc.Detail(ctx, "NIFTY", ""); return err },
		"record":      func() error { _, err := svc.Record(ctx, "NIFTY", ""); return err },
		"table":       func() error { _, err := svc.Table(ctx, "", dataprocessing.TableQuery{}); return err },
		"diagnostics": func() error { _, err := svc.Diagnostics(ctx); return err },
	}
	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			err := query()
			require.ErrorIs(t, err, ErrDatasetNotReady)

			var notReady *NotReadyError
			require.True(t, errors.As(err, &notReady))
			assert.Equal(t, StateLoading, notReady.State)
		})
	}
}

func TestDatasetService_Queries(t *testing.T) {
	svc := newLoadedService(t)
	ctx := context.Background()

	status := svc.Status()
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, 4, status.Records)
	assert.Equal(t, 2, status.Dates)
	assert.Equal(t, 2, status.Symbols)
	assert.Equal(t, 1, status.Attempts)
	assert.Equal(t, "file", status.Source)

	dates, err := svc.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates.Dates)
	assert.Equal(t, "2024-01-02", dates.Latest)

	symbols, err := svc.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NIFTY", "RELIANCE"}, symbols)

	t.Run("snapshot defaults to latest", func(t *testing.T) {
		snap, err := svc.Snapshot(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-02", snap.Date)
		require.Len(t, snap.Records, 2)
		assert.Equal(t, int64(0), snap.Records[1].CEVolume, "unparsable volume coerced to zero")
		assert.Nil(t, snap.Records[1].PCROpenInterest)
	})

	t.Run("unknown date is empty", func(t *testing.T) {
		snap, err := svc.Snapshot(ctx, "2023-12-29")
		require.NoError(t, err)
		assert.Equal(t, "2023-12-29", snap.Date)
		assert.Empty(t, snap.Records)
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := svc.Summary(ctx, "2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.BullishCount)
		assert.Equal(t, 1, summary.NeutralCount)
		assert.Equal(t, int64(1500), summary.TotalCEVolume)
	})

	t.Run("summary of unknown date is absent", func(t *testing.T) {
		summary, err := svc.Summary(ctx, "2023-12-29")
		require.NoError(t, err)
		assert.Nil(t, summary)
	})

	t.Run("history", func(t *testing.T) {
		history, err := svc.History(ctx, "NIFTY")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "2024-01-01", history[0].Date)

		none, err := svc.History(ctx, "TCS")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("detail", func(t *testing.T) {
		detail, err := svc.Detail(ctx, "NIFTY", "latest")
		require.NoError(t, err)
		assert.Equal(t, 2, detail.HistoryDays)
		assert.Equal(t, "2024-01-02", detail.ActiveDate)

		unknown, err := svc.Detail(ctx, "TCS", "")
		require.NoError(t, err)
		assert.Equal(t, 0, unknown.HistoryDays)
	})

	t.Run("record", func(t *testing.T) {
		rec, err := svc.Record(ctx, "NIFTY", "2024-01-01")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "2024-01-01", rec.Date)

		latest, err := svc.Record(ctx, "NIFTY", "")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "2024-01-02", latest.Date)

		missing, err := svc.Record(ctx, "TCS", "2024-01-01")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("table", func(t *testing.T) {
		table, err := svc.Table(ctx, "2024-01-02", dataprocessing.TableQuery{SortKey: domain.ColPEVolume, Direction: "asc"})
		require.NoError(t, err)
		require.Len(t, table.Records, 2)
		assert.Equal(t, "RELIANCE", table.Records[0].Symbol)

		filtered, err := svc.Table(ctx, "", dataprocessing.TableQuery{Search: "nif"})
		require.NoError(t, err)
		require.Len(t, filtered.Records, 1)
		assert.Equal(t, "NIFTY", filtered.Records[0].Symbol)

		_, err = svc.Table(ctx, "", dataprocessing.TableQuery{SortKey: "Bogus"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("diagnostics", func(t *testing.T) {
		diag, err := svc.Diagnostics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, diag.Records)
		assert.Equal(t, 4, diag.Read.Rows)
		assert.Equal(t, 1, diag.Coerced)
		assert.Equal(t, 1, diag.Normalize.Coerced[domain.ColCEVolume])
	})
}

func TestDatasetService_LoadIsOneShot(t *testing.T) {
	source := &countingSource{content: sampleCSV}
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDatasetService(source, testDataConfig(), nil, logger)

	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, int32(1), source.opens.Load())

	require.NoError(t, svc.Reload(context.Background()))
	assert.Equal(t, int32(2), source.opens.Load())
}

func TestDatasetService_RetryThenFail(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")
	svc := NewDatasetService(&FileSource{Path: missing}, testDataConfig(), nil, logger)
	waits := recordWaits(svc)

	err := svc.Load(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, *waits)

	status := svc.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Contains(t, status.Error, "missing.csv")
	assert.Zero(t, status.RetryAfter)

	_, err = svc.Dates(context.Background())
	require.ErrorIs(t, err, ErrDatasetNotReady)
	var notReady *NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, StateFailed, notReady.State)
	assert.NotNil(t, notReady.Cause)

	testutil.AssertLogContains(t, logs, slog.LevelError, "dataset load failed")
}

func TestDatasetService_RetryRecovers(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	source := &countingSource{content: sampleCSV, failFirst: 2}
	svc := NewDatasetService(source, testDataConfig(), nil, logger)
	waits := recordWaits(svc)

	require.NoError(t, svc.Load(context.Background()))
	assert.Len(t, *waits, 2)
	assert.Equal(t, 3, svc.Status().Attempts)
}

func TestDatasetService_MalformedFileNotRetried(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDatasetService(&FileSource{Path: writeDataset(t, "")}, testDataConfig(), nil, logger)
	waits := recordWaits(svc)

	err := svc.Load(context.Background())
	require.ErrorIs(t, err, dataprocessing.ErrNoHeader)
	assert.Empty(t, *waits)
	assert.Equal(t, StateFailed, svc.Status().State)
}

func TestDatasetService_MalformedQuotingNotRetried(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	content := strings.Replace(sampleCSV, "2024-01-01,NIFTY,", `2024-01-01,NI"FTY,`, 1)
	svc := NewDatasetService(&FileSource{Path: writeDataset(t, content)}, testDataConfig(), nil, logger)
	waits := recordWaits(svc)

	err := svc.Load(context.Background())
	require.Error(t, err)
	var parseErr *csv.ParseError
	assert.True(t, errors.As(err, &parseErr), err.Error())
	assert.Empty(t, *waits)
	assert.Equal(t, StateFailed, svc.Status().State)
}

func TestDatasetService_CancelledDuringBackoff(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDatasetService(&FileSource{Path: filepath.Join(t.TempDir(), "none.csv")}, testDataConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	svc.wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := svc.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, svc.Status().State)
}

func TestDatasetService_ReloadFailureKeepsDataset(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	path := writeDataset(t, sampleCSV)
	svc := NewDatasetService(&FileSource{Path: path}, testDataConfig(), nil, logger)
	recordWaits(svc)
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, os.Remove(path))
	require.Error(t, svc.Reload(context.Background()))

	status := svc.Status()
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, 4, status.Records)
	assert.NotEmpty(t, status.Error)

	dates, err := svc.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", dates.Latest)

	require.NoError(t, os.WriteFile(path, []byte(laterCSV), 0644))
	require.NoError(t, svc.Reload(context.Background()))

	dates, err = svc.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-03"}, dates.Dates)
	assert.Empty(t, svc.Status().Error)
}

func TestDatasetService_ConcurrentLoadsCoalesce(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	gate := make(chan struct{})
	source := &countingSource{content: sampleCSV, gate: gate}
	svc := NewDatasetService(source, testDataConfig(), nil, logger)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Load(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), source.opens.Load())
}

func TestDatasetService_SubscribeNotifiesEveryLoad(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	path := writeDataset(t, sampleCSV)
	svc := NewDatasetService(&FileSource{Path: path}, testDataConfig(), nil, logger)
	recordWaits(svc)

	var got []DatasetStatus
	svc.Subscribe(func(status DatasetStatus) {
		got = append(got, status)
	})

	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, os.Remove(path))
	require.Error(t, svc.Reload(context.Background()))

	require.Len(t, got, 2)
	assert.Equal(t, StateReady, got[0].State)
	assert.Equal(t, 4, got[0].Records)
	assert.Empty(t, got[0].Error)
	assert.Equal(t, StateReady, got[1].State)
	assert.NotEmpty(t, got[1].Error)
}

// countingSource serves fixed content and can fail or block on demand.
type countingSource struct {
	content   string
	failFirst int32
	gate      chan struct{}
	opens     atomic.Int32
}

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	n := s.opens.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if n <= s.failFirst {
		return nil, apperrors.NewNetworkError("fetch dataset", errors.New("connection reset"))
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func (s *countingSource) Kind() string     { return "memory" }
func (s *countingSource) Location() string { return "memory://options" }
