package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnopulse/internal/config"
	"fnopulse/internal/shared/testutil"
)

type staticStatus DatasetStatus

func (s staticStatus) Status() DatasetStatus { return DatasetStatus(s) }

func TestHealthService_ReadinessCheck(t *testing.T) {
	dataDir := t.TempDir()

	tests := []struct {
		name        string
		dataset     DatasetStatusProvider
		dataDir     string
		wantReady   bool
		wantDataset string
	}{
		{
			name:        "dataset ready",
			dataset:     staticStatus{State: StateReady, Records: 10, Dates: 2, LoadedAt: time.Now()},
			dataDir:     dataDir,
			wantReady:   true,
			wantDataset: "ready",
		},
		{
			name:        "dataset loading",
			dataset:     staticStatus{State: StateLoading, Location: "options_data.csv", RetryAfter: 2 * time.Second},
			dataDir:     dataDir,
			wantDataset: "not_ready",
		},
		{
			name:        "dataset failed",
			dataset:     staticStatus{State: StateFailed, Error: "open options_data.csv: no such file"},
			dataDir:     dataDir,
			wantDataset: "failed",
		},
		{
			name:        "no dataset service",
			dataDir:     dataDir,
			wantDataset: "not_ready",
		},
		{
			name:        "missing data directory",
			dataset:     staticStatus{State: StateReady},
			dataDir:     filepath.Join(dataDir, "absent"),
			wantDataset: "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			hs := NewHealthService("v1.0.0", "", config.PathsConfig{DataDir: tt.dataDir}, tt.dataset, logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantReady, status.Ready())

			ds, ok := status.Services["dataset"].(ServiceHealth)
			require.True(t, ok)
			assert.Equal(t, tt.wantDataset, ds.Status)
		})
	}
}

func TestHealthService_DatasetMessages(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	loading := NewHealthService("v", "", config.PathsConfig{}, staticStatus{State: StateLoading, RetryAfter: 2 * time.Second}, logger)
	assert.Equal(t, 2, loading.checkDatasetHealth().RetryAfterSeconds)

	failed := NewHealthService("v", "", config.PathsConfig{}, staticStatus{State: StateFailed, Error: "boom"}, logger)
	assert.Contains(t, failed.checkDatasetHealth().Message, "boom")
	assert.Contains(t, failed.checkDatasetHealth().Message, "/api/data/reload")

	stale := NewHealthService("v", "", config.PathsConfig{}, staticStatus{State: StateReady, Records: 3, Dates: 1, Error: "timeout"}, logger)
	health := stale.checkDatasetHealth()
	assert.Equal(t, "ready", health.Status)
	assert.Contains(t, health.Message, "3 records across 1 dates")
	assert.Contains(t, health.Message, "last reload failed: timeout")
}

func TestHealthService_SystemStats(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "options_data.csv"), []byte("abc"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "raw"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "raw", "options_20240102.csv"), []byte("de"), 0644))

	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("v", "", config.PathsConfig{DataDir: dataDir},
		staticStatus{State: StateReady, Records: 4, Dates: 2, Symbols: 2}, logger)

	stats, err := hs.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, int64(5), stats.TotalSizeBytes)
	assert.Equal(t, StateReady, stats.DatasetState)
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 2, stats.TradingDates)
}

func TestHealthService_VersionAndLiveness(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthServiceWithBuildInfo("v2.0.0", "https://example.invalid/repo", "2024-01-01", "abc123",
		config.PathsConfig{}, nil, logger)

	version := hs.Version()
	assert.Equal(t, "v2.0.0", version["version"])
	assert.Equal(t, "abc123", version["build_id"])
	assert.Equal(t, "2024-01-01", version["build_time"])
	assert.Equal(t, "v1", version["data_format"])

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)

	detailed := hs.GetDetailedHealth(context.Background())
	assert.Contains(t, detailed, "readiness")
	assert.Contains(t, detailed, "stats")
}

func TestNotReadyError(t *testing.T) {
	cause := errors.New("refused")
	err := &NotReadyError{State: StateFailed, Cause: cause}

	assert.Equal(t, "dataset failed: refused", err.Error())
	assert.ErrorIs(t, err, ErrDatasetNotReady)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dataset loading", (&NotReadyError{State: StateLoading}).Error())
}
