package bhavcopy

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnopulse/internal/config"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/shared/testutil"
)

func zipCSV(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// archiveServer serves zips by path and records every request.
type archiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	status   map[string]int
	requests []*http.Request
}

func newArchiveServer(t *testing.T) *archiveServer {
	s := &archiveServer{files: map[string][]byte{}, status: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(context.Background()))
		body, ok := s.files[r.URL.Path]
		code, forced := s.status[r.URL.Path]
		s.mu.Unlock()

		switch {
		case r.URL.Path == "/":
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "session", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case forced:
			w.WriteHeader(code)
		case ok:
			w.Header().Set("Content-Type", "application/zip")
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.requests {
		out = append(out, r.URL.Path)
	}
	return out
}

func newTestClient(t *testing.T, srv *archiveServer) *Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	c, err := NewClient(config.BhavcopyConfig{
		ArchiveURL: srv.URL + "/",
		HomeURL:    srv.URL + "/",
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
	}, nil, logger)
	require.NoError(t, err)
	return c
}

func TestArchiveURLs(t *testing.T) {
	d := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		"https://nsearchives.nseindia.com/content/fo/BhavCopy_NSE_FO_0_0_0_20240102_F_0000.csv.zip",
		UDiFFURL(config.DefaultArchiveURL, d))
	assert.Equal(t,
		"https://nsearchives.nseindia.com/content/historical/DERIVATIVES/2024/JAN/fo02JAN2024bhav.csv.zip",
		LegacyURL(config.DefaultArchiveURL+"/", d))
}

func TestClient_DownloadUDiFF(t *testing.T) {
	srv := newArchiveServer(t)
	d := day("2025-02-10")
	srv.files["/content/fo/BhavCopy_NSE_FO_0_0_0_20250210_F_0000.csv.zip"] = zipCSV(t, "fo.csv", udiffSample)

	c := newTestClient(t, srv)
	require.NoError(t, c.Prime(context.Background()))

	dl, err := c.Download(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, FormatUDiFF, dl.Format)
	assert.Equal(t, 7, dl.Table.Len())
	assert.Equal(t, d, dl.Date)

	srv.mu.Lock()
	last := srv.requests[len(srv.requests)-1]
	srv.mu.Unlock()
	assert.Equal(t, "test-agent", last.Header.Get("User-Agent"))
	assert.Equal(t, srv.URL+"/", last.Header.Get("Referer"))
	cookie, err := last.Cookie("nsit")
	require.NoError(t, err, "session cookie replayed")
	assert.Equal(t, "session", cookie.Value)
}

func TestClient_DownloadFallbacks(t *testing.T) {
	legacyDay := day("2024-01-02")
	legacyPath := "/content/historical/DERIVATIVES/2024/JAN/fo02JAN2024bhav.csv.zip"
	udiffDay := day("2024-07-10")

	t.Run("legacy archive before cutover", func(t *testing.T) {
		srv := newArchiveServer(t)
		srv.files[legacyPath] = zipCSV(t, "fo.csv", legacySample)

		dl, err := newTestClient(t, srv).Download(context.Background(), legacyDay)
		require.NoError(t, err)
		assert.Equal(t, FormatLegacy, dl.Format)
		assert.Equal(t, 3, dl.Table.Len())
		assert.Equal(t, []string{
			"/content/fo/BhavCopy_NSE_FO_0_0_0_20240102_F_0000.csv.zip",
			legacyPath,
		}, srv.paths())
	})

	t.Run("both missing before cutover", func(t *testing.T) {
		srv := newArchiveServer(t)
		_, err := newTestClient(t, srv).Download(context.Background(), legacyDay)
		assert.ErrorIs(t, err, ErrNoData)
		assert.Len(t, srv.paths(), 2)
	})

	t.Run("no legacy attempt after cutover", func(t *testing.T) {
		srv := newArchiveServer(t)
		_, err := newTestClient(t, srv).Download(context.Background(), udiffDay)
		assert.ErrorIs(t, err, ErrNoData)
		assert.Len(t, srv.paths(), 1)
	})
}

func TestClient_DownloadErrors(t *testing.T) {
	path := "/content/fo/BhavCopy_NSE_FO_0_0_0_20250210_F_0000.csv.zip"

	t.Run("server error", func(t *testing.T) {
		srv := newArchiveServer(t)
		srv.status[path] = http.StatusServiceUnavailable

		_, err := newTestClient(t, srv).Download(context.Background(), day("2025-02-10"))
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
		assert.NotErrorIs(t, err, ErrNoData)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeNetwork, appErr.Type)
	})

	t.Run("not a zip", func(t *testing.T) {
		srv := newArchiveServer(t)
		srv.files[path] = []byte("<html>blocked</html>")

		_, err := newTestClient(t, srv).Download(context.Background(), day("2025-02-10"))
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
	})

	t.Run("cancelled", func(t *testing.T) {
		srv := newArchiveServer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient(t, srv).Download(ctx, day("2025-02-10"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_PrimeFailure(t *testing.T) {
	srv := newArchiveServer(t)
	srv.status["/blocked"] = http.StatusForbidden
	c := newTestClient(t, srv)
	c.cfg.HomeURL = srv.URL + "/blocked"

	err := c.Prime(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_RateLimited(t *testing.T) {
	srv := newArchiveServer(t)
	logger, _ := testutil.NewTestLogger(t)
	c, err := NewClient(config.BhavcopyConfig{
		ArchiveURL:      srv.URL,
		RequestInterval: 50 * time.Millisecond,
		Timeout:         5 * time.Second,
	}, nil, logger)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Download(context.Background(), day("2025-02-10"))
		require.ErrorIs(t, err, ErrNoData)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
