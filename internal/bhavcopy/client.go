package bhavcopy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"fnopulse/internal/config"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/infrastructure"
)

var (
	// ErrNoData means the exchange published nothing for the date,
	// usually a holiday.
	ErrNoData = errors.New("no bhavcopy published for date")

	// ErrUnexpectedStatus wraps non-200, non-404 archive responses.
	ErrUnexpectedStatus = errors.New("unexpected archive response")
)

// Format identifies the bhavcopy file layout.
type Format string

const (
	FormatUDiFF  Format = "udiff"
	FormatLegacy Format = "legacy"
)

// udiffCutover is the first date published only in the UDiFF layout.
var udiffCutover = time.Date(2024, time.July, 8, 0, 0, 0, 0, time.UTC)

const maxArchiveBytes = 256 << 20

// Download is one day's parsed bhavcopy.
type Download struct {
	Date   time.Time
	Format Format
	URL    string
	Table  *Table
}

// UDiFFURL is the archive location of the UDiFF bhavcopy for date.
func UDiFFURL(base string, date time.Time) string {
	return fmt.Sprintf("%s/content/fo/BhavCopy_NSE_FO_0_0_0_%s_F_0000.csv.zip",
		strings.TrimRight(base, "/"), date.Format("20060102"))
}

// LegacyURL is the archive location of the pre-UDiFF bhavcopy for date.
func LegacyURL(base string, date time.Time) string {
	return fmt.Sprintf("%s/content/historical/DERIVATIVES/%s/%s/fo%sbhav.csv.zip",
		strings.TrimRight(base, "/"),
		date.Format("2006"),
		strings.ToUpper(date.Format("Jan")),
		strings.ToUpper(date.Format("02Jan2006")))
}

// Client downloads bhavcopy archives. Requests carry browser headers and
// share a cookie jar and a rate limiter, so one Client paces a whole run.
type Client struct {
	cfg        config.BhavcopyConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

// NewClient builds a client from cfg. metrics may be nil.
func NewClient(cfg config.BhavcopyConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
		},
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "bhavcopy_client"),
	}, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewConfigError("build archive request", err).WithContext("url", url)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if c.cfg.HomeURL != "" {
		req.Header.Set("Referer", c.cfg.HomeURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("request archive", err).WithContext("url", url)
	}
	return resp, nil
}

// Prime visits the exchange home page so the archive host sees session
// cookies. Failure is not fatal to later downloads.
func (c *Client) Prime(ctx context.Context) error {
	if c.cfg.HomeURL == "" {
		return nil
	}
	resp, err := c.get(ctx, c.cfg.HomeURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewNetworkError("prime session",
			fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)).WithContext("url", c.cfg.HomeURL)
	}
	c.logger.DebugContext(ctx, "session primed", slog.Int("cookies", len(c.httpClient.Jar.Cookies(resp.Request.URL))))
	return nil
}

// Download fetches and parses the bhavcopy for date. Dates before the
// UDiFF cutover fall back to the legacy archive on a 404. ErrNoData is
// returned when neither location has a file.
func (c *Client) Download(ctx context.Context, date time.Time) (*Download, error) {
	start := time.Now()
	dl, format, err := c.download(ctx, date)

	status, rows := "ok", 0
	switch {
	case errors.Is(err, ErrNoData):
		status = "no_data"
	case err != nil:
		status = "error"
	default:
		rows = dl.Table.Len()
	}
	infrastructure.RecordBhavcopyDownload(ctx, c.metrics, string(format), status, rows, time.Since(start))

	day := slog.String("date", date.Format(DateLayout))
	switch status {
	case "ok":
		c.logger.InfoContext(ctx, "bhavcopy downloaded", day,
			slog.String("format", string(format)),
			slog.Int("rows", rows),
			slog.Duration("duration", time.Since(start)))
	case "no_data":
		c.logger.InfoContext(ctx, "no bhavcopy for date", day)
	}
	return dl, err
}

func (c *Client) download(ctx context.Context, date time.Time) (*Download, Format, error) {
	url := UDiFFURL(c.cfg.ArchiveURL, date)
	table, err := c.fetchArchive(ctx, url)
	if err == nil {
		return &Download{Date: date, Format: FormatUDiFF, URL: url, Table: table}, FormatUDiFF, nil
	}
	if !errors.Is(err, ErrNoData) || !date.Before(udiffCutover) {
		return nil, FormatUDiFF, err
	}

	url = LegacyURL(c.cfg.ArchiveURL, date)
	table, err = c.fetchArchive(ctx, url)
	if err != nil {
		return nil, FormatLegacy, err
	}
	return &Download{Date: date, Format: FormatLegacy, URL: url, Table: table}, FormatLegacy, nil
}

func (c *Client) fetchArchive(ctx context.Context, url string) (*Table, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoData
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewNetworkError("fetch archive",
			fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)).WithContext("url", url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError("read archive", err).WithContext("url", url)
	}
	table, err := unzipTable(body)
	if err != nil {
		return nil, apperrors.NewParsingError("decode archive", err).WithContext("url", url)
	}
	return table, nil
}

// unzipTable parses the first entry of a zip archive.
func unzipTable(data []byte) (*Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, errors.New("zip archive has no entries")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", zr.File[0].Name, err)
	}
	defer f.Close()
	return ParseTable(f)
}
