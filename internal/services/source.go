package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fnopulse/internal/config"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/files"
)

// Source yields the raw summary file.
type Source interface {
	// Open returns a reader over the whole file. Callers close it.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Kind labels the source in logs and metrics.
	Kind() string
	// Location is the path or URL being read.
	Location() string
}

// FileSource reads the summary file from local disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, apperrors.NewStorageError("open dataset file", err).WithContext("path", s.Path)
	}
	return f, nil
}

func (s *FileSource) Kind() string     { return "file" }
func (s *FileSource) Location() string { return s.Path }

// HTTPSource fetches the summary file over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source whose client is traced and bounded by timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		URL: url,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, apperrors.NewConfigError("build dataset request", err)
	}
	req.Header.Set("Accept", "text/csv, */*")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("fetch dataset", err).WithContext("url", s.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, apperrors.NewNetworkError("fetch dataset",
			fmt.Errorf("%w: %s", ErrSourceStatus, resp.Status)).WithContext("url", s.URL)
	}
	return resp.Body, nil
}

func (s *HTTPSource) Kind() string     { return "http" }
func (s *HTTPSource) Location() string { return s.URL }

// DirSource reads every summary_YYYYMMDD.csv in a directory, oldest
// first, as one file. A directory without summaries falls back to its
// summaries subdirectory, which is where the bhavcopy command writes them.
type DirSource struct {
	Dir string

	// WindowDays keeps only summaries dated within that many calendar
	// days of the newest one. Zero keeps all.
	WindowDays int
}

type multiFileReader struct {
	io.Reader
	files []*os.File
}

func (m *multiFileReader) Close() error {
	var errs []error
	for _, f := range m.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *DirSource) summaries() ([]files.SummaryFile, error) {
	discovery := files.NewDiscovery(s.Dir)
	found, err := discovery.FindSummaries(s.Dir)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if nested, err := discovery.FindSummaries(config.SummariesDirName); err == nil {
			found = nested
		}
	}
	if s.WindowDays > 0 {
		if latest, ok := files.GetLatestSummary(found); ok {
			found = files.FilterSummariesByDateRange(found, latest.Date.AddDate(0, 0, 1-s.WindowDays), time.Time{})
		}
	}
	return found, nil
}

// headerLine reads the first line of br, without the line ending or a BOM.
func headerLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

func sameHeader(a, b string) bool {
	clean := func(s string) string {
		return strings.TrimPrefix(strings.TrimRight(s, "\r\n"), "\ufeff")
	}
	return clean(a) == clean(b)
}

// Open concatenates the summaries. Every file must repeat the first file's
// header, which is emitted once.
func (s *DirSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := s.summaries()
	if err != nil {
		return nil, apperrors.NewStorageError("list dataset directory", err).WithContext("path", s.Dir)
	}
	if len(found) == 0 {
		return nil, apperrors.NewStorageError("list dataset directory", ErrNoSummaries).WithContext("path", s.Dir)
	}

	out := &multiFileReader{}
	readers := make([]io.Reader, 0, 2*len(found))
	var first string
	for i, sf := range found {
		f, err := os.Open(sf.Path)
		if err != nil {
			out.Close()
			return nil, apperrors.NewStorageError("open summary file", err).WithContext("path", sf.Path)
		}
		out.files = append(out.files, f)

		br := bufio.NewReader(f)
		header, err := headerLine(br)
		if err != nil {
			out.Close()
			return nil, apperrors.NewStorageError("read summary header", err).WithContext("path", sf.Path)
		}

		if i == 0 {
			first = header
			readers = append(readers, strings.NewReader(header), br)
			continue
		}
		if !sameHeader(first, header) {
			out.Close()
			return nil, apperrors.NewStorageError("read summary header", ErrHeaderMismatch).
				WithContext("path", sf.Path).
				WithContext("first", found[0].Path)
		}
		// The blank separator guards against a file without a trailing newline.
		readers = append(readers, strings.NewReader("\n"), br)
	}
	out.Reader = io.MultiReader(readers...)
	return out, nil
}

func (s *DirSource) Kind() string     { return "directory" }
func (s *DirSource) Location() string { return s.Dir }

// NewSource picks the HTTP source when a URL is configured, the directory
// source when the path is a directory and the file source otherwise.
// Relative paths resolve against the data directory.
func NewSource(cfg config.DataConfig, paths *config.Paths) Source {
	if cfg.SourceURL != "" {
		return NewHTTPSource(cfg.SourceURL, cfg.LoadTimeout)
	}
	path := cfg.SourcePath
	if paths != nil {
		path = paths.DatasetPath(path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return &DirSource{Dir: path, WindowDays: cfg.WindowDays}
	}
	return &FileSource{Path: path}
}
