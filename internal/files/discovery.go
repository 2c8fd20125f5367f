package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	summaryPrefix = "summary_"
	summarySuffix = ".csv"
	stampLayout   = "20060102"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// SummaryFile is a per-day summary written by the bhavcopy command.
type SummaryFile struct {
	FileInfo
	// Date is the trading date parsed from the file name.
	Date time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), summarySuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// ParseSummaryName extracts the date from summary_YYYYMMDD.csv.
func ParseSummaryName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, summaryPrefix) || !strings.HasSuffix(strings.ToLower(name), summarySuffix) {
		return time.Time{}, false
	}
	stamp := name[len(summaryPrefix) : len(name)-len(summarySuffix)]
	date, err := time.Parse(stampLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// FindSummaries lists the daily summary files in dir, oldest date first.
// Other CSV files are ignored. Empty files are skipped.
func (d *Discovery) FindSummaries(dir string) ([]SummaryFile, error) {
	csvFiles, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	var summaries []SummaryFile
	for _, f := range csvFiles {
		date, ok := ParseSummaryName(f.Name)
		if !ok || f.Size == 0 {
			continue
		}
		summaries = append(summaries, SummaryFile{FileInfo: f, Date: date})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.Before(summaries[j].Date)
	})
	return summaries, nil
}

// FilterSummariesByDateRange keeps summaries dated from start to end
// inclusive. A zero bound is open.
func FilterSummariesByDateRange(files []SummaryFile, start, end time.Time) []SummaryFile {
	var filtered []SummaryFile
	for _, f := range files {
		if !start.IsZero() && f.Date.Before(start) {
			continue
		}
		if !end.IsZero() && f.Date.After(end) {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered
}

// GetLatestSummary returns the summary with the most recent trading date.
func GetLatestSummary(files []SummaryFile) (SummaryFile, bool) {
	if len(files) == 0 {
		return SummaryFile{}, false
	}

	latest := files[0]
	for _, f := range files[1:] {
		if f.Date.After(latest.Date) {
			latest = f
		}
	}
	return latest, true
}
