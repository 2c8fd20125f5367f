package config

// Application constants
const (
	AppName = "fnopulse"

	// DefaultDatasetFile is resolved against the data directory.
	DefaultDatasetFile = "options_data.csv"

	// NSE endpoints
	DefaultArchiveURL = "https://nsearchives.nseindia.com"
	DefaultHomeURL    = "https://www.nseindia.com/"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Bhavcopy output layout, relative to the output directory
	RawDirName         = "raw"
	SummariesDirName   = "summaries"
	CombinedSummaryCSV = "combined_summary.csv"
)
