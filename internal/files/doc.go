// Package files discovers the per-day summary files written by the
// bhavcopy command.
//
// The command writes one summaries/summary_YYYYMMDD.csv per trading day.
// When the dataset source is a directory, the dataset service reads every
// summary found here in date order, so days downloaded by separate runs
// appear together without a combined file.
//
//	discovery := files.NewDiscovery(dataDir)
//	summaries, err := discovery.FindSummaries("fno_data/summaries")
package files
