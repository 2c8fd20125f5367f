// Package bhavcopy downloads NSE F&O end-of-day archives and reduces them
// to per-symbol call and put activity.
//
// A Client fetches one day's zip, trying the UDiFF layout first and the
// legacy DERIVATIVES layout for older dates. FilterOptions keeps option
// contracts, Summarize totals them by symbol, and a Runner drives a date
// range through the exporter package:
//
//	client, _ := bhavcopy.NewClient(cfg.Bhavcopy, metrics, logger)
//	runner := bhavcopy.NewRunner(client, exporter.NewSummaryExporter(w), logger)
//	result, err := runner.Run(ctx, bhavcopy.Options{Dates: days})
//
// Holidays are not known in advance; a missing archive yields ErrNoData.
package bhavcopy
