// Package services holds the business logic between the HTTP handlers and
// the options dataset.
//
// DatasetService owns the one-shot load of the daily options summary file
// and answers every dashboard query from an immutable in-memory index:
//
//	src := services.NewSource(cfg.Data, paths)
//	ds := services.NewDatasetService(src, cfg.Data, metrics, logger)
//	if err := ds.Load(ctx); err != nil {
//	    // state is now "failed"; queries return a NotReadyError
//	}
//	summary, err := ds.Summary(ctx, "latest")
//
// The dataset moves through three states. While "loading" or "failed",
// queries return an error matching ErrDatasetNotReady; a failed load is
// never presented as an empty dataset. Reload replaces the whole dataset
// in one swap and keeps the previous one when the new fetch fails.
//
// Loads retry with exponential backoff and concurrent Load/Reload calls
// share a single fetch.
//
// HealthService reports liveness and readiness; the service is ready only
// once the dataset has loaded.
package services
