// Package http implements the HTTP handlers of the options dashboard API.
// Handlers stay thin: they validate query parameters, call the dataset
// service and shape the response for display.
//
// # Routes
//
// DataHandler is mounted at /api/data:
//
//	GET  /dates                          every trading date and the latest
//	GET  /snapshot?date=                 records for one date
//	GET  /snapshot/summary?date=         aggregates plus formatted banner fields
//	GET  /table?date=&sort=&dir=&q=      ranked rows with formatted cells
//	GET  /symbols                        every symbol
//	GET  /symbols/{symbol}/history       chronological history
//	GET  /symbols/{symbol}/detail?date=  stat cards and chart series
//	GET  /symbols/{symbol}/record?date=  the symbol's row on one date
//	GET  /diagnostics                    data-quality counters
//	GET  /export/snapshot.xlsx           the table as a workbook
//	GET  /export/snapshot.csv            the table in summary file layout
//	POST /reload                         re-fetch the dataset
//
// An empty date or "latest" selects the most recent trading date. Unknown
// dates and symbols produce empty results rather than 404s.
//
// HealthHandler serves /api/health, /api/health/ready, /api/health/live,
// /api/health/detailed and /api/version. Readiness answers 503 until the
// dataset has loaded. MetricsHandler serves /metrics and /api/stats.
//
// # Error Handling
//
// All errors are RFC 7807 problem details rendered by the shared
// ErrorHandler. While the dataset is loading every data route answers 503
// with a Retry-After header:
//
//	{
//	    "type": "/errors/dataset/loading",
//	    "title": "Service Unavailable",
//	    "status": 503,
//	    "detail": "The options dataset is still loading",
//	    "instance": "/api/data/table",
//	    "error_code": "DATASET_LOADING",
//	    "retry_after": 2
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// DataServiceInterface.
package http
