// Package dataprocessing turns daily options summary files into typed
// records and derives everything the dashboard shows from them.
//
// # Pipeline
//
//	summary CSV → ReadRows → Normalizer → []MarketRecord → Index
//
// ReadRows is tolerant of the quirks real summary files carry: a UTF-8 byte
// order mark, blank lines and ragged rows. The Normalizer converts every
// numeric cell, defaulting absent or unparsable counts to zero while keeping
// the two put-call ratios nullable. Index builds date and symbol lookups
// once so queries never rescan the record set.
//
// # Derived views
//
//   - Summarize: per-date sentiment buckets, totals, market PCR and the
//     most active symbols.
//   - BuildDetail: a symbol's latest figures, day-over-day changes, average
//     PCR and chart series.
//   - Table: the searchable, sortable per-date table.
//
// # Classification and formatting
//
// ClassifySentiment, CompactSentimentOf and PCRClassOf share one set of
// band bounds. The Format* helpers render counts in lakhs and crores with
// Indian digit grouping via golang.org/x/text.
//
// All functions are pure apart from the Normalizer's diagnostic counters and
// are safe for concurrent use.
package dataprocessing
