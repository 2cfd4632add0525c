// Package services defines shared utilities consumed by the ingestion engine
// and its command-line entry points.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, field numbers, dates, and sensor
//     modalities for logging.
//   - Structured error markers plus the Wrap helper so callers can tell
//     per-item data problems (skip and continue) from run-level failures.
//
// Use these helpers when wiring new engine logic so error classification and
// observability stay uniform across packages.
package services
