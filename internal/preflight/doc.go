// Package preflight provides readiness checks for the directories and
// store that agriref depends on.
//
// These checks run in two contexts:
//   - The ingest command calls RunAll before a run. If any check fails, the
//     run stops before touching the store.
//   - The CLI "agriref status" command uses the same results, plus the
//     store probe, to display environment health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
