// Package timeline reconciles the per-modality catalogs, weather, and
// phenology of one parcel onto a single per-day timeline.
//
// Each date walks NoData -> Candidate -> Emitted. A date becomes a candidate
// only when at least one remote-sensing modality has an artifact; weather and
// phenology enrich a record but never create one. Candidates are gated,
// optionally gap-filled, keyed by parcel identity, and handed to a Writer.
package timeline
