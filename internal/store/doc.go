// Package store persists parcels and per-day records.
//
// Two tables back the engine: field holds one row per parcel identity and
// field_day holds one row per (field_id, date). Inserts are idempotent: the
// existence check and the insert share a transaction and a UNIQUE constraint
// catches races. Updates merge column by column with COALESCE so a partial
// record never erases stored values.
//
// SQLite (modernc.org/sqlite) is the default driver; PostgreSQL via lib/pq
// uses numbered placeholders and BYTEA raster columns.
package store
