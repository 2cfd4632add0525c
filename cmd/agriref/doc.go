// Package main hosts the agriref CLI entrypoint and command graph.
//
// The Cobra-based command tree runs manifest-driven ingest jobs against the
// configured store and exposes the supporting views: artifact catalogs,
// parcel identities, stored day records, training exports, store health,
// and environment status. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
