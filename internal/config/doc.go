// Package config loads, normalizes, and validates agriref configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment fallbacks such as AGRIREF_STORE_DSN. The Config type centralizes
// every knob the ingestion engine and CLI need, so directories, identity
// parameters, gate thresholds, and store credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical driver names, and clear validation errors.
package config
