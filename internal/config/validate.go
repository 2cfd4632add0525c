package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateGapfill(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validatePhenology(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGate() error {
	if c.Gate.Threshold <= 0 || c.Gate.Threshold >= 1 {
		return errors.New("gate.threshold must be between 0 and 1 (exclusive)")
	}
	if math.IsNaN(c.Gate.OpticalSentinel) || math.IsNaN(c.Gate.RadarSentinel) {
		return errors.New("gate sentinels must be numeric")
	}
	return nil
}

func (c *Config) validateGapfill() error {
	if !c.Gapfill.Enabled {
		return nil
	}
	if err := ensurePositiveMap(map[string]int{
		"gapfill.neighbors":            c.Gapfill.Neighbors,
		"gapfill.lock_timeout_seconds": c.Gapfill.LockTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Gapfill.Neighbors < minGapfillNeighbors || c.Gapfill.Neighbors > maxGapfillNeighbors {
		return fmt.Errorf("gapfill.neighbors must be between %d and %d", minGapfillNeighbors, maxGapfillNeighbors)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path must be set when store.driver is sqlite")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or export AGRIREF_STORE_DSN)")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q (use sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.BusyTimeoutMS < 0 {
		return errors.New("store.busy_timeout_ms must not be negative")
	}
	return nil
}

func (c *Config) validatePhenology() error {
	switch c.Phenology.Encoding {
	case "utf-8", "windows-1252", "iso-8859-1":
		return nil
	default:
		return fmt.Errorf("phenology.encoding: unsupported value %q", c.Phenology.Encoding)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
