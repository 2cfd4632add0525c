package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeGapfill()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizePhenology()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.BoundaryDir, err = expandPath(strings.TrimSpace(c.Paths.BoundaryDir)); err != nil {
		return fmt.Errorf("paths.boundary_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InterpCacheDir) == "" {
		c.Paths.InterpCacheDir = defaultInterpCacheDir
	}
	if c.Paths.InterpCacheDir, err = expandPath(c.Paths.InterpCacheDir); err != nil {
		return fmt.Errorf("paths.interp_cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.Origin = strings.TrimSpace(c.Identity.Origin)
	if c.Identity.Origin == "" {
		c.Identity.Origin = defaultOrigin
	}
	c.Identity.BoundaryPrefix = strings.TrimSpace(c.Identity.BoundaryPrefix)
	if c.Identity.BoundaryPrefix == "" {
		c.Identity.BoundaryPrefix = defaultBoundaryPrefix
	}
}

func (c *Config) normalizeGapfill() {
	if c.Gapfill.Neighbors == 0 {
		c.Gapfill.Neighbors = defaultGapfillNeighbors
	}
	if c.Gapfill.LockTimeoutSeconds == 0 {
		c.Gapfill.LockTimeoutSeconds = defaultGapfillLockTimeout
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = DriverSQLite
	case "postgresql", "pq":
		c.Store.Driver = DriverPostgres
	}
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("AGRIREF_STORE_DSN"); ok {
			c.Store.DSN = value
		}
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.Driver == DriverSQLite {
		if strings.TrimSpace(c.Store.Path) == "" {
			c.Store.Path = filepath.Join(c.Paths.StateDir, defaultStoreFile)
		}
		var err error
		if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}
	if c.Store.BusyTimeoutMS == 0 {
		c.Store.BusyTimeoutMS = defaultStoreBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizePhenology() {
	c.Phenology.Encoding = strings.ToLower(strings.TrimSpace(c.Phenology.Encoding))
	switch c.Phenology.Encoding {
	case "", "utf8":
		c.Phenology.Encoding = defaultPhenologyEncoding
	case "cp1252":
		c.Phenology.Encoding = "windows-1252"
	case "latin1", "latin-1":
		c.Phenology.Encoding = "iso-8859-1"
	}
}

func (c *Config) normalizeMetrics() error {
	textfile := strings.TrimSpace(c.Metrics.Textfile)
	if textfile == "" {
		c.Metrics.Textfile = ""
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("AGRIREF_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
