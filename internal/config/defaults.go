package config

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultConfigPath         = "~/.config/agriref/config.toml"
	defaultStateDir           = "~/.local/share/agriref"
	defaultLogDir             = "~/.local/share/agriref/logs"
	defaultInterpCacheDir     = "~/.cache/agriref/interp"
	defaultExportDir          = "~/.local/share/agriref/exports"
	defaultStoreFile          = "agriref.db"
	defaultOrigin             = "ZEPP"
	defaultBoundaryPrefix     = "ZEPP"
	defaultGateThreshold      = 0.5
	defaultOpticalSentinel    = 0
	defaultRadarSentinel      = 6.9055e-41
	defaultGapfillNeighbors   = 12
	defaultGapfillLockTimeout = 120
	defaultStoreBusyTimeoutMS = 5000
	defaultPhenologyEncoding  = "utf-8"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	minGapfillNeighbors       = 4
	maxGapfillNeighbors       = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:       defaultStateDir,
			LogDir:         defaultLogDir,
			InterpCacheDir: defaultInterpCacheDir,
			ExportDir:      defaultExportDir,
		},
		Identity: Identity{
			Origin:         defaultOrigin,
			BoundaryPrefix: defaultBoundaryPrefix,
		},
		Gate: Gate{
			Threshold:       defaultGateThreshold,
			OpticalSentinel: defaultOpticalSentinel,
			RadarSentinel:   defaultRadarSentinel,
		},
		Gapfill: Gapfill{
			Enabled:            true,
			Neighbors:          defaultGapfillNeighbors,
			LockTimeoutSeconds: defaultGapfillLockTimeout,
		},
		Store: Store{
			Driver:        DriverSQLite,
			BusyTimeoutMS: defaultStoreBusyTimeoutMS,
		},
		Phenology: Phenology{
			Encoding: defaultPhenologyEncoding,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
