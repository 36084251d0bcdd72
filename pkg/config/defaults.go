package config

// Render defaults.
const (
	DefaultRenderMode = "verbatim"
)

// Modernization defaults. importlib.metadata.version is the standard
// library replacement for pkg_resources version lookups.
const (
	DefaultPkgResourcesModule   = "importlib.metadata"
	DefaultPkgResourcesFunction = "version"
)

// Batch defaults.
const (
	DefaultBatchWorkers        = 0
	DefaultBatchMaxFileSize    = "1 MiB"
	DefaultBatchBackupDir      = ""
	DefaultBatchReport         = ""
	DefaultBatchGitTrackedOnly = false
	DefaultBatchExcludeVendor  = true
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryEndpoint    = ""
	DefaultTelemetryInsecure    = false
	DefaultTelemetrySampleRatio = 1.0
	DefaultTelemetryMetricsFile = ""
)
