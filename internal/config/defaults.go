package config

// Default values, applied to the viper instance before any config file or
// environment variable is read, mirroring the teacher's internal/config
// DefaultXxx constant block.
const (
	DefaultAutosplit       = true
	DefaultTiming          = false
	DefaultTraceRecalc     = false
	DefaultOutline         = true
	DefaultIncremental     = true
	DefaultJobs            = 1
	DefaultParseStatements = false

	DefaultServiceName  = "mmcore"
	DefaultLogLevel     = "info"
	DefaultLogJSON      = false
	DefaultMetricsAddr  = ":9191"
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = true
)
