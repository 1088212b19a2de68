package config

import "time"

// Application constants
const (
	AppName = "gsc-consolidate"

	// Consolidation defaults
	DefaultOutputFormat   = "xlsx"
	DefaultPreviewLimit   = 5
	DefaultMaxUploadBytes = 50 << 20 // 50MB
	DefaultWorkers        = 4

	// Rate limiting
	DefaultRateLimit = 5.0 // uploads per second
	DefaultBurstSize = 10

	// Timeouts
	DefaultOperationTimeout = 5 * time.Minute
	SearchConsoleTimeout    = 2 * time.Minute

	// Directories, relative to the working directory
	DefaultOutputDir = "output"
	DefaultLogsDir   = "logs"
	LogFileName      = "app.log"

	// Log settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// HTTP routes
const (
	APIBasePath           = "/api/v1"
	ConsolidateEndpoint   = APIBasePath + "/consolidate"
	PreviewEndpoint       = APIBasePath + "/consolidate/preview"
	SearchConsoleEndpoint = APIBasePath + "/consolidate/searchconsole"
	HealthEndpoint        = "/api/health"
	MetricsEndpoint       = "/metrics"
	ProgressFeedEndpoint  = "/ws"
)
