package recbuf

import "time"

const (
	DefaultCodec              = "gzip"
	DefaultMaxPendingRequests = 1024
	DefaultWorkerQueueSize    = 256
	DefaultRequestTimeout     = time.Duration(0)

	// DefaultMaxDecompressedBytes bounds how far a finished payload may expand.
	DefaultMaxDecompressedBytes = 64 * 1024 * 1024
)

// Config file defaults
const (
	ConfigVersion         = 1
	DefaultConfigFileName = "recbuf.json"
)

// Log file defaults
const (
	DefaultAppDir        = ".recbuf"
	DefaultLogDir        = "logs"
	DefaultLogFileName   = "recbuf.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)
