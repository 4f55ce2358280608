package recbuf

import "time"

// BufferOptions contains configuration for creating a recording event buffer.
//
// Only UseCompression selects the backend. The remaining fields tune the
// worker backend and are ignored by the simple buffer.
type BufferOptions struct {
	// UseCompression requests the worker backend. When no worker can be
	// started the factory falls back to the simple buffer.
	UseCompression bool

	// Codec names the worker's compression codec ("gzip" or "zstd").
	Codec string

	// MaxPendingRequests caps the number of in-flight worker requests.
	// 0 means unbounded.
	MaxPendingRequests int

	// RequestTimeout evicts a worker request that has not been answered in
	// time. 0 disables eviction.
	RequestTimeout time.Duration

	// WorkerQueueSize is the capacity of the worker's inbox.
	WorkerQueueSize int

	// SessionID identifies the recording session in logs. Generated when empty.
	SessionID string
}

// DefaultBufferOptions returns BufferOptions with compression enabled and
// default worker tuning.
func DefaultBufferOptions() BufferOptions {
	return BufferOptions{
		UseCompression:     true,
		Codec:              DefaultCodec,
		MaxPendingRequests: DefaultMaxPendingRequests,
		RequestTimeout:     DefaultRequestTimeout,
		WorkerQueueSize:    DefaultWorkerQueueSize,
	}
}
