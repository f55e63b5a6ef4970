// Package bulk implements the Bulk Operation Coordinator: the
// receive-and-dispose protocol for deleting or moving large message sets
// from a queue, per spec.md §4.10. Grounded on
// original_source/server/src/bulk_operations/{handler,resource_guard}.rs,
// with collector/sender/deleter's concrete receive-classify-dispose loop
// reconstructed directly from spec.md §4.10's numbered steps (those three
// files were not present in the retrieval pack).
package bulk

import (
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// MessageIdentifier is the composite broker key bulk operations classify
// received messages against.
type MessageIdentifier = servicebus.MessageIdentifier

// Config mirrors spec.md §3's BatchConfig, with the clamps enforced by
// Clamp rather than struct tags (this package has no env/config
// loading concern of its own; internal/config.Batch is the env-tagged
// source of truth a caller converts from).
type Config struct {
	MaxBatchSize         int
	ChunkSize            int
	ReceiveTimeout       time.Duration
	OperationTimeout     time.Duration
	ProcessingTime       time.Duration
	LockTimeout          time.Duration
	MaxMessagesToProcess int

	// RetryDelay and MaxAttempts govern the empty-receive backoff in
	// spec.md §4.10 step 2: empty receives back off by RetryDelay and
	// count toward MaxAttempts.
	RetryDelay  time.Duration
	MaxAttempts int
}

// Clamp limits to spec.md §3's BatchConfig bounds and fills in sane
// defaults for zero fields.
func (c Config) Clamp() Config {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 256
	} else if c.MaxBatchSize > 2048 {
		c.MaxBatchSize = 2048
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 100
	} else if c.ChunkSize > 500 {
		c.ChunkSize = 500
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 300 * time.Second
	} else if c.OperationTimeout > 1200*time.Second {
		c.OperationTimeout = 1200 * time.Second
	}
	if c.ProcessingTime <= 0 {
		c.ProcessingTime = 120 * time.Second
	} else if c.ProcessingTime > 300*time.Second {
		c.ProcessingTime = 300 * time.Second
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 10 * time.Second
	} else if c.LockTimeout > 30*time.Second {
		c.LockTimeout = 30 * time.Second
	}
	if c.MaxMessagesToProcess <= 0 {
		c.MaxMessagesToProcess = 1000
	} else if c.MaxMessagesToProcess > 10000 {
		c.MaxMessagesToProcess = 10000
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// DefaultConfig returns a Config with every field at its spec-default.
func DefaultConfig() Config {
	return Config{}.Clamp()
}

// BulkOperationResult is the terminal accounting of a bulk operation, per
// spec.md §3. Invariant: successful + failed <= requested (the count
// originally passed in); not_found is disjoint from the processed ids.
type BulkOperationResult struct {
	Successful int
	Failed     int
	Errors     []string
	NotFound   []MessageIdentifier
}

// OperationStats records the timing envelope of a bulk operation, per
// spec.md §3.
type OperationStats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Attempted  int
	Duration   time.Duration
}

// Phase names the Bulk Coordinator's state machine positions, per
// spec.md §9 and the progress strings it reports to the UI's one-way
// channel.
type Phase string

const (
	PhaseIdle        Phase = "Idle"
	PhaseAcquiring   Phase = "Acquiring"
	PhaseReceiving   Phase = "Receiving"
	PhaseDisposing   Phase = "Disposing"
	PhaseFinalizing  Phase = "Finalizing"
	PhaseDone        Phase = "Done"
)

// ProgressEvent is emitted on the one-way progress channel the UI
// consumes, per spec.md §4.10.
type ProgressEvent struct {
	Phase      Phase
	Message    string
	Successful int
	Total      int
}
