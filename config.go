package tender

import (
	"fmt"
	"time"
)

// Config carries every knob the analyzer needs. There is no ambient state:
// construct one, adjust fields, pass it in.
type Config struct {
	// APIKey authenticates against the hosted model service. Unused in
	// simulation mode.
	APIKey string
	// Model is the assistant model identifier, e.g. "gemini-1.5-pro".
	Model string
	// Simulate answers every call from the embedded fixture instead of
	// the network.
	Simulate bool

	// BatchSize bounds how many documents share one service request,
	// matching the per-request attachment limit.
	BatchSize int
	// FileWorkers bounds how many documents of a batch are analyzed
	// concurrently. Each document's category extractions run in their
	// own pool; MaxInFlight caps the combined request rate.
	FileWorkers int
	// MaxInFlight caps simultaneous service calls across all documents
	// and categories.
	MaxInFlight int

	// MaxRetries is the attempt budget for transient service failures.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt
	// up to RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// PollInterval is the fixed wait between job status checks.
	PollInterval time.Duration
	// PollDeadline converts a stuck job into an error result.
	PollDeadline time.Duration

	// SummaryBatchThreshold is the document count above which the summary
	// is generated in batches and merged, instead of one shot.
	SummaryBatchThreshold int

	// MaxDocumentSize rejects oversized uploads at ingestion.
	MaxDocumentSize int64

	// DateSortAscending orders the synthesized date table chronologically
	// when true, reverse-chronologically when false.
	DateSortAscending bool

	// IncludePerFile appends per-document breakdowns to the report.
	IncludePerFile bool
}

// DefaultConfig mirrors the service limits the analyzer was tuned against.
func DefaultConfig() Config {
	return Config{
		BatchSize:             4,
		FileWorkers:           4,
		MaxInFlight:           5,
		MaxRetries:            5,
		RetryBaseDelay:        4 * time.Second,
		RetryMaxDelay:         10 * time.Second,
		PollInterval:          750 * time.Millisecond,
		PollDeadline:          5 * time.Minute,
		SummaryBatchThreshold: 10,
		MaxDocumentSize:       50 << 20,
		DateSortAscending:     true,
	}
}

// Validate checks the startup-fatal conditions. Everything else gets a
// default instead of an error.
func (c Config) Validate() error {
	if c.Simulate {
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("config: %w", ErrMissingAPIKey)
	}
	if c.Model == "" {
		return fmt.Errorf("config: %w", ErrMissingModel)
	}
	return nil
}

// withDefaults fills zero values so a partially-populated Config behaves.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FileWorkers <= 0 {
		c.FileWorkers = d.FileWorkers
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = d.MaxInFlight
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = d.RetryMaxDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PollDeadline <= 0 {
		c.PollDeadline = d.PollDeadline
	}
	if c.SummaryBatchThreshold <= 0 {
		c.SummaryBatchThreshold = d.SummaryBatchThreshold
	}
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = d.MaxDocumentSize
	}
	return c
}
