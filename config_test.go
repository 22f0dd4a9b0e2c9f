package tender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{APIKey: "key", Model: "gemini-2.5-flash"}
	assert.NoError(t, cfg.Validate())

	assert.ErrorIs(t, Config{Model: "m"}.Validate(), ErrMissingAPIKey)
	assert.ErrorIs(t, Config{APIKey: "k"}.Validate(), ErrMissingModel)
}

func TestConfigValidate_SimulationNeedsNoCredentials(t *testing.T) {
	assert.NoError(t, Config{Simulate: true}.Validate())
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	want := DefaultConfig()

	assert.Equal(t, want.BatchSize, got.BatchSize)
	assert.Equal(t, want.FileWorkers, got.FileWorkers)
	assert.Equal(t, want.MaxInFlight, got.MaxInFlight)
	assert.Equal(t, want.MaxRetries, got.MaxRetries)
	assert.Equal(t, want.RetryBaseDelay, got.RetryBaseDelay)
	assert.Equal(t, want.PollDeadline, got.PollDeadline)
	assert.Equal(t, want.SummaryBatchThreshold, got.SummaryBatchThreshold)
	assert.Equal(t, want.MaxDocumentSize, got.MaxDocumentSize)
}

func TestConfigWithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		BatchSize:      2,
		MaxRetries:     1,
		RetryBaseDelay: time.Second,
	}
	got := cfg.withDefaults()

	assert.Equal(t, 2, got.BatchSize)
	assert.Equal(t, 1, got.MaxRetries)
	assert.Equal(t, time.Second, got.RetryBaseDelay)
	assert.Equal(t, DefaultConfig().FileWorkers, got.FileWorkers)
}
