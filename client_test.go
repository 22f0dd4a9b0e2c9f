package tender

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testClient(svc ExtractionService) *Client {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.PollDeadline = time.Second
	c := NewClient(svc, cfg, nil)
	c.sleep = func(time.Duration) {}
	return c
}

func TestClient_RunPrompt(t *testing.T) {
	svc := newFakeService()
	svc.RespondFunc = func(prompt string, refs []DocRef) (string, error) {
		return "extracted dates", nil
	}

	got, err := testClient(svc).RunPrompt(context.Background(), []DocRef{"ref-1"}, "find dates", "dates")
	require.NoError(t, err)
	assert.Equal(t, "extracted dates", got)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	svc := newFakeService()
	svc.RespondFunc = func(prompt string, refs []DocRef) (string, error) {
		if calls.Add(1) < 3 {
			return "", genai.APIError{Code: 429, Message: "rate limited"}
		}
		return "ok after retries", nil
	}

	got, err := testClient(svc).RunPrompt(context.Background(), nil, "p", "task")
	require.NoError(t, err)
	assert.Equal(t, "ok after retries", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	permErr := errors.New("malformed prompt")
	svc := newFakeService()
	svc.RespondFunc = func(prompt string, refs []DocRef) (string, error) {
		calls.Add(1)
		return "", permErr
	}

	_, err := testClient(svc).RunPrompt(context.Background(), nil, "p", "task")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	svc := newFakeService()
	svc.RespondFunc = func(prompt string, refs []DocRef) (string, error) {
		calls.Add(1)
		return "", genai.APIError{Code: 503, Message: "unavailable"}
	}

	_, err := testClient(svc).RunPrompt(context.Background(), nil, "p", "task")
	require.Error(t, err)
	assert.Equal(t, int32(DefaultConfig().MaxRetries), calls.Load())
}

// failingPollService drives the poll loop into a terminal failure.
type failingPollService struct {
	*fakeService
	status JobStatus
}

func (f *failingPollService) Poll(ctx context.Context, h JobHandle) (JobStatus, error) {
	return f.status, nil
}

func TestClient_TerminalFailureBecomesResultText(t *testing.T) {
	svc := &failingPollService{fakeService: newFakeService(), status: JobFailed}

	got, err := testClient(svc).RunPrompt(context.Background(), nil, "p", "dates extraction")
	require.NoError(t, err)
	assert.Contains(t, got, "dates extraction failed with status: failed")
}

// stuckService never finishes a job.
type stuckService struct{ *fakeService }

func (s *stuckService) Poll(ctx context.Context, h JobHandle) (JobStatus, error) {
	return JobRunning, nil
}

func TestClient_PollDeadline(t *testing.T) {
	svc := &stuckService{fakeService: newFakeService()}
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.PollDeadline = 10 * time.Millisecond
	c := NewClient(svc, cfg, nil)
	c.sleep = func(time.Duration) {}

	got, err := c.RunPrompt(context.Background(), nil, "p", "slow task")
	require.NoError(t, err)
	assert.Contains(t, got, ErrPollDeadline.Error())
}

func TestClient_PollDeadlineReapsAbandonedJob(t *testing.T) {
	svc := &stuckService{fakeService: newFakeService()}
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.PollDeadline = 10 * time.Millisecond
	c := NewClient(svc, cfg, nil)
	c.sleep = func(time.Duration) {}

	got, err := c.RunPrompt(context.Background(), nil, "p", "slow task")
	require.NoError(t, err)
	assert.Contains(t, got, ErrPollDeadline.Error())

	// The handle is collected in the background once the job finishes.
	assert.Eventually(t, func() bool { return svc.liveJobs() == 0 },
		time.Second, time.Millisecond)
}

func TestClient_BackoffReleasesSemaphoreSlot(t *testing.T) {
	var calls atomic.Int32
	svc := newFakeService()
	svc.RespondFunc = func(prompt string, refs []DocRef) (string, error) {
		if calls.Add(1) == 1 {
			return "", genai.APIError{Code: 429, Message: "rate limited"}
		}
		return "ok", nil
	}

	cfg := DefaultConfig()
	cfg.MaxInFlight = 1
	cfg.PollInterval = time.Millisecond
	c := NewClient(svc, cfg, nil)

	var freeDuringBackoff bool
	c.sleep = func(time.Duration) {
		select {
		case c.sem <- struct{}{}:
			freeDuringBackoff = true
			<-c.sem
		default:
		}
	}

	got, err := c.RunPrompt(context.Background(), nil, "p", "task")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.True(t, freeDuringBackoff, "backoff wait should not hold the in-flight slot")
}

func TestClient_ContextCancelled(t *testing.T) {
	svc := &stuckService{fakeService: newFakeService()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(svc).RunPrompt(ctx, nil, "p", "task")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_SemaphoreAllowsConcurrentCalls(t *testing.T) {
	svc := newFakeService()
	svc.Delay = 5 * time.Millisecond
	c := testClient(svc)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.RunPrompt(context.Background(), nil, "p", "task")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", genai.APIError{Code: 429}, true},
		{"server error", genai.APIError{Code: 500}, true},
		{"bad gateway pointer", &genai.APIError{Code: 502}, true},
		{"bad request", genai.APIError{Code: 400}, false},
		{"unauthorized", genai.APIError{Code: 401}, false},
		{"plain", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}
