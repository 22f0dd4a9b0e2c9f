package tender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/genai"
)

// Client wraps an ExtractionService with the policies every call shares:
// a bounded semaphore over in-flight requests, retry with exponential
// backoff on transient failures, and a poll loop with a deadline. Terminal
// task failures come back as descriptive result strings, not errors, so a
// single bad task never sinks its siblings.
type Client struct {
	svc ExtractionService
	cfg Config
	log *slog.Logger
	sem chan struct{}

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewClient builds a client; cfg zero values fall back to defaults.
func NewClient(svc ExtractionService, cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Client{
		svc:   svc,
		cfg:   cfg,
		log:   log,
		sem:   make(chan struct{}, cfg.MaxInFlight),
		sleep: time.Sleep,
	}
}

// RunPrompt submits one prompt over the referenced documents and waits for
// the result. refs may be empty for synthesis calls that carry everything
// in the prompt. taskName labels log lines and error strings.
//
// The returned error covers transport problems that survived the retry
// budget; a job that reaches failed/cancelled is a business outcome and
// comes back as (errorString, nil).
func (c *Client) RunPrompt(ctx context.Context, refs []DocRef, prompt, taskName string) (string, error) {
	var text string
	var terminal string
	err := c.retryable(ctx, taskName, func() error {
		// The semaphore slot is held per attempt, so backoff waits do
		// not consume in-flight capacity.
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-c.sem }()

		t, term, err := c.runOnce(ctx, refs, prompt, taskName)
		text, terminal = t, term
		return err
	})
	if err != nil {
		return "", err
	}
	if terminal != "" {
		return terminal, nil
	}
	c.logRawResponse(taskName, text, c.svc.Source())
	return text, nil
}

// runOnce performs a single submit/poll/fetch cycle. A failed or cancelled
// job is reported through the terminal return, not the error, so the retry
// wrapper leaves it alone.
func (c *Client) runOnce(ctx context.Context, refs []DocRef, prompt, taskName string) (text, terminal string, err error) {
	handle, err := c.svc.Submit(ctx, prompt, refs)
	if err != nil {
		return "", "", err
	}

	deadline := time.Now().Add(c.cfg.PollDeadline)
	for {
		status, err := c.svc.Poll(ctx, handle)
		if err != nil {
			return "", "", err
		}
		if status.Terminal() {
			if status == JobCompleted {
				text, err := c.svc.Fetch(ctx, handle)
				if err != nil {
					return "", "", err
				}
				return text, "", nil
			}
			// Reap the handle. A transient failure is worth a fresh
			// submission, anything else only goes to the log.
			if _, fetchErr := c.svc.Fetch(ctx, handle); fetchErr != nil {
				if isTransient(fetchErr) {
					return "", "", fetchErr
				}
				c.log.Error("task reached terminal failure", "task", taskName, "status", status, "error", fetchErr)
			}
			msg := fmt.Sprintf("%s failed with status: %s", taskName, status)
			c.log.Error(msg)
			return "", msg, nil
		}

		if time.Now().After(deadline) {
			msg := fmt.Sprintf("%s: %s", taskName, ErrPollDeadline)
			c.log.Error(msg)
			c.reap(handle, taskName)
			return "", msg, nil
		}
		select {
		case <-ctx.Done():
			c.reap(handle, taskName)
			return "", "", ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// reap collects an abandoned job's handle once the job finishes, so the
// service does not keep its entry alive forever. The result is discarded.
func (c *Client) reap(handle JobHandle, taskName string) {
	go func() {
		if _, err := c.svc.Fetch(context.Background(), handle); err != nil {
			c.log.Warn("abandoned job reap failed", "task", taskName, "error", err)
		}
	}()
}

// retryable runs call up to MaxRetries attempts, doubling the delay from
// RetryBaseDelay up to RetryMaxDelay, but only for transient failures:
// rate limits, connection errors, and service-side timeouts.
func (c *Client) retryable(ctx context.Context, taskName string, call func() error) error {
	delay := c.cfg.RetryBaseDelay
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil {
			if attempt > 1 {
				c.log.Info("retry succeeded", "task", taskName, "attempt", attempt)
			}
			return nil
		}
		if attempt >= c.cfg.MaxRetries || !isTransient(err) {
			return err
		}
		c.log.Info("retrying after transient failure",
			"task", taskName, "attempt", attempt, "error", err, "backoff", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleep(delay)
		delay *= 2
		if delay > c.cfg.RetryMaxDelay {
			delay = c.cfg.RetryMaxDelay
		}
	}
}

// logRawResponse records the response truncated to a bounded length.
func (c *Client) logRawResponse(taskName, response, source string) {
	const limit = 1000
	if len(response) > limit {
		response = response[:limit] + "... (truncated)"
	}
	c.log.Info("raw response", "task", taskName, "source", source, "response", response)
}

// isTransient classifies service-layer failures worth retrying. Caller
// cancellation is not transient: retrying on a dead context only burns the
// budget.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return transientCode(apiErrPtr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var transientErr interface{ Transient() bool }
	if errors.As(err, &transientErr) {
		return transientErr.Transient()
	}
	return false
}

func transientCode(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
