package tender

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeService is an in-memory ExtractionService for tests. RespondFunc
// decides what each prompt returns; registrations, submissions, and
// releases are recorded for assertions.
type fakeService struct {
	mu sync.Mutex

	// RespondFunc maps a prompt and its refs to a response. nil means
	// every prompt answers "ok".
	RespondFunc func(prompt string, refs []DocRef) (string, error)
	// RegisterErr, when set, fails RegisterDocument for matching names.
	RegisterErr map[string]error
	// Delay stalls Fetch to exercise polling and concurrency.
	Delay time.Duration

	registered []string
	released   []DocRef
	submitted  []string
	jobs       map[JobHandle]fakeJob
	nextRef    int
	nextJob    int
}

type fakeJob struct {
	text string
	err  error
}

func newFakeService() *fakeService {
	return &fakeService{jobs: make(map[JobHandle]fakeJob)}
}

func (f *fakeService) Source() string { return "AI" }

func (f *fakeService) RegisterDocument(ctx context.Context, name string, data []byte, mimeType string) (DocRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.RegisterErr[name]; ok {
		return "", err
	}
	f.nextRef++
	f.registered = append(f.registered, name)
	return DocRef(fmt.Sprintf("ref-%d", f.nextRef)), nil
}

func (f *fakeService) ReleaseDocument(ctx context.Context, ref DocRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, ref)
	return nil
}

func (f *fakeService) Submit(ctx context.Context, prompt string, refs []DocRef) (JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, prompt)

	text, err := "ok", error(nil)
	if f.RespondFunc != nil {
		text, err = f.RespondFunc(prompt, refs)
	}
	f.nextJob++
	h := JobHandle(fmt.Sprintf("job-%d", f.nextJob))
	f.jobs[h] = fakeJob{text: text, err: err}
	return h, nil
}

func (f *fakeService) Poll(ctx context.Context, h JobHandle) (JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[h]; !ok {
		return "", ErrUnknownJob
	}
	return JobCompleted, nil
}

func (f *fakeService) Fetch(ctx context.Context, h JobHandle) (string, error) {
	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[h]
	if !ok {
		return "", ErrUnknownJob
	}
	delete(f.jobs, h)
	return job.text, job.err
}

func (f *fakeService) liveJobs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeService) registeredNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.registered))
	copy(out, f.registered)
	return out
}

func (f *fakeService) releasedRefs() []DocRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DocRef, len(f.released))
	copy(out, f.released)
	return out
}

func (f *fakeService) submittedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// newAnalyzerForTesting wires an analyzer around a fake service with fast
// timing so tests never sleep for real backoff intervals.
func newAnalyzerForTesting(svc ExtractionService, opts ...Option) (*Analyzer, error) {
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Simulate = true
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.PollDeadline = time.Second
	return NewAnalyzer(svc, prompts, cfg, opts...), nil
}
