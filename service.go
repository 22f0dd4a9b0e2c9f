package tender

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GenAIService implements ExtractionService on top of the Gemini API.
// Documents live in the Files API between registration and release; prompt
// jobs run GenerateContent in the background so the caller can poll them
// through the same submit/poll/fetch shape the simulated service has.
type GenAIService struct {
	client *genai.Client
	model  string
	log    *slog.Logger

	mu    sync.Mutex
	files map[DocRef]*registeredFile
	jobs  map[JobHandle]*generateJob
}

type registeredFile struct {
	name     string // display name
	remote   string // Files API resource name
	uri      string
	mimeType string
}

type generateJob struct {
	done   chan struct{}
	status JobStatus
	text   string
	err    error
}

// NewGenAIService wraps an authenticated genai client. model is the
// assistant model identifier used for every generation call.
func NewGenAIService(client *genai.Client, model string, log *slog.Logger) (*GenAIService, error) {
	if model == "" {
		return nil, ErrMissingModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &GenAIService{
		client: client,
		model:  model,
		log:    log,
		files:  make(map[DocRef]*registeredFile),
		jobs:   make(map[JobHandle]*generateJob),
	}, nil
}

// Source implements ExtractionService.
func (s *GenAIService) Source() string { return "AI" }

// RegisterDocument uploads the document bytes to the Files API and waits
// for the remote copy to become usable. The returned DocRef is the Files
// API resource name.
func (s *GenAIService) RegisterDocument(ctx context.Context, name string, data []byte, mimeType string) (DocRef, error) {
	// UploadFromPath wants a file on disk; stage the bytes in a temp file
	// that carries the right extension for server-side sniffing.
	tmp, err := os.CreateTemp("", "tmp*"+extensionOf(name))
	if err != nil {
		return "", fmt.Errorf("stage upload for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			s.log.Warn("failed to clean up staged upload", "path", tmpPath, "error", rmErr)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("stage upload for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("stage upload for %s: %w", name, err)
	}

	file, err := s.client.Files.UploadFromPath(ctx, tmpPath, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: name,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	s.log.Debug("uploaded document", "name", name, "remote", file.Name, "state", file.State)

	// The file may need server-side processing before it can back a
	// generation request.
	for file.State != "ACTIVE" {
		if file.State == "FAILED" {
			return "", fmt.Errorf("upload %s: remote processing failed", name)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		file, err = s.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return "", fmt.Errorf("poll upload %s: %w", name, err)
		}
	}

	ref := DocRef(file.Name)
	s.mu.Lock()
	s.files[ref] = &registeredFile{
		name:     name,
		remote:   file.Name,
		uri:      file.URI,
		mimeType: file.MIMEType,
	}
	s.mu.Unlock()
	return ref, nil
}

// ReleaseDocument deletes the remote copy.
func (s *GenAIService) ReleaseDocument(ctx context.Context, ref DocRef) error {
	s.mu.Lock()
	rf, ok := s.files[ref]
	delete(s.files, ref)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("release %s: not registered", ref)
	}
	if _, err := s.client.Files.Delete(ctx, rf.remote, nil); err != nil {
		return fmt.Errorf("release %s: %w", rf.name, err)
	}
	return nil
}

// Submit starts a generation run over the referenced documents and returns
// a handle the caller polls until a terminal state.
func (s *GenAIService) Submit(ctx context.Context, prompt string, refs []DocRef) (JobHandle, error) {
	var parts []*genai.Part
	s.mu.Lock()
	for _, ref := range refs {
		rf, ok := s.files[ref]
		if !ok {
			s.mu.Unlock()
			return "", fmt.Errorf("submit: document %s not registered", ref)
		}
		parts = append(parts, genai.NewPartFromFile(genai.File{
			URI:      rf.uri,
			MIMEType: rf.mimeType,
		}))
	}
	s.mu.Unlock()
	parts = append(parts, genai.NewPartFromText(prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	job := &generateJob{done: make(chan struct{}), status: JobRunning}
	handle := JobHandle(uuid.NewString())
	s.mu.Lock()
	s.jobs[handle] = job
	s.mu.Unlock()

	go func() {
		defer close(job.done)
		resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			job.status = JobFailed
			job.err = err
			return
		}
		text, err := responseText(resp)
		if err != nil {
			job.status = JobFailed
			job.err = err
			return
		}
		job.status = JobCompleted
		job.text = text
	}()

	return handle, nil
}

// Poll implements ExtractionService.
func (s *GenAIService) Poll(ctx context.Context, h JobHandle) (JobStatus, error) {
	s.mu.Lock()
	job, ok := s.jobs[h]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("poll: %w (%s)", ErrUnknownJob, h)
	}
	status := job.status
	s.mu.Unlock()
	return status, nil
}

// Fetch returns the finished job's text (or its failure) and reaps the
// handle; the handle is invalid afterwards.
func (s *GenAIService) Fetch(ctx context.Context, h JobHandle) (string, error) {
	s.mu.Lock()
	job, ok := s.jobs[h]
	delete(s.jobs, h)
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("fetch: %w (%s)", ErrUnknownJob, h)
	}
	<-job.done
	return job.text, job.err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no parts in candidate content")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in candidate content")
	}
	return b.String(), nil
}

func extensionOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
