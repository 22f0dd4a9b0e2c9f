package tender

import (
	"fmt"
	"sync"
)

// SessionStore holds the state that survives across Analyze calls: the
// documents seen so far, their per-file results, and the latest synthesis
// and summary. Implementations must be safe for concurrent use.
type SessionStore interface {
	// PutDocument records a document. A second document with the same
	// name fails with ErrDuplicateName.
	PutDocument(doc Document) error
	// Documents returns all recorded documents in insertion order.
	Documents() []Document

	// PutFileResult stores the per-file extraction results for a document.
	PutFileResult(name string, res PerFileResult)
	// FileResult looks up results by document name.
	FileResult(name string) (PerFileResult, bool)
	// FileResults returns results for every document that has them, in
	// document insertion order.
	FileResults() []PerFileResult

	// PutSynthesis stores the cross-file synthesis for one category.
	PutSynthesis(c Category, text string)
	Synthesis(c Category) string

	PutSummary(text string)
	Summary() string

	// Reset drops all state.
	Reset()
}

// MemoryStore is the default in-process SessionStore.
type MemoryStore struct {
	mu        sync.Mutex
	docs      []Document
	results   map[string]PerFileResult
	synthesis map[Category]string
	summary   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:   make(map[string]PerFileResult),
		synthesis: make(map[Category]string),
	}
}

func (s *MemoryStore) PutDocument(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Name == doc.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, doc.Name)
		}
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *MemoryStore) Documents() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *MemoryStore) PutFileResult(name string, res PerFileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = res
}

func (s *MemoryStore) FileResult(name string) (PerFileResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[name]
	return res, ok
}

func (s *MemoryStore) FileResults() []PerFileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PerFileResult, 0, len(s.results))
	for _, d := range s.docs {
		if res, ok := s.results[d.Name]; ok {
			out = append(out, res)
		}
	}
	return out
}

func (s *MemoryStore) PutSynthesis(c Category, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesis[c] = text
}

func (s *MemoryStore) Synthesis(c Category) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synthesis[c]
}

func (s *MemoryStore) PutSummary(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = text
}

func (s *MemoryStore) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.results = make(map[string]PerFileResult)
	s.synthesis = make(map[Category]string)
	s.summary = ""
}
