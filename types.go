package tender

import (
	"context"
	"errors"
	"strings"
)

// NoInfoFound is the sentinel an extraction returns when a document holds
// nothing for the requested category. It is a valid terminal value, not an
// error.
const NoInfoFound = "NO_INFO_FOUND"

// Category identifies one of the per-document extraction tasks.
type Category string

const (
	CategoryDates           Category = "dates"
	CategoryRequirements    Category = "requirements"
	CategoryFolderStructure Category = "folder_structure"
	CategoryClientInfo      Category = "client_info"
)

// Categories lists every extraction category in report order.
var Categories = []Category{
	CategoryDates,
	CategoryRequirements,
	CategoryFolderStructure,
	CategoryClientInfo,
}

// Title returns the human-readable label used in logs and reports.
func (c Category) Title() string {
	switch c {
	case CategoryDates:
		return "Dates"
	case CategoryRequirements:
		return "Requirements"
	case CategoryFolderStructure:
		return "Folder Structure"
	case CategoryClientInfo:
		return "Client Info"
	}
	return string(c)
}

// DocRef is the opaque identifier the extraction service hands back when a
// document is registered. Exactly one DocRef exists per live document; it
// must be released after last use.
type DocRef string

// JobHandle identifies a submitted extraction job until it reaches a
// terminal state.
type JobHandle string

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status ends the poll loop.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ExtractionService is the boundary to the hosted model capability. The
// live implementation talks to the Gemini API; the simulated one serves
// canned fixtures with identical shapes so callers cannot tell them apart.
type ExtractionService interface {
	RegisterDocument(ctx context.Context, name string, data []byte, mimeType string) (DocRef, error)
	ReleaseDocument(ctx context.Context, ref DocRef) error
	Submit(ctx context.Context, prompt string, refs []DocRef) (JobHandle, error)
	Poll(ctx context.Context, h JobHandle) (JobStatus, error)
	Fetch(ctx context.Context, h JobHandle) (string, error)
	// Source tags log lines produced from this service's responses,
	// e.g. "AI" or "Mock".
	Source() string
}

// Runner lets the analyzer schedule work with any concurrency model.
type Runner interface {
	Go(fn func() error) // schedule
	Wait() error        // join / propagate first err
}

// ResultSource records where a category result came from.
type ResultSource string

const (
	SourceModel    ResultSource = "AI"
	SourceMock     ResultSource = "Mock"
	SourceFallback ResultSource = "Fallback"
)

// PerFileResult holds one result string per category for a single document.
// A result may be extracted text, NoInfoFound, or an error message; errors
// are data at this layer so sibling categories keep their values.
type PerFileResult struct {
	Document    string
	Results     map[Category]string
	DatesSource ResultSource
}

// AnalysisOutcome is what one Analyze invocation returns: per-file results
// for every document in the session (index i belongs to document i), the
// tender summary, the per-category synthesized texts, and the progress log.
type AnalysisOutcome struct {
	Results   []PerFileResult
	Summary   string
	Synthesis map[Category]string
	Progress  []string
}

// Sentinel errors surfaced by the package.
var (
	ErrNoDocuments      = errors.New("no documents provided")
	ErrDuplicateName    = errors.New("duplicate document name")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	ErrEmptyDocument    = errors.New("document is empty")
	ErrMissingModel     = errors.New("assistant model not specified")
	ErrMissingAPIKey    = errors.New("API key not specified")
	ErrUnknownJob       = errors.New("unknown job handle")
	ErrPollDeadline     = errors.New("job did not finish before the poll deadline")
)

// emptyOrSentinel reports whether a category result carries no usable
// information for synthesis.
func emptyOrSentinel(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || trimmed == NoInfoFound
}
