package tender

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Analyzer drives the full pipeline: register documents with the extraction
// service, fan out the per-file category prompts, apply the deterministic
// date fallback, synthesize across files, summarize, and release the remote
// copies. It is incremental: documents analyzed in a previous call keep
// their results and are not re-sent.
type Analyzer struct {
	svc      ExtractionService
	client   *Client
	prompts  PromptProvider
	cfg      Config
	log      *slog.Logger
	store    SessionStore
	progress ProgressFunc
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for the analyzer and its service client.
func WithLogger(log *slog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithStore replaces the default in-memory session store.
func WithStore(store SessionStore) Option {
	return func(a *Analyzer) { a.store = store }
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) { a.progress = fn }
}

// NewAnalyzer wires an analyzer around an extraction service and a prompt
// provider. cfg zero values fall back to defaults.
func NewAnalyzer(svc ExtractionService, prompts PromptProvider, cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		svc:     svc,
		prompts: prompts,
		cfg:     cfg.withDefaults(),
		log:     slog.Default(),
		store:   NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = NewClient(svc, a.cfg, a.log)
	return a
}

// Store exposes the session store, e.g. for Reset between tenders.
func (a *Analyzer) Store() SessionStore { return a.store }

// Analyze runs the pipeline over docs. Documents whose names already have
// results in the session are skipped; synthesis and the summary always
// cover the whole session. The outcome's Results slice is ordered by
// document insertion, summary and synthesis reflect every file seen so far.
func (a *Analyzer) Analyze(ctx context.Context, docs []*Document) (*AnalysisOutcome, error) {
	newDocs, err := a.admit(docs)
	if err != nil {
		return nil, err
	}
	if len(newDocs) == 0 && len(a.store.Documents()) == 0 {
		return nil, ErrNoDocuments
	}

	tracker := newProgressTracker(len(newDocs)*len(Categories)+1, a.progress)

	registered := a.register(ctx, newDocs, tracker)
	refNames := refNames(registered)

	for start := 0; start < len(registered); start += a.cfg.BatchSize {
		end := min(start+a.cfg.BatchSize, len(registered))
		a.runBatch(ctx, registered[start:end], refNames, tracker)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	synthesis, err := a.synthesizeAll(ctx, refNames, tracker)
	if err != nil {
		return nil, err
	}

	summary := a.summarize(ctx, registered, synthesis, refNames, tracker)
	a.store.PutSummary(summary)
	tracker.step("Analysis complete")

	a.release(ctx, registered, summary)

	return &AnalysisOutcome{
		Results:   a.store.FileResults(),
		Summary:   summary,
		Synthesis: synthesis,
		Progress:  tracker.messages(),
	}, nil
}

// admit records incoming documents in the session and returns the ones that
// still need analysis. A name collision inside one call is an error; a
// collision with an already-analyzed document is a skip.
func (a *Analyzer) admit(docs []*Document) ([]*Document, error) {
	var fresh []*Document
	for _, doc := range docs {
		if _, done := a.store.FileResult(doc.Name); done {
			a.log.Info("document already analyzed, skipping", "file", doc.Name)
			continue
		}
		if err := a.store.PutDocument(*doc); err != nil {
			return nil, err
		}
		fresh = append(fresh, doc)
	}
	return fresh, nil
}

// register uploads each new document. A registration failure becomes an
// error result for every category of that document; the rest proceed.
func (a *Analyzer) register(ctx context.Context, docs []*Document, tracker *progressTracker) []*Document {
	var registered []*Document
	for _, doc := range docs {
		ref, err := a.svc.RegisterDocument(ctx, doc.Name, doc.Data, doc.MIMEType)
		if err != nil {
			a.log.Error("failed to register document", "file", doc.Name, "error", err)
			results := make(map[Category]string, len(Categories))
			for _, c := range Categories {
				results[c] = fmt.Sprintf("Error registering %s: %v", doc.Name, err)
			}
			a.store.PutFileResult(doc.Name, PerFileResult{
				Document:    doc.Name,
				Results:     results,
				DatesSource: a.source(),
			})
			for range Categories {
				tracker.step(fmt.Sprintf("Skipped %s: registration failed", doc.Name))
			}
			continue
		}
		doc.Ref = ref
		a.log.Info("document registered", "file", doc.Name, "ref", ref)
		registered = append(registered, doc)
	}
	return registered
}

// runBatch analyzes a slice of registered documents, at most FileWorkers
// files at a time.
func (a *Analyzer) runBatch(ctx context.Context, batch []*Document, refNames map[DocRef]string, tracker *progressTracker) {
	runner := NewLimitedRunner(ctx, a.cfg.FileWorkers)
	for _, doc := range batch {
		doc := doc
		runner.Go(func() error {
			a.analyzeDocument(ctx, doc, refNames, tracker)
			return nil
		})
	}
	// Tasks report failures as result strings, never through the runner.
	_ = runner.Wait()
}

// analyzeDocument fans the category prompts for one document out in
// parallel, then applies the date fallback and citation normalization.
func (a *Analyzer) analyzeDocument(ctx context.Context, doc *Document, refNames map[DocRef]string, tracker *progressTracker) {
	var (
		mu      sync.Mutex
		results = make(map[Category]string, len(Categories))
	)

	runner := NewLimitedRunner(ctx, len(Categories))
	for _, c := range Categories {
		c := c
		runner.Go(func() error {
			text := a.runCategory(ctx, doc, c)
			mu.Lock()
			results[c] = text
			mu.Unlock()
			tracker.step(fmt.Sprintf("Analyzed %s of %s", c.Title(), doc.Name))
			return nil
		})
	}
	_ = runner.Wait()

	datesSource := a.source()
	if strings.Contains(results[CategoryDates], NoInfoFound) {
		if fb, ok := a.fallbackDates(doc); ok {
			results[CategoryDates] = fb
			datesSource = SourceFallback
		}
	}

	for _, c := range Categories {
		results[c] = ReplaceCitations(results[c], refNames, doc.Name)
	}

	a.store.PutFileResult(doc.Name, PerFileResult{
		Document:    doc.Name,
		Results:     results,
		DatesSource: datesSource,
	})
}

// runCategory renders one extraction prompt and runs it against a single
// document. Failures come back as result text so sibling categories are
// unaffected.
func (a *Analyzer) runCategory(ctx context.Context, doc *Document, c Category) string {
	prompt, err := a.prompts.Render(extractionPromptTag(c), map[string]any{
		"file_name": doc.Name,
	})
	if err != nil {
		a.log.Error("prompt render failed", "category", c, "file", doc.Name, "error", err)
		return fmt.Sprintf("Error analyzing %s for %s: %v", doc.Name, c.Title(), err)
	}

	task := fmt.Sprintf("%s extraction for %s", c.Title(), doc.Name)
	text, err := a.client.RunPrompt(ctx, []DocRef{doc.Ref}, prompt, task)
	if err != nil {
		a.log.Error("extraction failed", "category", c, "file", doc.Name, "error", err)
		return fmt.Sprintf("Error analyzing %s for %s: %v", doc.Name, c.Title(), err)
	}
	return text
}

// fallbackDates derives dates from the raw document text when the model
// found none. The result is tagged so readers know it bypassed the model.
func (a *Analyzer) fallbackDates(doc *Document) (string, bool) {
	text, err := doc.PlainText()
	if err != nil {
		a.log.Warn("date fallback could not read document", "file", doc.Name, "error", err)
		return "", false
	}
	fb := ExtractDatesFallback(text, doc.Name)
	if fb == NoInfoFound {
		return "", false
	}
	a.log.Info("date fallback produced results", "file", doc.Name)
	return fb + " [fallback]", true
}

// summarize produces the tender summary over the documents registered in
// this call. Few documents go in one request; many are summarized in
// batches whose partials merge in a final pass together with the
// synthesized dates and requirements.
func (a *Analyzer) summarize(ctx context.Context, registered []*Document, synthesis map[Category]string, refNames map[DocRef]string, tracker *progressTracker) string {
	if len(registered) == 0 {
		if existing := a.store.Summary(); existing != "" {
			return existing
		}
		return NoInfoFound
	}

	tracker.note("Generating tender summary")

	refs := make([]DocRef, 0, len(registered))
	for _, doc := range registered {
		refs = append(refs, doc.Ref)
	}

	var summary string
	if len(refs) <= a.cfg.SummaryBatchThreshold {
		summary = a.summaryCall(ctx, refs, "tender summary")
	} else {
		var partials []string
		for start := 0; start < len(refs); start += a.cfg.BatchSize {
			end := min(start+a.cfg.BatchSize, len(refs))
			part := a.summaryCall(ctx, refs[start:end], fmt.Sprintf("summary batch %d", start/a.cfg.BatchSize+1))
			partials = append(partials, part)
		}
		summary = a.mergeSummaries(ctx, partials, synthesis)
	}
	return ReplaceCitations(summary, refNames, "")
}

func (a *Analyzer) summaryCall(ctx context.Context, refs []DocRef, task string) string {
	prompt, err := a.prompts.Render(PromptSummary, nil)
	if err != nil {
		a.log.Error("prompt render failed", "task", task, "error", err)
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	text, err := a.client.RunPrompt(ctx, refs, prompt, task)
	if err != nil {
		a.log.Error("summary failed", "task", task, "error", err)
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	return text
}

func (a *Analyzer) mergeSummaries(ctx context.Context, partials []string, synthesis map[Category]string) string {
	prompt, err := a.prompts.Render(PromptFinalSummary, map[string]any{
		"partial_summaries":        strings.Join(partials, "\n\n---\n\n"),
		"synthesized_dates":        synthesis[CategoryDates],
		"synthesized_requirements": synthesis[CategoryRequirements],
	})
	if err != nil {
		a.log.Error("prompt render failed", "task", "final summary", "error", err)
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	text, err := a.client.RunPrompt(ctx, nil, prompt, "final summary")
	if err != nil {
		a.log.Error("final summary failed", "error", err)
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	return text
}

// release deletes the remote document copies once nothing else will read
// them. A summary carrying an error marker keeps the documents alive for a
// retry; release failures are logged and otherwise ignored.
func (a *Analyzer) release(ctx context.Context, registered []*Document, summary string) {
	if strings.Contains(summary, "Error") {
		a.log.Warn("summary reported errors, keeping remote documents")
		return
	}
	for _, doc := range registered {
		if doc.Ref == "" {
			continue
		}
		if err := a.svc.ReleaseDocument(ctx, doc.Ref); err != nil {
			a.log.Warn("failed to release document", "file", doc.Name, "ref", doc.Ref, "error", err)
			continue
		}
		doc.Ref = ""
	}
}

// refNames maps every live document reference to its file name, for
// citation normalization.
func refNames(docs []*Document) map[DocRef]string {
	out := make(map[DocRef]string, len(docs))
	for _, doc := range docs {
		if doc.Ref != "" {
			out[doc.Ref] = doc.Name
		}
	}
	return out
}

// source maps the service's log tag onto a result source.
func (a *Analyzer) source() ResultSource {
	if a.svc.Source() == string(SourceMock) {
		return SourceMock
	}
	return SourceModel
}
