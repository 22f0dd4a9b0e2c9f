// Package tender analyzes tender document sets with AI models. It registers
// PDF and DOCX files with the Gemini Files API, extracts dates, requirements,
// folder structures, and client information from each file concurrently,
// merges the per-file findings into consolidated views, and produces a
// tender summary and a Markdown report.
//
// # Pipeline
//
// One Analyze call runs the full pipeline:
//
//   - Registration: each document is uploaded once and referenced by an
//     opaque DocRef until it is released.
//   - Per-file extraction: four category prompts run against every file,
//     batched and bounded by the configured concurrency limits.
//   - Date fallback: when the model finds no dates in a file, a
//     deterministic pattern scan over the raw document text fills in.
//   - Synthesis: per-category results from all session files merge into
//     one consolidated text per category.
//   - Summary: a tender-wide summary, generated in one request for small
//     sets and batch-merged for large ones.
//
// Results are incremental: documents already analyzed in the session keep
// their results and are skipped on later calls.
//
// # Basic Usage
//
//	ctx := context.Background()
//	client, _ := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
//	svc, _ := tender.NewGenAIService(client, "gemini-2.5-flash", nil)
//	prompts, _ := tender.DefaultPrompts()
//
//	a := tender.NewAnalyzer(svc, prompts, tender.DefaultConfig())
//	doc, _ := tender.NewDocument("tender_main.pdf", data, 0)
//	outcome, err := a.Analyze(ctx, []*tender.Document{doc})
//	fmt.Println(tender.BuildReport(outcome, true))
//
// # Simulation Mode
//
// NewSimulatedService answers every prompt from an embedded fixture with
// the same shapes as the live service, so the whole pipeline can run
// without credentials or network access:
//
//	svc, _ := tender.NewSimulatedService(nil)
//	a := tender.NewAnalyzer(svc, prompts, tender.Config{Simulate: true})
//
// # Failure Model
//
// A failed extraction never aborts the run. Transient service errors are
// retried with exponential backoff; terminal failures become descriptive
// result strings, so one broken file or category leaves the rest of the
// analysis intact.
package tender
