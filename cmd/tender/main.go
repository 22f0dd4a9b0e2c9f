// Command tender analyzes a set of tender documents and writes a Markdown
// report. Credentials and model selection come from TENDER_* environment
// variables; flags override them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	tender "github.com/vivaneiona/genkit-tender"
)

const envPrefix = "TENDER_"

type cliOptions struct {
	apiKey   string
	model    string
	simulate bool
	outPath  string
	perFile  bool
	verbose  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "tender",
		Short: "Analyze tender documents with AI extraction",
		Long: `tender extracts dates, requirements, folder structures, and client
information from PDF and DOCX tender documents, synthesizes the findings
across files, and writes a consolidated Markdown report.`,
		SilenceUsage: true,
	}

	analyze := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze tender files and write a report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(opts)
			return runAnalyze(cmd.Context(), opts, args)
		},
	}
	analyze.Flags().StringVar(&opts.apiKey, "api-key", "", "Gemini API key (env: TENDER_API_KEY)")
	analyze.Flags().StringVar(&opts.model, "model", "", "assistant model (env: TENDER_MODEL)")
	analyze.Flags().BoolVar(&opts.simulate, "simulate", false, "answer from the embedded fixture instead of the API")
	analyze.Flags().StringVarP(&opts.outPath, "out", "o", "", "write the report to a file instead of stdout")
	analyze.Flags().BoolVar(&opts.perFile, "per-file", false, "include per-file breakdowns in the report")
	analyze.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	plan := &cobra.Command{
		Use:   "plan [files...]",
		Short: "Preview the calls and estimated cost of an analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(opts)
			return runPlan(opts, args)
		},
	}
	plan.Flags().StringVar(&opts.model, "model", "", "assistant model (env: TENDER_MODEL)")

	root.AddCommand(analyze, plan)
	return root
}

// loadEnv fills unset options from TENDER_* environment variables.
func loadEnv(opts *cliOptions) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return
	}
	if opts.apiKey == "" {
		opts.apiKey = k.String("api_key")
	}
	if opts.model == "" {
		opts.model = k.String("model")
	}
}

func runAnalyze(ctx context.Context, opts *cliOptions, paths []string) error {
	log := newLogger(opts.verbose)

	cfg := tender.DefaultConfig()
	cfg.APIKey = opts.apiKey
	cfg.Model = opts.model
	cfg.Simulate = opts.simulate
	cfg.IncludePerFile = opts.perFile
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	prompts, err := tender.DefaultPrompts()
	if err != nil {
		return err
	}

	docs, err := loadDocuments(paths, cfg.MaxDocumentSize)
	if err != nil {
		return err
	}

	analyzer := tender.NewAnalyzer(svc, prompts, cfg,
		tender.WithLogger(log),
		tender.WithProgress(func(fraction float64, message string) {
			fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", fraction*100, message)
		}),
	)
	outcome, err := analyzer.Analyze(ctx, docs)
	if err != nil {
		return err
	}

	report := tender.BuildReport(outcome, cfg.IncludePerFile)
	if opts.outPath == "" {
		fmt.Print(report)
		return nil
	}
	if err := os.WriteFile(opts.outPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info("report written", "path", opts.outPath)
	return nil
}

func runPlan(opts *cliOptions, paths []string) error {
	cfg := tender.DefaultConfig()
	cfg.Model = opts.model

	docs, err := loadDocuments(paths, cfg.MaxDocumentSize)
	if err != nil {
		return err
	}

	plan := tender.PlanAnalysis(docs, cfg)
	fmt.Print(plan.String())
	if cost := plan.EstimateCost(tender.DefaultModelPricing()); cost > 0 {
		fmt.Printf("Estimated cost: $%.4f\n", cost)
	}
	return nil
}

func newService(ctx context.Context, cfg tender.Config, log *slog.Logger) (tender.ExtractionService, error) {
	if cfg.Simulate {
		return tender.NewSimulatedService(log)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return tender.NewGenAIService(client, cfg.Model, log)
}

func loadDocuments(paths []string, maxSize int64) ([]*tender.Document, error) {
	docs := make([]*tender.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := tender.NewDocument(filepath.Base(path), data, maxSize)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
