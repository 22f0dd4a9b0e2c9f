package tender

import (
	"fmt"
	"strings"
)

// PlanNode is one operation in a planned analysis run. EstCost is an
// abstract unit for comparing plans; dollar costs come from Price applied
// to the token estimates.
type PlanNode struct {
	Label        string
	Model        string
	InputTokens  int
	OutputTokens int
	EstCost      float64
	Children     []*PlanNode
}

// AnalysisPlan describes what an Analyze call will do before any service
// request is made: how many prompt calls, in what shape, at what estimated
// token volume. Useful for previewing cost against a large upload.
type AnalysisPlan struct {
	Root       *PlanNode
	CallCount  int
	DocCount   int
	BatchCount int
}

// ModelPrice is the per-1000-token cost of a model.
type ModelPrice struct {
	PromptTokCost     float64
	CompletionTokCost float64
}

// DefaultModelPricing returns input/output token costs (USD per 1K tokens)
// for the models the analyzer is normally run against.
func DefaultModelPricing() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gemini-2.5-pro":   {PromptTokCost: 0.00125, CompletionTokCost: 0.0100},
		"gemini-2.5-flash": {PromptTokCost: 0.00030, CompletionTokCost: 0.0025},
		"gemini-2.0-flash": {PromptTokCost: 0.00015, CompletionTokCost: 0.0006},
		"gemini-1.5-pro":   {PromptTokCost: 0.00125, CompletionTokCost: 0.0050},
		"gemini-1.5-flash": {PromptTokCost: 0.000075, CompletionTokCost: 0.00030},
	}
}

// EstimateTokensFromText gives a rough token estimate from text length,
// about four characters per token for English text.
func EstimateTokensFromText(text string) int {
	return (len(text) + 3) / 4
}

const (
	extractionPromptTokens = 180
	extractionOutputTokens = 250
	synthesisOutputTokens  = 400
	summaryOutputTokens    = 350
)

// PlanAnalysis builds the execution plan for analyzing docs under cfg. The
// plan mirrors the real pipeline: per-file category extractions in batches,
// four synthesis calls, then a summary that is single-shot or batched
// depending on the document count.
func PlanAnalysis(docs []*Document, cfg Config) *AnalysisPlan {
	cfg = cfg.withDefaults()

	root := &PlanNode{Label: "TenderAnalysis", Model: cfg.Model}
	calls := 0

	batches := 0
	for start := 0; start < len(docs); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(docs))
		batches++
		batchNode := &PlanNode{Label: fmt.Sprintf("Batch %d", batches)}
		for _, doc := range docs[start:end] {
			docTokens := EstimateTokensFromText(string(doc.Data)) / 8
			fileNode := &PlanNode{Label: doc.Name}
			for _, c := range Categories {
				fileNode.Children = append(fileNode.Children, &PlanNode{
					Label:        fmt.Sprintf("Extract %s", c.Title()),
					Model:        cfg.Model,
					InputTokens:  extractionPromptTokens + docTokens,
					OutputTokens: extractionOutputTokens,
				})
				calls++
			}
			batchNode.Children = append(batchNode.Children, fileNode)
		}
		root.Children = append(root.Children, batchNode)
	}

	synthNode := &PlanNode{Label: "Synthesis"}
	synthInput := len(docs) * extractionOutputTokens
	for _, c := range Categories {
		synthNode.Children = append(synthNode.Children, &PlanNode{
			Label:        fmt.Sprintf("Synthesize %s", c.Title()),
			Model:        cfg.Model,
			InputTokens:  extractionPromptTokens + synthInput,
			OutputTokens: synthesisOutputTokens,
		})
		calls++
	}
	root.Children = append(root.Children, synthNode)

	summaryNode := planSummary(docs, cfg, &calls)
	root.Children = append(root.Children, summaryNode)

	rollupCost(root)
	return &AnalysisPlan{
		Root:       root,
		CallCount:  calls,
		DocCount:   len(docs),
		BatchCount: batches,
	}
}

func planSummary(docs []*Document, cfg Config, calls *int) *PlanNode {
	node := &PlanNode{Label: "Summary"}
	if len(docs) <= cfg.SummaryBatchThreshold {
		node.Children = append(node.Children, &PlanNode{
			Label:        "Tender summary",
			Model:        cfg.Model,
			InputTokens:  extractionPromptTokens,
			OutputTokens: summaryOutputTokens,
		})
		*calls++
		return node
	}
	for start := 0; start < len(docs); start += cfg.BatchSize {
		node.Children = append(node.Children, &PlanNode{
			Label:        fmt.Sprintf("Summary batch %d", start/cfg.BatchSize+1),
			Model:        cfg.Model,
			InputTokens:  extractionPromptTokens,
			OutputTokens: summaryOutputTokens,
		})
		*calls++
	}
	node.Children = append(node.Children, &PlanNode{
		Label:        "Merge summaries",
		Model:        cfg.Model,
		InputTokens:  len(node.Children) * summaryOutputTokens,
		OutputTokens: summaryOutputTokens,
	})
	*calls++
	return node
}

// rollupCost assigns abstract costs bottom-up: a leaf call costs a base
// unit plus its token volume, a branch the sum of its children.
func rollupCost(node *PlanNode) {
	if len(node.Children) == 0 {
		node.EstCost = 3.0 + float64(node.InputTokens)*0.01
		return
	}
	for _, child := range node.Children {
		rollupCost(child)
		node.EstCost += child.EstCost
	}
}

// EstimateCost prices the plan against a pricing table. Nodes whose model
// is absent from the table contribute nothing.
func (p *AnalysisPlan) EstimateCost(pricing map[string]ModelPrice) float64 {
	var walk func(*PlanNode) float64
	walk = func(n *PlanNode) float64 {
		total := 0.0
		if len(n.Children) == 0 {
			if price, ok := pricing[n.Model]; ok {
				total += float64(n.InputTokens) * price.PromptTokCost / 1000.0
				total += float64(n.OutputTokens) * price.CompletionTokCost / 1000.0
			}
		}
		for _, child := range n.Children {
			total += walk(child)
		}
		return total
	}
	return walk(p.Root)
}

// String renders the plan as an ASCII tree.
func (p *AnalysisPlan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tender Analysis Plan (%d documents, %d calls)\n", p.DocCount, p.CallCount)
	formatPlanNode(p.Root, "", true, &sb)
	return sb.String()
}

func formatPlanNode(node *PlanNode, prefix string, isLast bool, sb *strings.Builder) {
	connector := "├─ "
	if isLast {
		connector = "└─ "
	}
	if prefix == "" {
		connector = ""
	}

	sb.WriteString(prefix + connector + planNodeInfo(node) + "\n")

	childPrefix := prefix
	if prefix == "" {
		childPrefix = "  "
	} else if isLast {
		childPrefix += "   "
	} else {
		childPrefix += "│  "
	}
	for i, child := range node.Children {
		formatPlanNode(child, childPrefix, i == len(node.Children)-1, sb)
	}
}

func planNodeInfo(node *PlanNode) string {
	parts := []string{node.Label}
	var details []string
	if node.Model != "" && len(node.Children) == 0 {
		details = append(details, fmt.Sprintf("model=%s", node.Model))
	}
	details = append(details, fmt.Sprintf("cost=%.1f", node.EstCost))
	if node.InputTokens > 0 || node.OutputTokens > 0 {
		details = append(details, fmt.Sprintf("tokens(in=%d,out=%d)", node.InputTokens, node.OutputTokens))
	}
	parts = append(parts, "("+strings.Join(details, ", ")+")")
	return strings.Join(parts, " ")
}
