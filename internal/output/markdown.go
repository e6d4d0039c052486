// Package output renders session and validation reports as markdown files.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/strrl/neuropipe/internal/clinical"
	"github.com/strrl/neuropipe/internal/pipeline"
	"github.com/strrl/neuropipe/internal/signals"
)

type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Report bundles everything one session report covers. Validation is
// optional; a nil summary skips that section.
type Report struct {
	SessionID   string
	Stats       pipeline.Stats
	KPIs        signals.SessionKPIs
	StateCounts map[signals.NeuralState]int
	Validation  *clinical.ValidationSummary
}

// Generate writes the session report and returns the file path.
func (g *Generator) Generate(r Report) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := filepath.Join(g.outputDir, fmt.Sprintf("session-%s.md", r.SessionID))
	if err := os.WriteFile(filename, []byte(Render(r)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return filename, nil
}

// Render produces the report markdown.
func Render(r Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Session %s\n\n", r.SessionID))

	sb.WriteString("## Throughput\n\n")
	sb.WriteString(fmt.Sprintf("- **Submitted:** %d\n", r.Stats.Submitted))
	sb.WriteString(fmt.Sprintf("- **Processed:** %d\n", r.Stats.Processed))
	sb.WriteString(fmt.Sprintf("- **Rejected (backpressure):** %d\n", r.Stats.Rejected))
	sb.WriteString(fmt.Sprintf("- **Invalid buffers:** %d\n\n", r.Stats.Invalid))

	sb.WriteString("## Session KPIs\n\n")
	sb.WriteString("| KPI | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Engagement level | %.3f |\n", r.KPIs.EngagementLevel))
	sb.WriteString(fmt.Sprintf("| Learning efficiency | %.3f |\n", r.KPIs.LearningEfficiency))
	sb.WriteString(fmt.Sprintf("| Retention correlation | %.3f |\n", r.KPIs.RetentionCorrelation))
	sb.WriteString(fmt.Sprintf("| Adaptation speed | %.3f |\n", r.KPIs.AdaptationSpeed))
	sb.WriteString(fmt.Sprintf("| Windows | %d |\n\n", r.KPIs.WindowCount))

	if len(r.StateCounts) > 0 {
		sb.WriteString("## Neural states\n\n")
		for state := signals.StateResting; state <= signals.StateConsolidating; state++ {
			if count, ok := r.StateCounts[state]; ok {
				sb.WriteString(fmt.Sprintf("- **%s:** %d windows\n", state, count))
			}
		}
		sb.WriteString("\n")
	}

	if r.Validation != nil {
		sb.WriteString(renderValidation(r.Validation))
	}

	return sb.String()
}

func renderValidation(summary *clinical.ValidationSummary) string {
	var sb strings.Builder

	sb.WriteString("## Clinical validation\n\n")
	sb.WriteString(fmt.Sprintf("**Threshold:** %.2f, **Pass rate:** %.0f%%", summary.Threshold, summary.PassRate*100))
	if summary.PassedAll {
		sb.WriteString(" (all equations passed)")
	}
	sb.WriteString("\n\n")

	sb.WriteString("| Equation | Raw | Score | Passed | Diagnostic |\n|---|---|---|---|---|\n")
	for _, res := range summary.Results {
		passed := "no"
		if res.Passed {
			passed = "yes"
		}
		diagnostic := res.Diagnostic
		if diagnostic == "" {
			diagnostic = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %.3f | %.3f | %s | %s |\n",
			res.Name, res.Raw, res.Score, passed, diagnostic))
	}
	sb.WriteString("\n")

	return sb.String()
}
