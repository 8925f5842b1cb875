// Package reviewer generates AI reviews of pull request diffs and parses
// the model output into a structured report.
package reviewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/provider"
)

const systemPrompt = `You are a senior software engineer reviewing a GitHub pull request.
You have strong expertise in clean architecture, performance optimization,
security best practices, readability, and maintainability.
Be precise, constructive, and professional. Do not repeat the diff verbatim.
Prefer actionable suggestions over vague advice. If assumptions are made,
state them clearly.`

const outputContract = `## Output Format (MANDATORY)

Start your response with a fenced json code block containing exactly this structure:

` + "```json" + `
{
  "summary": {
    "filesChanged": 0,
    "linesAdded": 0,
    "linesDeleted": 0,
    "riskLevel": "low|medium|high",
    "recommendation": "approve|approve_with_changes|request_changes"
  },
  "stats": {
    "security": {"count": 0, "severity": "none|low|medium|high"},
    "bugs": {"count": 0, "severity": "none|low|medium|high"},
    "performance": {"count": 0, "severity": "none|low|medium|high"},
    "quality": {"count": 0, "severity": "none|low|medium|high"}
  },
  "sections": {
    "changeType": "feature|bugfix|refactor|docs|chore|mixed",
    "security": [{"severity": "high", "issue": "...", "fix": "...", "line": 0}],
    "bugs": [],
    "performance": [],
    "suggestions": [{"description": "...", "diff": ""}],
    "positives": ["..."],
    "testing": {"coverage": "good|partial|missing|unknown", "notes": ""}
  }
}
` + "```" + `

After the json block, write the full narrative review in markdown with
these sections: Summary, Issues (tagged [Critical] [Major] [Minor]),
Suggestions, Improvements, and Best Practices. If no issues are found,
say so explicitly.`

// Generator turns a diff plus retrieved codebase context into a Report.
type Generator struct {
	gen    provider.TextGenerator
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(gen provider.TextGenerator, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return Generator{gen: gen, logger: logger}
}

// Model returns the model identifier reviews are attributed to.
func (g Generator) Model() string {
	return g.gen.Model()
}

// GenerateReview asks the model for a review and parses its output.
// A malformed structured block degrades to the conservative default
// report; the narrative is never lost.
func (g Generator) GenerateReview(ctx context.Context, diff, codeContext string) (review.Report, error) {
	output, err := g.gen.Complete(ctx, systemPrompt, buildUserPrompt(diff, codeContext))
	if err != nil {
		return review.Report{}, fmt.Errorf("generate review: %w", err)
	}

	report, parseErr := ParseReport(output)
	if parseErr != nil {
		g.logger.Warn("structured review block unparseable, using defaults", "error", parseErr)
		return review.DefaultReport(output), nil
	}
	return report, nil
}

func buildUserPrompt(diff, codeContext string) string {
	if codeContext == "" {
		codeContext = "No additional context available."
	}

	var b strings.Builder
	b.WriteString("## Codebase Context\n")
	b.WriteString("Use this context to understand existing patterns, conventions, and architecture.\n")
	b.WriteString("If something in the PR conflicts with the context, highlight it clearly.\n\n")
	b.WriteString(codeContext)
	b.WriteString("\n\n## Pull Request Diff\n")
	b.WriteString("Analyze the following changes carefully:\n\n")
	b.WriteString(diff)
	b.WriteString("\n\n")
	b.WriteString(outputContract)
	return b.String()
}
