package reviewer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeowl/codeowl/domain/review"
)

const structuredOutput = "```json\n" + `{
  "summary": {
    "filesChanged": 2,
    "linesAdded": 40,
    "linesDeleted": 3,
    "riskLevel": "low",
    "recommendation": "approve"
  },
  "stats": {
    "security": {"count": 0, "severity": "none"},
    "bugs": {"count": 1, "severity": "low"},
    "performance": {"count": 0, "severity": "none"},
    "quality": {"count": 0, "severity": "none"}
  },
  "sections": {
    "changeType": "feature",
    "security": [],
    "bugs": [{"severity": "low", "issue": "off by one", "fix": "use <=", "line": 12}],
    "performance": [],
    "suggestions": [{"description": "extract helper"}],
    "positives": ["tests included"],
    "testing": {"coverage": "good"}
  }
}` + "\n```\n\n### Summary\nSolid change.\n"

type fakeTextGenerator struct {
	output string
	err    error

	lastSystem string
	lastUser   string
}

func (f *fakeTextGenerator) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.output, f.err
}

func (f *fakeTextGenerator) Model() string { return "test-model" }

func TestParseReport_Structured(t *testing.T) {
	report, err := ParseReport(structuredOutput)
	require.NoError(t, err)

	require.Equal(t, 2, report.Summary.FilesChanged)
	require.Equal(t, review.RiskLow, report.Summary.RiskLevel)
	require.Equal(t, review.RecommendApprove, report.Summary.Recommendation)
	require.Equal(t, 1, report.Stats.Bugs.Count)
	require.Equal(t, "feature", report.Sections.ChangeType)
	require.Len(t, report.Sections.Bugs, 1)
	require.Equal(t, 12, report.Sections.Bugs[0].Line)
	require.Equal(t, "good", report.Sections.Testing.Coverage)

	require.Equal(t, "### Summary\nSolid change.", report.Markdown)
	require.NotContains(t, report.Markdown, "```json")
}

func TestParseReport_UntaggedFence(t *testing.T) {
	output := strings.Replace(structuredOutput, "```json", "```", 1)
	report, err := ParseReport(output)
	require.NoError(t, err)
	require.Equal(t, review.RecommendApprove, report.Summary.Recommendation)
}

func TestParseReport_NoBlock(t *testing.T) {
	_, err := ParseReport("### Summary\nLooks fine to me.")
	require.ErrorIs(t, err, ErrNoStructuredBlock)
}

func TestParseReport_FenceWithoutJSON(t *testing.T) {
	_, err := ParseReport("```\nfunc main() {}\n```\nnarrative")
	require.ErrorIs(t, err, ErrNoStructuredBlock)
}

func TestParseReport_MalformedJSON(t *testing.T) {
	_, err := ParseReport("```json\n{\"summary\": \n```")
	require.Error(t, err)
}

func TestGenerateReview_Structured(t *testing.T) {
	gen := &fakeTextGenerator{output: structuredOutput}
	g := NewGenerator(gen, nil)

	report, err := g.GenerateReview(context.Background(), "diff --git a/x b/x", "ctx chunk")
	require.NoError(t, err)
	require.Equal(t, review.RecommendApprove, report.Summary.Recommendation)

	require.Contains(t, gen.lastUser, "diff --git a/x b/x")
	require.Contains(t, gen.lastUser, "ctx chunk")
	require.Contains(t, gen.lastSystem, "senior software engineer")
}

func TestGenerateReview_FallsBackToDefaults(t *testing.T) {
	narrative := "### Summary\nAll good, no JSON here."
	g := NewGenerator(&fakeTextGenerator{output: narrative}, nil)

	report, err := g.GenerateReview(context.Background(), "diff", "")
	require.NoError(t, err)

	require.Equal(t, review.RiskMedium, report.Summary.RiskLevel)
	require.Equal(t, review.RecommendApproveWithChanges, report.Summary.Recommendation)
	require.Zero(t, report.Stats.Security.Count)
	require.Equal(t, "unknown", report.Sections.Testing.Coverage)
	require.Equal(t, narrative, report.Markdown)
}

func TestGenerateReview_EmptyContext(t *testing.T) {
	gen := &fakeTextGenerator{output: structuredOutput}
	g := NewGenerator(gen, nil)

	_, err := g.GenerateReview(context.Background(), "diff", "")
	require.NoError(t, err)
	require.Contains(t, gen.lastUser, "No additional context available.")
}
