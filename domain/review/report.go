package review

// Risk levels reported in a review summary.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Recommendations reported in a review summary.
const (
	RecommendApprove            = "approve"
	RecommendApproveWithChanges = "approve_with_changes"
	RecommendRequestChanges     = "request_changes"
)

// Summary is the structured top-line assessment of a pull request.
type Summary struct {
	FilesChanged   int    `json:"filesChanged"`
	LinesAdded     int    `json:"linesAdded"`
	LinesDeleted   int    `json:"linesDeleted"`
	RiskLevel      string `json:"riskLevel"`
	Recommendation string `json:"recommendation"`
}

// CategoryStat counts issues of one category at a headline severity.
type CategoryStat struct {
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

// Stats holds per-category issue counts.
type Stats struct {
	Security    CategoryStat `json:"security"`
	Bugs        CategoryStat `json:"bugs"`
	Performance CategoryStat `json:"performance"`
	Quality     CategoryStat `json:"quality"`
}

// Issue is a single finding with an optional source line.
type Issue struct {
	Severity string `json:"severity"`
	Issue    string `json:"issue"`
	Fix      string `json:"fix"`
	Line     int    `json:"line,omitempty"`
}

// Suggestion is a proposed change with a diff snippet.
type Suggestion struct {
	Description string `json:"description"`
	Diff        string `json:"diff,omitempty"`
}

// Testing assesses the test coverage of the change.
type Testing struct {
	Coverage string `json:"coverage"`
	Notes    string `json:"notes,omitempty"`
}

// Sections holds the detailed findings of a review.
type Sections struct {
	ChangeType  string       `json:"changeType"`
	Security    []Issue      `json:"security"`
	Bugs        []Issue      `json:"bugs"`
	Performance []Issue      `json:"performance"`
	Suggestions []Suggestion `json:"suggestions"`
	Positives   []string     `json:"positives"`
	Testing     Testing      `json:"testing"`
}

// Report is the full output of one AI review: the structured assessment
// plus the narrative markdown that gets posted back to the pull request.
type Report struct {
	Summary  Summary  `json:"summary"`
	Stats    Stats    `json:"stats"`
	Sections Sections `json:"sections"`
	Markdown string   `json:"-"`
}

// DefaultReport returns the conservative fallback used when the model's
// structured block is missing or malformed. The narrative is preserved
// untouched so a parsing failure never discards the review itself.
func DefaultReport(markdown string) Report {
	return Report{
		Summary: Summary{
			RiskLevel:      RiskMedium,
			Recommendation: RecommendApproveWithChanges,
		},
		Stats: Stats{
			Security:    CategoryStat{Severity: "none"},
			Bugs:        CategoryStat{Severity: "none"},
			Performance: CategoryStat{Severity: "none"},
			Quality:     CategoryStat{Severity: "none"},
		},
		Sections: Sections{
			ChangeType: "unknown",
			Testing:    Testing{Coverage: "unknown"},
		},
		Markdown: markdown,
	}
}
