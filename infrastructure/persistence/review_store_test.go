package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/internal/testdb"
)

func sampleReport() review.Report {
	return review.Report{
		Summary: review.Summary{
			FilesChanged:   3,
			LinesAdded:     120,
			LinesDeleted:   8,
			RiskLevel:      review.RiskLow,
			Recommendation: review.RecommendApprove,
		},
		Stats: review.Stats{
			Security: review.CategoryStat{Count: 1, Severity: "high"},
			Quality:  review.CategoryStat{Count: 2, Severity: "low"},
		},
		Sections: review.Sections{
			ChangeType: "feature",
			Security: []review.Issue{
				{Severity: "high", Issue: "token logged", Fix: "redact it", Line: 42},
			},
			Positives: []string{"good test coverage"},
			Testing:   review.Testing{Coverage: "good"},
		},
		Markdown: "## Review\n\nLooks solid overall.",
	}
}

func TestReviewStore_SaveRoundTrip(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewReviewStore(db)
	ctx := context.Background()

	report := sampleReport()
	saved, err := store.Save(ctx, review.NewReview(10, 20, 1, report, "gpt-4o"))
	require.NoError(t, err)
	require.NotZero(t, saved.ID())

	reviews, err := store.FindByRepository(ctx, 20)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	got := reviews[0]
	require.Equal(t, report.Summary, got.Summary())
	require.Equal(t, report.Stats, got.Stats())
	require.Equal(t, report.Sections, got.Sections())
	require.Equal(t, report.Markdown, got.Content())
	require.Equal(t, "gpt-4o", got.AIModel())
	require.Equal(t, review.ReviewCompleted, got.Status())
}

func TestReviewStore_CountByUser(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewReviewStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, review.NewReview(int64(i), 1, 7, sampleReport(), "gpt-4o"))
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, review.NewReview(99, 1, 8, sampleReport(), "gpt-4o"))
	require.NoError(t, err)

	count, err := store.CountByUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestPullRequestStore_SaveAndStatus(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewPullRequestStore(db)
	ctx := context.Background()

	pr := review.NewPullRequest(1, 42, "Add feature", "octocat", "open", "https://example.com/pr/42")
	saved, err := store.Save(ctx, pr)
	require.NoError(t, err)
	require.NotZero(t, saved.ID())
	require.Equal(t, review.PullRequestPending, saved.Status())

	_, err = store.Save(ctx, saved.WithStatus(review.PullRequestCompleted))
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID())
	require.NoError(t, err)
	require.Equal(t, review.PullRequestCompleted, got.Status())
	require.Equal(t, 42, got.Number())

	prs, err := store.FindByRepository(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prs, 1)
}

func TestUserStore_SaveAndGet(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewUserStore(db)
	ctx := context.Background()

	user := repository.NewUser("Octo Cat", "octocat@example.com", "gh-u-1", "token", repository.PlanFree)
	saved, err := store.Save(ctx, user)
	require.NoError(t, err)
	require.NotZero(t, saved.ID())

	got, err := store.Get(ctx, saved.ID())
	require.NoError(t, err)
	require.Equal(t, "octocat@example.com", got.Email())
	require.Equal(t, repository.PlanFree, got.Plan())
}
