package review_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	handler "github.com/codeowl/codeowl/application/handler/review"
	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/infrastructure/reviewer"
	"github.com/codeowl/codeowl/internal/testdb"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	if f.fail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(len(texts[i])), 1, 0.5}
	}
	return out, nil
}

type fakeTextGenerator struct {
	output string
	err    error
}

func (f *fakeTextGenerator) Complete(_ context.Context, _, _ string) (string, error) {
	return f.output, f.err
}

func (f *fakeTextGenerator) Model() string { return "test-model" }

const modelOutput = "```json\n" + `{
  "summary": {"filesChanged": 1, "linesAdded": 4, "linesDeleted": 0, "riskLevel": "low", "recommendation": "approve"},
  "stats": {
    "security": {"count": 0, "severity": "none"},
    "bugs": {"count": 0, "severity": "none"},
    "performance": {"count": 0, "severity": "none"},
    "quality": {"count": 0, "severity": "none"}
  },
  "sections": {
    "changeType": "feature",
    "security": [], "bugs": [], "performance": [], "suggestions": [],
    "positives": ["clean change"],
    "testing": {"coverage": "adequate"}
  }
}` + "\n```\n\n### Summary\nTidy addition."

type reviewFixture struct {
	handler *handler.GeneratePullRequestReview
	prs     review.PullRequestStore
	reviews review.Store
	pr      review.PullRequest

	diffRequests    int
	commentBodies   []string
	diffStatusCode  int
	commentStatusOK bool
}

func newReviewFixture(t *testing.T, generator *fakeTextGenerator) *reviewFixture {
	t.Helper()
	ctx := context.Background()
	db := testdb.New(t)

	users := persistence.NewUserStore(db)
	repos := persistence.NewRepositoryStore(db)
	prs := persistence.NewPullRequestStore(db)
	reviews := persistence.NewReviewStore(db)
	vectors := persistence.NewVectorStore(db, nil)

	user, err := users.Save(ctx, repository.NewUser("Octo Cat", "octo@example.com", "gh-1", "tok", repository.PlanFree))
	require.NoError(t, err)
	repo, err := repos.Save(ctx, repository.New(user.ID(), "9001", "octocat", "widgets", "octocat/widgets", "main", false))
	require.NoError(t, err)
	pr, err := prs.Save(ctx, review.NewPullRequest(repo.ID(), 7, "Add login", "octocat", "open", "https://github.test/pr/7"))
	require.NoError(t, err)

	f := &reviewFixture{prs: prs, reviews: reviews, pr: pr, diffStatusCode: http.StatusOK, commentStatusOK: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		f.diffRequests++
		if f.diffStatusCode != http.StatusOK {
			http.Error(w, `{"message":"boom"}`, f.diffStatusCode)
			return
		}
		fmt.Fprint(w, sampleDiff)
	})
	mux.HandleFunc("/repos/octocat/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Body string `json:"body"`
		}
		_ = json.Unmarshal(body, &payload)
		f.commentBodies = append(f.commentBodies, payload.Body)
		if !f.commentStatusOK {
			http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"html_url": "https://github.test/pr/7#comment-1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(github.WithBaseURL(srv.URL))
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	retriever := handler.NewContextRetriever(vectors, &fakeEmbedder{}, discard)
	gen := reviewer.NewGenerator(generator, discard)

	f.handler = handler.NewGeneratePullRequestReview(repos, users, prs, reviews, retriever, gen, gh, discard)
	return f
}

func reviewPayload(f *reviewFixture) map[string]any {
	return map[string]any{
		"repositoryId":  f.pr.RepositoryID(),
		"pullRequestId": f.pr.ID(),
	}
}

func TestGenerateReview_EndToEnd(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{output: modelOutput})
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, reviewPayload(f)))

	pr, err := f.prs.Get(ctx, f.pr.ID())
	require.NoError(t, err)
	require.Equal(t, review.PullRequestCompleted, pr.Status())

	stored, err := f.reviews.FindByRepository(ctx, f.pr.RepositoryID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, review.RiskLow, stored[0].Summary().RiskLevel)
	require.Equal(t, review.RecommendApprove, stored[0].Summary().Recommendation)
	require.Equal(t, "test-model", stored[0].AIModel())
	require.Equal(t, "https://github.test/pr/7#comment-1", stored[0].CommentURL())
	require.Contains(t, stored[0].Content(), "Tidy addition.")

	require.Equal(t, 1, f.diffRequests)
	require.Len(t, f.commentBodies, 1)
	require.Contains(t, f.commentBodies[0], "Tidy addition.")
}

func TestGenerateReview_UnparseableOutputStillPosts(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{output: "The change looks fine overall."})
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, reviewPayload(f)))

	stored, err := f.reviews.FindByRepository(ctx, f.pr.RepositoryID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, review.RiskMedium, stored[0].Summary().RiskLevel)
	require.Equal(t, "The change looks fine overall.", stored[0].Content())
}

func TestGenerateReview_DiffFetchFailureMarksFailed(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{output: modelOutput})
	f.diffStatusCode = http.StatusInternalServerError
	ctx := context.Background()

	require.Error(t, f.handler.Execute(ctx, reviewPayload(f)))

	pr, err := f.prs.Get(ctx, f.pr.ID())
	require.NoError(t, err)
	require.Equal(t, review.PullRequestFailed, pr.Status())

	stored, err := f.reviews.FindByRepository(ctx, f.pr.RepositoryID())
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestGenerateReview_ModelFailureMarksFailed(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{err: fmt.Errorf("model unavailable")})
	ctx := context.Background()

	require.Error(t, f.handler.Execute(ctx, reviewPayload(f)))

	pr, err := f.prs.Get(ctx, f.pr.ID())
	require.NoError(t, err)
	require.Equal(t, review.PullRequestFailed, pr.Status())
}

func TestGenerateReview_CommentFailureMarksFailed(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{output: modelOutput})
	f.commentStatusOK = false
	ctx := context.Background()

	require.Error(t, f.handler.Execute(ctx, reviewPayload(f)))

	pr, err := f.prs.Get(ctx, f.pr.ID())
	require.NoError(t, err)
	require.Equal(t, review.PullRequestFailed, pr.Status())
}

func TestGenerateReview_MissingPayload(t *testing.T) {
	f := newReviewFixture(t, &fakeTextGenerator{output: modelOutput})

	err := f.handler.Execute(context.Background(), map[string]any{"repositoryId": int64(1)})
	require.ErrorIs(t, err, handler.ErrMissingPayload)
}
