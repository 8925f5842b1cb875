package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/domain/task"
	v1 "github.com/codeowl/codeowl/infrastructure/api/v1"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/internal/testdb"
)

type webhookFixture struct {
	router http.Handler
	repos  repository.Store
	prs    review.PullRequestStore
	tasks  task.Store
	user   repository.User
	repo   repository.Repository
}

func newWebhookFixture(t *testing.T, plan repository.Plan, reviewLimit int) *webhookFixture {
	t.Helper()
	ctx := context.Background()
	db := testdb.New(t)

	users := persistence.NewUserStore(db)
	repos := persistence.NewRepositoryStore(db)
	prs := persistence.NewPullRequestStore(db)
	reviews := persistence.NewReviewStore(db)
	tasks := persistence.NewTaskStore(db)

	user, err := users.Save(ctx, repository.NewUser("Octo Cat", "octo@example.com", "gh-1", "tok", plan))
	require.NoError(t, err)
	repo, err := repos.Save(ctx, repository.New(user.ID(), "9001", "octocat", "widgets", "octocat/widgets", "main", false))
	require.NoError(t, err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := service.NewQueue(tasks, discard)
	quota := service.NewQuota(repos, reviews, 5, reviewLimit)

	router := v1.NewWebhooksRouter(repos, users, prs, queue, quota, discard)
	return &webhookFixture{
		router: router.Routes(),
		repos:  repos,
		prs:    prs,
		tasks:  tasks,
		user:   user,
		repo:   repo,
	}
}

func pullRequestBody(fullName, action string, number int) []byte {
	payload := map[string]any{
		"action": action,
		"repository": map[string]any{
			"full_name": fullName,
		},
		"pull_request": map[string]any{
			"number":   number,
			"title":    "Add login",
			"state":    "open",
			"html_url": fmt.Sprintf("https://github.test/%s/pull/%d", fullName, number),
			"user":     map[string]any{"login": "octocat"},
			"head":     map[string]any{"sha": "abc123"},
		},
	}
	body, _ := json.Marshal(payload)
	return body
}

func deliver(t *testing.T, f *webhookFixture, event string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", event)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWebhook_OpenedActionQueuesReview(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)
	ctx := context.Background()

	w := deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "opened", 7))
	require.Equal(t, http.StatusOK, w.Code)

	prs, err := f.prs.FindByRepository(ctx, f.repo.ID())
	require.NoError(t, err)
	require.Len(t, prs, 1)
	require.Equal(t, 7, prs[0].Number())
	require.Equal(t, review.PullRequestPending, prs[0].Status())

	pending, err := f.tasks.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)
}

func TestWebhook_NonPullRequestEventIgnored(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)

	w := deliver(t, f, "push", pullRequestBody("octocat/widgets", "opened", 7))
	require.Equal(t, http.StatusOK, w.Code)

	pending, err := f.tasks.CountPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestWebhook_ClosedActionAcknowledgedWithoutWork(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)

	w := deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "closed", 7))
	require.Equal(t, http.StatusOK, w.Code)

	prs, err := f.prs.FindByRepository(context.Background(), f.repo.ID())
	require.NoError(t, err)
	require.Empty(t, prs)
}

func TestWebhook_UnconnectedRepositoryAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)

	w := deliver(t, f, "pull_request", pullRequestBody("someone/else", "opened", 7))
	require.Equal(t, http.StatusOK, w.Code)

	pending, err := f.tasks.CountPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestWebhook_InvalidPayloadRejected(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)

	w := deliver(t, f, "pull_request", []byte(`{"action":"opened"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_ReviewQuotaExhaustedSkipsJob(t *testing.T) {
	// Limit of zero means the first qualifying event is already over.
	f := newWebhookFixture(t, repository.PlanFree, 0)

	w := deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "opened", 7))
	require.Equal(t, http.StatusOK, w.Code)

	var ack struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	require.Equal(t, "review limit reached", ack.Message)

	pending, err := f.tasks.CountPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestWebhook_ProPlanBypassesQuota(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanPro, 0)

	w := deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "opened", 7))
	require.Equal(t, http.StatusOK, w.Code)

	pending, err := f.tasks.CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)
}

func TestWebhook_EachDeliveryQueuesOwnJob(t *testing.T) {
	f := newWebhookFixture(t, repository.PlanFree, 50)
	ctx := context.Background()

	deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "opened", 7))
	deliver(t, f, "pull_request", pullRequestBody("octocat/widgets", "synchronize", 7))

	// Each delivery creates its own PR record, so its job key never
	// collides with an earlier delivery's.
	prs, err := f.prs.FindByRepository(ctx, f.repo.ID())
	require.NoError(t, err)
	require.Len(t, prs, 2)

	pending, err := f.tasks.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), pending)
}
