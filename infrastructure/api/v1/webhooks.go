package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/api/middleware"
	"github.com/codeowl/codeowl/internal/database"
	"github.com/codeowl/codeowl/internal/log"
)

// githubEventHeader names the event category of a delivery.
const githubEventHeader = "X-GitHub-Event"

// reviewActions are the pull_request actions that trigger a review.
var reviewActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
}

// webhookAck is the body of every accepted delivery. Deliveries that do
// not create work still return 200 so the sender does not retry them.
type webhookAck struct {
	Message string `json:"message"`
}

// pullRequestEvent is the subset of the delivery payload this service
// reads.
type pullRequestEvent struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}

// WebhooksRouter ingests source-host webhook deliveries.
type WebhooksRouter struct {
	repos  repository.Store
	users  repository.UserStore
	prs    review.PullRequestStore
	queue  *service.Queue
	quota  service.Quota
	logger *slog.Logger
}

// NewWebhooksRouter creates a new WebhooksRouter.
func NewWebhooksRouter(
	repos repository.Store,
	users repository.UserStore,
	prs review.PullRequestStore,
	queue *service.Queue,
	quota service.Quota,
	logger *slog.Logger,
) *WebhooksRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhooksRouter{
		repos:  repos,
		users:  users,
		prs:    prs,
		queue:  queue,
		quota:  quota,
		logger: logger,
	}
}

// Routes returns the chi router for webhook ingestion. Signature
// verification is mounted by the caller so tests can exercise the
// handler directly.
func (rt *WebhooksRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/github", rt.HandleGithub)
	return router
}

// HandleGithub handles POST /webhooks/github. Only pull_request events
// with an opened or synchronize action create work; everything else is
// acknowledged without side effects.
func (rt *WebhooksRouter) HandleGithub(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if req.Header.Get(githubEventHeader) != "pull_request" {
		middleware.WriteJSON(w, http.StatusOK, webhookAck{Message: "ignored"})
		return
	}

	var event pullRequestEvent
	if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid payload"})
		return
	}
	if event.Repository.FullName == "" || event.PullRequest.Number == 0 {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid payload"})
		return
	}

	if !reviewActions[event.Action] {
		middleware.WriteJSON(w, http.StatusOK, webhookAck{Message: "action not reviewed"})
		return
	}

	logger := rt.logger.With(
		slog.String("request_id", log.RequestID(ctx)),
		slog.String("full_name", event.Repository.FullName),
		slog.Int("pr_number", event.PullRequest.Number),
		slog.String("action", event.Action),
	)

	repo, err := rt.repos.GetConnectedByFullName(ctx, event.Repository.FullName)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logger.Warn("delivery for unconnected repository")
			middleware.WriteJSON(w, http.StatusOK, webhookAck{Message: "repository not connected"})
			return
		}
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	user, err := rt.users.Get(ctx, repo.UserID())
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	// Over-quota deliveries succeed without enqueuing work so the
	// source host never retries them as failures.
	if err := rt.quota.CheckReviewLimit(ctx, user); err != nil {
		if errors.Is(err, service.ErrReviewLimitReached) {
			logger.Info("review quota exhausted, skipping job")
			middleware.WriteJSON(w, http.StatusOK, webhookAck{Message: "review limit reached"})
			return
		}
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	pr, err := rt.prs.Save(ctx, review.NewPullRequest(
		repo.ID(),
		event.PullRequest.Number,
		event.PullRequest.Title,
		event.PullRequest.User.Login,
		event.PullRequest.State,
		event.PullRequest.HTMLURL,
	))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	if err := rt.queue.EnqueueReview(ctx, repo.ID(), pr.ID(), pr.Number(), event.PullRequest.Head.SHA); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	logger.Info("review queued")
	middleware.WriteJSON(w, http.StatusOK, webhookAck{Message: "pull request queued for review"})
}
