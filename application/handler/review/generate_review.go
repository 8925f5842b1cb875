package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/infrastructure/provider"
	"github.com/codeowl/codeowl/infrastructure/reviewer"
)

// ErrMissingPayload indicates a task payload without the required IDs.
var ErrMissingPayload = errors.New("task payload missing repositoryId or pullRequestId")

// GeneratePullRequestReview runs one review job end to end.
type GeneratePullRequestReview struct {
	repos     repository.Store
	users     repository.UserStore
	prs       review.PullRequestStore
	reviews   review.Store
	retriever ContextRetriever
	generator reviewer.Generator
	gh        *github.Client
	logger    *slog.Logger
}

// NewGeneratePullRequestReview creates a GeneratePullRequestReview handler.
func NewGeneratePullRequestReview(
	repos repository.Store,
	users repository.UserStore,
	prs review.PullRequestStore,
	reviews review.Store,
	retriever ContextRetriever,
	generator reviewer.Generator,
	gh *github.Client,
	logger *slog.Logger,
) *GeneratePullRequestReview {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeneratePullRequestReview{
		repos:     repos,
		users:     users,
		prs:       prs,
		reviews:   reviews,
		retriever: retriever,
		generator: generator,
		gh:        gh,
		logger:    logger,
	}
}

// Execute generates a review for the pull request named in the payload,
// persists it, and posts the narrative back as a PR comment. The pull
// request status tracks the outcome.
func (h *GeneratePullRequestReview) Execute(ctx context.Context, payload map[string]any) error {
	repositoryID, okRepo := payloadInt64(payload, "repositoryId")
	pullRequestID, okPR := payloadInt64(payload, "pullRequestId")
	if !okRepo || !okPR {
		return ErrMissingPayload
	}

	repo, err := h.repos.Get(ctx, repositoryID)
	if err != nil {
		return err
	}
	pr, err := h.prs.Get(ctx, pullRequestID)
	if err != nil {
		return err
	}
	user, err := h.users.Get(ctx, repo.UserID())
	if err != nil {
		return err
	}
	if user.GithubToken() == "" {
		return fmt.Errorf("user %d has no github token", user.ID())
	}

	logger := h.logger.With(
		slog.String("full_name", repo.FullName()),
		slog.Int("pr_number", pr.Number()),
	)
	logger.Info("review started")

	pr, err = h.prs.Save(ctx, pr.WithStatus(review.PullRequestProcessing))
	if err != nil {
		return err
	}

	commentURL, err := h.review(ctx, repo, pr, user, logger)
	if err != nil {
		var perr *provider.ProviderError
		if errors.As(err, &perr) && perr.IsRateLimited() {
			logger.Warn("review rate limited by provider", slog.String("error", err.Error()))
		} else {
			logger.Error("review failed", slog.String("error", err.Error()))
		}
		if _, saveErr := h.prs.Save(ctx, pr.WithStatus(review.PullRequestFailed)); saveErr != nil {
			logger.Error("failed to record review failure", slog.String("error", saveErr.Error()))
		}
		return err
	}

	if _, err := h.prs.Save(ctx, pr.WithStatus(review.PullRequestCompleted)); err != nil {
		return err
	}

	logger.Info("review completed", slog.String("comment_url", commentURL))
	return nil
}

func (h *GeneratePullRequestReview) review(
	ctx context.Context,
	repo repository.Repository,
	pr review.PullRequest,
	user repository.User,
	logger *slog.Logger,
) (string, error) {
	diff, err := h.gh.FetchPRDiff(ctx, user.GithubToken(), repo.Owner(), repo.Name(), pr.Number())
	if err != nil {
		return "", fmt.Errorf("fetch diff: %w", err)
	}
	logger.Debug("diff fetched", slog.Int("bytes", len(diff)))

	codeContext := h.retriever.Retrieve(ctx, repo.ID(), diff)

	report, err := h.generator.GenerateReview(ctx, diff, codeContext)
	if err != nil {
		return "", fmt.Errorf("generate review: %w", err)
	}

	rec, err := h.reviews.Save(ctx, review.NewReview(pr.ID(), repo.ID(), repo.UserID(), report, h.generator.Model()))
	if err != nil {
		return "", fmt.Errorf("store review: %w", err)
	}

	commentURL, err := h.gh.PostComment(ctx, user.GithubToken(), repo.Owner(), repo.Name(), pr.Number(), report.Markdown)
	if err != nil {
		return "", fmt.Errorf("post comment: %w", err)
	}

	if _, err := h.reviews.Save(ctx, rec.WithCommentURL(commentURL)); err != nil {
		return "", fmt.Errorf("store comment url: %w", err)
	}
	return commentURL, nil
}

func payloadInt64(payload map[string]any, key string) (int64, bool) {
	val, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
