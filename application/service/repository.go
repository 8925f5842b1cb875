package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/domain/task"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/internal/database"
)

// Repository service errors.
var (
	// ErrGithubNotLinked indicates the user has no GitHub token on file.
	ErrGithubNotLinked = errors.New("github account not linked")

	// ErrAlreadyConnected indicates the repository is already connected.
	ErrAlreadyConnected = errors.New("repository already connected")
)

// ConnectInput carries the host repository details for a connect request.
type ConnectInput struct {
	GithubRepoID  string
	Name          string
	Owner         string
	FullName      string
	DefaultBranch string
	Private       bool
}

// RepositoryService connects and disconnects repositories and manages
// their index lifecycle.
type RepositoryService struct {
	repos      repository.Store
	users      repository.UserStore
	vectors    search.VectorStore
	queue      *Queue
	quota      Quota
	gh         *github.Client
	webhookCfg github.WebhookConfig
	logger     *slog.Logger

	// webhookTimeout bounds the background webhook installation.
	webhookTimeout time.Duration
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(
	repos repository.Store,
	users repository.UserStore,
	vectors search.VectorStore,
	queue *Queue,
	quota Quota,
	gh *github.Client,
	webhookCfg github.WebhookConfig,
	logger *slog.Logger,
) *RepositoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryService{
		repos:          repos,
		users:          users,
		vectors:        vectors,
		queue:          queue,
		quota:          quota,
		gh:             gh,
		webhookCfg:     webhookCfg,
		logger:         logger,
		webhookTimeout: 30 * time.Second,
	}
}

// Connect registers the repository, installs the webhook in the
// background, and queues the initial indexing run. The caller gets the
// repository back immediately in the queued indexing state.
func (s *RepositoryService) Connect(ctx context.Context, userID int64, input ConnectInput) (repository.Repository, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return repository.Repository{}, err
	}
	if user.GithubToken() == "" {
		return repository.Repository{}, ErrGithubNotLinked
	}

	exists, err := s.repos.ExistsForUser(ctx, userID, input.GithubRepoID)
	if err != nil {
		return repository.Repository{}, err
	}
	if exists {
		return repository.Repository{}, ErrAlreadyConnected
	}

	if err := s.quota.CheckRepositoryLimit(ctx, user); err != nil {
		return repository.Repository{}, err
	}

	repo := repository.New(
		userID,
		input.GithubRepoID,
		input.Owner,
		input.Name,
		input.FullName,
		input.DefaultBranch,
		input.Private,
	)
	repo, err = s.repos.Save(ctx, repo)
	if err != nil {
		return repository.Repository{}, err
	}

	// Webhook installation happens off the request path; a failure is
	// logged and the connection stands without push-triggered reviews.
	go s.installWebhook(repo, user.GithubToken())

	if err := s.queue.EnqueueIndexing(ctx, repo.ID(), task.PriorityUserInitiated); err != nil {
		return repository.Repository{}, fmt.Errorf("enqueue indexing: %w", err)
	}

	s.logger.Info("repository connected",
		slog.Int64("repository_id", repo.ID()),
		slog.String("full_name", repo.FullName()),
	)
	return repo, nil
}

func (s *RepositoryService) installWebhook(repo repository.Repository, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.webhookTimeout)
	defer cancel()

	hookID, err := s.gh.SetupWebhook(ctx, token, repo.Owner(), repo.Name(), s.webhookCfg)
	if err != nil {
		s.logger.Error("webhook installation failed",
			slog.Int64("repository_id", repo.ID()),
			slog.String("full_name", repo.FullName()),
			slog.String("error", err.Error()),
		)
		return
	}

	// Only the webhook column is written; the indexing job may be
	// rewriting the rest of the row concurrently.
	if err := s.repos.SaveWebhookID(ctx, repo.ID(), hookID); err != nil {
		s.logger.Error("failed to persist webhook id",
			slog.Int64("repository_id", repo.ID()),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("webhook installed",
		slog.Int64("repository_id", repo.ID()),
		slog.String("webhook_id", hookID),
	)
}

// Disconnect removes the webhook, purges the vector namespace, drains
// pending tasks, and deletes the repository record. Webhook removal is
// best effort: a hook that is already gone does not block disconnection.
func (s *RepositoryService) Disconnect(ctx context.Context, userID, repositoryID int64) error {
	repo, err := s.ownedRepository(ctx, userID, repositoryID)
	if err != nil {
		return err
	}

	if repo.WebhookID() != "" {
		user, err := s.users.Get(ctx, userID)
		if err == nil && user.GithubToken() != "" {
			if err := s.gh.RemoveWebhook(ctx, user.GithubToken(), repo.Owner(), repo.Name(), repo.WebhookID()); err != nil {
				s.logger.Warn("webhook removal failed",
					slog.Int64("repository_id", repo.ID()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if err := s.vectors.DeleteAll(ctx, repo.ID()); err != nil {
		return fmt.Errorf("purge vector namespace: %w", err)
	}

	if _, err := s.queue.DrainForRepository(ctx, repo.ID()); err != nil {
		return err
	}

	if err := s.repos.Delete(ctx, repo); err != nil {
		return err
	}

	s.logger.Info("repository disconnected",
		slog.Int64("repository_id", repo.ID()),
		slog.String("full_name", repo.FullName()),
	)
	return nil
}

// List returns the user's connected repositories.
func (s *RepositoryService) List(ctx context.Context, userID int64) ([]repository.Repository, error) {
	return s.repos.FindByUser(ctx, userID)
}

// Status returns one repository with its indexing state, enforcing
// ownership.
func (s *RepositoryService) Status(ctx context.Context, userID, repositoryID int64) (repository.Repository, error) {
	return s.ownedRepository(ctx, userID, repositoryID)
}

// Reindex queues a fresh indexing run for the repository.
func (s *RepositoryService) Reindex(ctx context.Context, userID, repositoryID int64) (repository.Repository, error) {
	repo, err := s.ownedRepository(ctx, userID, repositoryID)
	if err != nil {
		return repository.Repository{}, err
	}

	if err := s.queue.EnqueueIndexing(ctx, repo.ID(), task.PriorityUserInitiated); err != nil {
		return repository.Repository{}, fmt.Errorf("enqueue indexing: %w", err)
	}
	return repo, nil
}

// ownedRepository loads a repository and verifies the caller owns it.
// A repository owned by someone else is indistinguishable from a
// missing one.
func (s *RepositoryService) ownedRepository(ctx context.Context, userID, repositoryID int64) (repository.Repository, error) {
	repo, err := s.repos.Get(ctx, repositoryID)
	if err != nil {
		return repository.Repository{}, err
	}
	if repo.UserID() != userID {
		return repository.Repository{}, fmt.Errorf("%w: repository id %d", database.ErrNotFound, repositoryID)
	}
	return repo, nil
}
