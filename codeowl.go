// Package codeowl provides an AI pull-request review service: connected
// repositories are chunked, embedded, and stored in a vector index, and
// every qualifying pull-request event produces an AI review posted back
// to the pull request.
//
// Basic usage:
//
//	client, err := codeowl.New(
//	    codeowl.WithDatabaseURL("sqlite:///codeowl.db"),
//	    codeowl.WithEmbeddingEndpoint(embeddingEnv),
//	    codeowl.WithReviewEndpoint(reviewEnv),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Start(ctx)
package codeowl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	indexinghandler "github.com/codeowl/codeowl/application/handler/indexing"
	reviewhandler "github.com/codeowl/codeowl/application/handler/review"
	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/domain/task"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/infrastructure/provider"
	"github.com/codeowl/codeowl/infrastructure/reviewer"
	"github.com/codeowl/codeowl/internal/config"
	"github.com/codeowl/codeowl/internal/database"
)

// ErrNoDatabase is returned by New when no database URL is configured.
var ErrNoDatabase = errors.New("no database configured")

// Client is the main entry point for the codeowl service. Construction
// wires every store, provider, and job handler; Start launches the
// worker pools.
type Client struct {
	// Public service fields (direct access for the API layer and tests).
	Repositories *service.RepositoryService
	Queue        *service.Queue
	Quota        service.Quota

	// Stores the API layer reads directly.
	UserStore        persistence.UserStore
	RepositoryStore  persistence.RepositoryStore
	PullRequestStore persistence.PullRequestStore
	ReviewStore      persistence.ReviewStore
	VectorStore      persistence.VectorStore

	db            database.Database
	indexWorkers  *service.WorkerPool
	reviewWorkers *service.WorkerPool
	github        *github.Client
	logger        *slog.Logger
	cfg           config.Config
	closed        atomic.Bool
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cc := newClientConfig()
	for _, opt := range opts {
		opt(cc)
	}

	if cc.cfg.DBURL == "" {
		return nil, ErrNoDatabase
	}

	logger := cc.logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()
	db, err := database.New(ctx, cc.cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	userStore := persistence.NewUserStore(db)
	repoStore := persistence.NewRepositoryStore(db)
	prStore := persistence.NewPullRequestStore(db)
	reviewStore := persistence.NewReviewStore(db)
	taskStore := persistence.NewTaskStore(db)
	vectorStore := persistence.NewVectorStore(db, logger)

	embedder := cc.embedder
	if embedder == nil {
		embedder, err = provider.NewOpenAIProvider(cc.cfg.EmbeddingEndpoint)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(fmt.Errorf("embedding provider: %w", err), errClose)
		}
	}

	textGen := cc.textGenerator
	if textGen == nil {
		p, err := provider.NewOpenAIProvider(cc.cfg.ReviewEndpoint)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(fmt.Errorf("review provider: %w", err), errClose)
		}
		textGen = p
	}

	gh := cc.github
	if gh == nil {
		gh = github.NewClient()
	}

	queue := service.NewQueue(taskStore, logger)
	quota := service.NewQuota(repoStore, reviewStore, cc.cfg.FreeRepoLimit, cc.cfg.FreeReviewLimit)

	webhookCfg := github.WebhookConfig{
		CallbackURL: cc.cfg.WebhookCallbackURL,
		Secret:      cc.cfg.GithubWebhookSecret,
	}
	repoService := service.NewRepositoryService(
		repoStore, userStore, vectorStore, queue, quota, gh, webhookCfg, logger,
	)

	// Indexing and review run on separate pools so a burst of indexing
	// work cannot starve review jobs, and vice versa.
	indexRegistry := service.NewRegistry()
	indexRegistry.Register(task.OperationIndexRepository, indexinghandler.NewIndexRepository(
		repoStore, userStore, vectorStore, gh, embedder, logger,
	))
	reviewRegistry := service.NewRegistry()
	reviewRegistry.Register(task.OperationReviewPullRequest, reviewhandler.NewGeneratePullRequestReview(
		repoStore, userStore, prStore, reviewStore,
		reviewhandler.NewContextRetriever(vectorStore, embedder, logger),
		reviewer.NewGenerator(textGen, logger),
		gh, logger,
	))

	workerOpts := []service.WorkerPoolOption{
		service.WithConcurrency(cc.cfg.WorkerCount),
	}
	if cc.workerOpts != nil {
		workerOpts = append(workerOpts, cc.workerOpts...)
	}
	indexWorkers := service.NewWorkerPool(taskStore, indexRegistry, logger, workerOpts...)
	reviewWorkers := service.NewWorkerPool(taskStore, reviewRegistry, logger, workerOpts...)

	return &Client{
		Repositories:     repoService,
		Queue:            queue,
		Quota:            quota,
		UserStore:        userStore,
		RepositoryStore:  repoStore,
		PullRequestStore: prStore,
		ReviewStore:      reviewStore,
		VectorStore:      vectorStore,
		db:               db,
		indexWorkers:     indexWorkers,
		reviewWorkers:    reviewWorkers,
		github:           gh,
		logger:           logger,
		cfg:              cc.cfg,
	}, nil
}

// Start launches the background worker pools. It returns immediately;
// workers stop when Close is called or ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.indexWorkers.Start(ctx)
	c.reviewWorkers.Start(ctx)
}

// Reviews returns reviews for a repository owned by the user.
func (c *Client) Reviews(ctx context.Context, userID, repositoryID int64) ([]review.Review, error) {
	if _, err := c.Repositories.Status(ctx, userID, repositoryID); err != nil {
		return nil, err
	}
	return c.ReviewStore.FindByRepository(ctx, repositoryID)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() config.Config {
	return c.cfg
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Github returns the source-host client.
func (c *Client) Github() *github.Client {
	return c.github
}

// Close stops the workers and closes the database. Safe to call twice.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.indexWorkers.Stop()
	c.reviewWorkers.Stop()
	return c.db.Close()
}
