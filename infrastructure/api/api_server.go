package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/codeowl/codeowl"
	apimiddleware "github.com/codeowl/codeowl/infrastructure/api/middleware"
	v1 "github.com/codeowl/codeowl/infrastructure/api/v1"
)

// APIServer provides the HTTP API backed by a codeowl Client.
type APIServer struct {
	client *codeowl.Client
	server *Server
	logger *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
func NewAPIServer(client *codeowl.Client) *APIServer {
	return &APIServer{
		client: client,
		logger: client.Logger(),
	}
}

// MountRoutes wires the webhook ingress and v1 API routes on the router.
func (a *APIServer) MountRoutes(router chi.Router) {
	c := a.client
	cfg := c.Config()

	webhooksRouter := v1.NewWebhooksRouter(
		c.RepositoryStore, c.UserStore, c.PullRequestStore, c.Queue, c.Quota, a.logger,
	)
	reposRouter := v1.NewRepositoriesRouter(c.Repositories, a.logger)
	reviewsRouter := v1.NewReviewsRouter(c.Repositories, c.ReviewStore, a.logger)

	// Webhook deliveries are verified against the raw body before any
	// parsing; the JSON handler never sees an unauthenticated payload.
	router.Route("/webhooks", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Use(apimiddleware.VerifyWebhookSignature(cfg.GithubWebhookSecret))
		r.Mount("/", webhooksRouter.Routes())
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Use(apimiddleware.RequireUser)
		r.Mount("/repositories", reposRouter.Routes())
		r.Mount("/reviews", reviewsRouter.Routes())
	})
}

// ListenAndServe starts the HTTP server on the given address and blocks.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.client.Config().CORSOrigins, a.logger)
	a.server = &server
	a.MountRoutes(server.Router())
	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
