// Package v1 provides the v1 API routes.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/infrastructure/api/middleware"
	"github.com/codeowl/codeowl/infrastructure/api/v1/dto"
)

// RepositoriesRouter handles repository API endpoints.
type RepositoriesRouter struct {
	repositories *service.RepositoryService
	logger       *slog.Logger
}

// NewRepositoriesRouter creates a new RepositoriesRouter.
func NewRepositoriesRouter(repositories *service.RepositoryService, logger *slog.Logger) *RepositoriesRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoriesRouter{repositories: repositories, logger: logger}
}

// Routes returns the chi router for repository endpoints.
func (rt *RepositoriesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", rt.List)
	router.Post("/", rt.Connect)
	router.Delete("/{id}", rt.Disconnect)
	router.Get("/{id}/status", rt.Status)
	router.Post("/{id}/reindex", rt.Reindex)

	return router
}

// List handles GET /api/v1/repositories.
func (rt *RepositoriesRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	repos, err := rt.repositories.List(ctx, userID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	data := make([]dto.Repository, len(repos))
	for i, repo := range repos {
		data[i] = dto.FromRepository(repo)
	}
	middleware.WriteJSON(w, http.StatusOK, dto.RepositoryListResponse{Data: data})
}

// Connect handles POST /api/v1/repositories.
func (rt *RepositoriesRouter) Connect(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	var body dto.ConnectRepositoryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request body"})
		return
	}
	if body.GithubRepoID == "" || body.Owner == "" || body.Name == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "githubRepoId, owner and name are required"})
		return
	}

	repo, err := rt.repositories.Connect(ctx, userID, service.ConnectInput{
		GithubRepoID:  body.GithubRepoID,
		Name:          body.Name,
		Owner:         body.Owner,
		FullName:      body.FullName,
		DefaultBranch: body.DefaultBranch,
		Private:       body.Private,
	})
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, dto.RepositoryResponse{Data: dto.FromRepository(repo)})
}

// Disconnect handles DELETE /api/v1/repositories/{id}.
func (rt *RepositoriesRouter) Disconnect(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	id, ok := pathID(w, req)
	if !ok {
		return
	}

	if err := rt.repositories.Disconnect(ctx, userID, id); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/v1/repositories/{id}/status.
func (rt *RepositoriesRouter) Status(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	id, ok := pathID(w, req)
	if !ok {
		return
	}

	repo, err := rt.repositories.Status(ctx, userID, id)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.RepositoryStatusResponse{Data: dto.StatusFromRepository(repo)})
}

// Reindex handles POST /api/v1/repositories/{id}/reindex.
func (rt *RepositoriesRouter) Reindex(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	id, ok := pathID(w, req)
	if !ok {
		return
	}

	repo, err := rt.repositories.Reindex(ctx, userID, id)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, dto.RepositoryResponse{Data: dto.FromRepository(repo)})
}

func pathID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid repository id"})
		return 0, false
	}
	return id, true
}
