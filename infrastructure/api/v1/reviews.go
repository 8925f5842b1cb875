package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codeowl/codeowl/application/service"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/infrastructure/api/middleware"
	"github.com/codeowl/codeowl/infrastructure/api/v1/dto"
)

// ReviewsRouter handles review API endpoints.
type ReviewsRouter struct {
	repositories *service.RepositoryService
	reviews      review.Store
	logger       *slog.Logger
}

// NewReviewsRouter creates a new ReviewsRouter.
func NewReviewsRouter(repositories *service.RepositoryService, reviews review.Store, logger *slog.Logger) *ReviewsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewsRouter{repositories: repositories, reviews: reviews, logger: logger}
}

// Routes returns the chi router for review endpoints.
func (rt *ReviewsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", rt.List)
	return router
}

// List handles GET /api/v1/reviews?repository_id=N. The ownership check
// runs through the repository service so one user cannot read another's
// reviews.
func (rt *ReviewsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID, _ := middleware.UserID(ctx)

	repositoryID, err := strconv.ParseInt(req.URL.Query().Get("repository_id"), 10, 64)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "repository_id query parameter is required"})
		return
	}

	if _, err := rt.repositories.Status(ctx, userID, repositoryID); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	reviews, err := rt.reviews.FindByRepository(ctx, repositoryID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	data := make([]dto.Review, len(reviews))
	for i, r := range reviews {
		data[i] = dto.FromReview(r)
	}
	middleware.WriteJSON(w, http.StatusOK, dto.ReviewListResponse{Data: data})
}
