package dto

import (
	"time"

	"github.com/codeowl/codeowl/domain/review"
)

// Review is the API representation of a stored AI review.
type Review struct {
	ID            int64           `json:"id"`
	PullRequestID int64           `json:"pullRequestId"`
	RepositoryID  int64           `json:"repositoryId"`
	Content       string          `json:"content"`
	Summary       review.Summary  `json:"summary"`
	Stats         review.Stats    `json:"stats"`
	Sections      review.Sections `json:"sections"`
	AIModel       string          `json:"aiModel"`
	CommentURL    string          `json:"commentUrl,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ReviewListResponse wraps a review listing.
type ReviewListResponse struct {
	Data []Review `json:"data"`
}

// FromReview converts a domain review to its API shape.
func FromReview(r review.Review) Review {
	return Review{
		ID:            r.ID(),
		PullRequestID: r.PullRequestID(),
		RepositoryID:  r.RepositoryID(),
		Content:       r.Content(),
		Summary:       r.Summary(),
		Stats:         r.Stats(),
		Sections:      r.Sections(),
		AIModel:       r.AIModel(),
		CommentURL:    r.CommentURL(),
		CreatedAt:     r.CreatedAt(),
	}
}
