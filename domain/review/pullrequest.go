// Package review provides domain types for pull requests and AI reviews.
package review

import "time"

// PullRequestStatus represents the review lifecycle of a pull request.
type PullRequestStatus string

// PullRequestStatus values.
const (
	PullRequestPending    PullRequestStatus = "pending"
	PullRequestProcessing PullRequestStatus = "processing"
	PullRequestCompleted  PullRequestStatus = "completed"
	PullRequestFailed     PullRequestStatus = "failed"
)

// PullRequest represents a pull request observed via webhook.
type PullRequest struct {
	id           int64
	repositoryID int64
	number       int
	title        string
	author       string
	state        string
	htmlURL      string
	status       PullRequestStatus
	createdAt    time.Time
	updatedAt    time.Time
}

// NewPullRequest creates a pending PullRequest.
func NewPullRequest(repositoryID int64, number int, title, author, state, htmlURL string) PullRequest {
	return PullRequest{
		repositoryID: repositoryID,
		number:       number,
		title:        title,
		author:       author,
		state:        state,
		htmlURL:      htmlURL,
		status:       PullRequestPending,
	}
}

// NewPullRequestWithID reconstructs a PullRequest from persisted state.
func NewPullRequestWithID(
	id, repositoryID int64,
	number int,
	title, author, state, htmlURL string,
	status PullRequestStatus,
	createdAt, updatedAt time.Time,
) PullRequest {
	return PullRequest{
		id:           id,
		repositoryID: repositoryID,
		number:       number,
		title:        title,
		author:       author,
		state:        state,
		htmlURL:      htmlURL,
		status:       status,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the pull request record ID.
func (p PullRequest) ID() int64 { return p.id }

// RepositoryID returns the owning repository ID.
func (p PullRequest) RepositoryID() int64 { return p.repositoryID }

// Number returns the host-side pull request number.
func (p PullRequest) Number() int { return p.number }

// Title returns the pull request title.
func (p PullRequest) Title() string { return p.title }

// Author returns the author login.
func (p PullRequest) Author() string { return p.author }

// State returns the open/closed state reported by the host.
func (p PullRequest) State() string { return p.state }

// HTMLURL returns the pull request web URL.
func (p PullRequest) HTMLURL() string { return p.htmlURL }

// Status returns the review lifecycle status.
func (p PullRequest) Status() PullRequestStatus { return p.status }

// CreatedAt returns when the record was created.
func (p PullRequest) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns when the record was last updated.
func (p PullRequest) UpdatedAt() time.Time { return p.updatedAt }

// WithStatus returns a copy with the given review status.
func (p PullRequest) WithStatus(status PullRequestStatus) PullRequest {
	p.status = status
	return p
}
