package review

import "time"

// ReviewStatus represents the terminal state of a stored review.
type ReviewStatus string

// ReviewStatus values.
const (
	ReviewCompleted ReviewStatus = "completed"
	ReviewFailed    ReviewStatus = "failed"
)

// Review is one immutable AI review of a pull request.
type Review struct {
	id            int64
	pullRequestID int64
	repositoryID  int64
	userID        int64
	content       string
	summary       Summary
	stats         Stats
	sections      Sections
	aiModel       string
	status        ReviewStatus
	commentURL    string
	createdAt     time.Time
}

// NewReview creates a completed Review from a generated report.
func NewReview(pullRequestID, repositoryID, userID int64, report Report, aiModel string) Review {
	return Review{
		pullRequestID: pullRequestID,
		repositoryID:  repositoryID,
		userID:        userID,
		content:       report.Markdown,
		summary:       report.Summary,
		stats:         report.Stats,
		sections:      report.Sections,
		aiModel:       aiModel,
		status:        ReviewCompleted,
	}
}

// NewReviewWithID reconstructs a Review from persisted state.
func NewReviewWithID(
	id, pullRequestID, repositoryID, userID int64,
	content string,
	summary Summary,
	stats Stats,
	sections Sections,
	aiModel string,
	status ReviewStatus,
	commentURL string,
	createdAt time.Time,
) Review {
	return Review{
		id:            id,
		pullRequestID: pullRequestID,
		repositoryID:  repositoryID,
		userID:        userID,
		content:       content,
		summary:       summary,
		stats:         stats,
		sections:      sections,
		aiModel:       aiModel,
		status:        status,
		commentURL:    commentURL,
		createdAt:     createdAt,
	}
}

// ID returns the review ID.
func (r Review) ID() int64 { return r.id }

// PullRequestID returns the reviewed pull request's record ID.
func (r Review) PullRequestID() int64 { return r.pullRequestID }

// RepositoryID returns the owning repository ID.
func (r Review) RepositoryID() int64 { return r.repositoryID }

// UserID returns the owning user's ID.
func (r Review) UserID() int64 { return r.userID }

// Content returns the narrative markdown.
func (r Review) Content() string { return r.content }

// Summary returns the structured summary.
func (r Review) Summary() Summary { return r.summary }

// Stats returns the per-category issue stats.
func (r Review) Stats() Stats { return r.stats }

// Sections returns the detailed findings.
func (r Review) Sections() Sections { return r.sections }

// AIModel returns the model identifier that produced the review.
func (r Review) AIModel() string { return r.aiModel }

// Status returns the review status.
func (r Review) Status() ReviewStatus { return r.status }

// CommentURL returns the URL of the posted host comment, or "".
func (r Review) CommentURL() string { return r.commentURL }

// CreatedAt returns when the review was stored.
func (r Review) CreatedAt() time.Time { return r.createdAt }

// WithCommentURL returns a copy with the posted comment URL set.
func (r Review) WithCommentURL(url string) Review {
	r.commentURL = url
	return r
}
