package task

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationIndexRepository   Operation = "codeowl.index.repository"
	OperationReviewPullRequest Operation = "codeowl.review.pull_request"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}
