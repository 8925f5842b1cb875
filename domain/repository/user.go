package repository

import "time"

// Plan represents a billing plan.
type Plan string

// Plan values.
const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User represents the account that connects repositories.
type User struct {
	id          int64
	name        string
	email       string
	githubID    string
	githubToken string
	plan        Plan
	createdAt   time.Time
	updatedAt   time.Time
}

// NewUser creates a User.
func NewUser(name, email, githubID, githubToken string, plan Plan) User {
	if plan == "" {
		plan = PlanFree
	}
	return User{
		name:        name,
		email:       email,
		githubID:    githubID,
		githubToken: githubToken,
		plan:        plan,
	}
}

// NewUserWithID reconstructs a User from persisted state.
func NewUserWithID(id int64, name, email, githubID, githubToken string, plan Plan, createdAt, updatedAt time.Time) User {
	return User{
		id:          id,
		name:        name,
		email:       email,
		githubID:    githubID,
		githubToken: githubToken,
		plan:        plan,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the user ID.
func (u User) ID() int64 { return u.id }

// Name returns the display name.
func (u User) Name() string { return u.name }

// Email returns the account email.
func (u User) Email() string { return u.email }

// GithubID returns the host-side user identifier.
func (u User) GithubID() string { return u.githubID }

// GithubToken returns the host access token, or "" if not linked.
func (u User) GithubToken() string { return u.githubToken }

// Plan returns the billing plan.
func (u User) Plan() Plan { return u.plan }

// CreatedAt returns when the user was created.
func (u User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns when the user was last updated.
func (u User) UpdatedAt() time.Time { return u.updatedAt }
