// Package persistence provides database storage implementations.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Float64Slice stores a []float64 as JSON.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON columns.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON columns.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// UserModel represents a user account in the database.
type UserModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;type:varchar(255);not null"`
	Email       string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	GithubID    string    `gorm:"column:github_id;type:varchar(255);index"`
	GithubToken string    `gorm:"column:github_token;type:varchar(255)"`
	Plan        string    `gorm:"column:plan;type:varchar(32);not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (UserModel) TableName() string {
	return "users"
}

// RepositoryModel represents a connected repository in the database.
type RepositoryModel struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           int64           `gorm:"column:user_id;index;not null"`
	GithubRepoID     string          `gorm:"column:github_repo_id;type:varchar(255);index;not null"`
	Owner            string          `gorm:"column:owner;type:varchar(255);not null"`
	Name             string          `gorm:"column:name;type:varchar(255);not null"`
	FullName         string          `gorm:"column:full_name;type:varchar(512);index;not null"`
	DefaultBranch    string          `gorm:"column:default_branch;type:varchar(255)"`
	Private          bool            `gorm:"column:private;not null"`
	Connected        bool            `gorm:"column:connected;index;not null"`
	WebhookID        string          `gorm:"column:webhook_id;type:varchar(255)"`
	Indexed          bool            `gorm:"column:indexed;not null"`
	IndexingStatus   string          `gorm:"column:indexing_status;type:varchar(32);not null"`
	IndexingProgress int             `gorm:"column:indexing_progress;not null"`
	IndexingMetrics  json.RawMessage `gorm:"column:indexing_metrics;type:json"`
	LastIndexedAt    *time.Time      `gorm:"column:last_indexed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (RepositoryModel) TableName() string {
	return "repositories"
}

// PullRequestModel represents a pull request in the database.
type PullRequestModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID int64     `gorm:"column:repository_id;index;not null"`
	Number       int       `gorm:"column:number;index;not null"`
	Title        string    `gorm:"column:title;type:varchar(1024)"`
	Author       string    `gorm:"column:author;type:varchar(255)"`
	State        string    `gorm:"column:state;type:varchar(32)"`
	HTMLURL      string    `gorm:"column:html_url;type:varchar(1024)"`
	Status       string    `gorm:"column:status;type:varchar(32);index;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (PullRequestModel) TableName() string {
	return "pull_requests"
}

// ReviewModel represents a stored review in the database.
type ReviewModel struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PullRequestID int64           `gorm:"column:pull_request_id;index;not null"`
	RepositoryID  int64           `gorm:"column:repository_id;index;not null"`
	UserID        int64           `gorm:"column:user_id;index;not null"`
	Content       string          `gorm:"column:content;type:text"`
	Summary       json.RawMessage `gorm:"column:summary;type:json"`
	Stats         json.RawMessage `gorm:"column:stats;type:json"`
	Sections      json.RawMessage `gorm:"column:sections;type:json"`
	AIModel       string          `gorm:"column:ai_model;type:varchar(255)"`
	Status        string          `gorm:"column:status;type:varchar(32);not null"`
	CommentURL    string          `gorm:"column:comment_url;type:varchar(1024)"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (ReviewModel) TableName() string {
	return "reviews"
}

// TaskModel represents a queued task in the database.
type TaskModel struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string          `gorm:"column:dedup_key;type:varchar(255);uniqueIndex;not null"`
	Operation string          `gorm:"column:operation;type:varchar(255);index;not null"`
	Priority  int             `gorm:"column:priority;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:json"`
	Attempts  int             `gorm:"column:attempts;not null"`
	NotBefore time.Time       `gorm:"column:not_before;index"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (TaskModel) TableName() string {
	return "tasks"
}

// ChunkEmbeddingModel represents one embedded file chunk in the vector index.
// The repository ID is the namespace column.
type ChunkEmbeddingModel struct {
	ID           int64        `gorm:"column:id;primaryKey;autoIncrement"`
	VectorID     string       `gorm:"column:vector_id;type:varchar(64);uniqueIndex;not null"`
	RepositoryID int64        `gorm:"column:repository_id;index;not null"`
	FilePath     string       `gorm:"column:file_path;type:varchar(1024);not null"`
	ChunkIndex   int          `gorm:"column:chunk_index;not null"`
	TotalChunks  int          `gorm:"column:total_chunks;not null"`
	StartChar    int          `gorm:"column:start_char;not null"`
	EndChar      int          `gorm:"column:end_char;not null"`
	Content      string       `gorm:"column:content;type:text"`
	Embedding    Float64Slice `gorm:"column:embedding;type:json;not null"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (ChunkEmbeddingModel) TableName() string {
	return "chunk_embeddings"
}
