package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Complaint struct {
	ID             string
	TrackingID     string
	SubmitterName  string
	SubmitterEmail string
	Department     string
	Category       string
	Description    string
	Type           string // "Public" or "Internal"
	Status         string // "Pending", "In Progress", "Resolved", "Rejected"
	Priority       string // "Low", "Medium", "High", "Urgent"
	Sentiment      string
	Urgency        int
	Keywords       string // JSON array stored as text
	Tags           string // JSON array stored as text
	Source         string // "chat", "web", "mcp"
	AdminReply     string
	Evidence       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Attachment struct {
	ID          string
	ComplaintID string
	Filename    string
	ContentType string
	Data        []byte
	Text        string // extracted text, filled by the ingest worker
	CreatedAt   time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
