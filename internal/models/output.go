package models

import "time"

// Output statuses as stored in the outputs table.
const (
	OutputStatusPending   = "pending"
	OutputStatusApproved  = "approved"
	OutputStatusPublished = "published"
	OutputStatusRejected  = "rejected"
)

// Output is a generated piece of content that went through the approval
// flow. Approved outputs are the feedback loop's input: each is re-indexed
// as a new source document.
type Output struct {
	ID          int64      `json:"id" db:"id"`
	Content     string     `json:"content" db:"content"`
	Status      string     `json:"status" db:"status"`
	IsReply     bool       `json:"is_reply" db:"is_reply"`
	ParentID    *int64     `json:"parent_id,omitempty" db:"parent_id"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Approved reports whether the output has cleared approval (approved or
// already published).
func (o *Output) Approved() bool {
	return o.Status == OutputStatusApproved || o.Status == OutputStatusPublished
}
