package task

import (
	"errors"
	"time"
)

// StatusPending is the default for newly created tasks. The status set
// is deliberately open ended; the frontend currently uses
// pending/done but the store accepts any label.
const StatusPending = "pending"

type Task struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

var (
	ErrNotFound = errors.New("task not found")
	ErrNoFields = errors.New("no fields to update")
)

type CreateTaskRequest struct {
	Name      string     `json:"name" binding:"required,min=1,max=255"`
	Status    string     `json:"status" binding:"omitempty,max=50"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type SearchTasksRequest struct {
	Query string `json:"query" binding:"required"`
}

// UpdateTaskRequest is a partial update: only non-nil fields change.
// The recognized field set is fixed; the repo builds SQL from this
// allow-list with positional parameters, never from caller strings.
type UpdateTaskRequest struct {
	Name      *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Status    *string    `json:"status" binding:"omitempty,max=50"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// Field is one recognized assignment of a partial update.
type Field struct {
	Column string
	Value  interface{}
}

// Fields walks the allow-list and returns the assignments actually
// supplied. An empty result is the "no fields to update" validation case.
func (r UpdateTaskRequest) Fields() []Field {
	var fields []Field

	if r.Name != nil {
		fields = append(fields, Field{Column: "name", Value: *r.Name})
	}

	if r.Status != nil {
		fields = append(fields, Field{Column: "status", Value: *r.Status})
	}

	if r.StartTime != nil {
		fields = append(fields, Field{Column: "start_time", Value: *r.StartTime})
	}

	if r.EndTime != nil {
		fields = append(fields, Field{Column: "end_time", Value: *r.EndTime})
	}

	return fields
}
