package graph

import "time"

// GraphTimeFormat is the timestamp layout the graph API expects inside
// dateTimeTimeZone values: seven fractional digits, no zone suffix.
const GraphTimeFormat = "2006-01-02T15:04:05.0000000"

// TaskStatus values the to-do store reports.
const (
	StatusNotStarted = "notStarted"
	StatusCompleted  = "completed"
)

// TaskList is a to-do list owned by the remote store.
type TaskList struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// DateTimeZone is the graph API's dateTimeTimeZone shape.
type DateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// NewUTCDateTime builds a DateTimeZone for a UTC instant.
func NewUTCDateTime(t time.Time) *DateTimeZone {
	return &DateTimeZone{
		DateTime: t.UTC().Format(GraphTimeFormat),
		TimeZone: "UTC",
	}
}

// TodoTask is a task as returned by the remote store. This service only
// reads completed tasks and creates new ones; it never mutates or deletes.
type TodoTask struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Status           string        `json:"status"`
	Categories       []string      `json:"categories,omitempty"`
	DueDateTime      *DateTimeZone `json:"dueDateTime,omitempty"`
	ReminderDateTime *DateTimeZone `json:"reminderDateTime,omitempty"`
}

// CreateTaskRequest is the body for task creation.
type CreateTaskRequest struct {
	Title            string        `json:"title"`
	Categories       []string      `json:"categories,omitempty"`
	DueDateTime      *DateTimeZone `json:"dueDateTime,omitempty"`
	ReminderDateTime *DateTimeZone `json:"reminderDateTime,omitempty"`
	IsReminderOn     bool          `json:"isReminderOn,omitempty"`
}

// Subscription is a webhook registration owned by the remote platform.
// This service only extends expirations, never recreates subscriptions.
type Subscription struct {
	ID                 string `json:"id"`
	Resource           string `json:"resource"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

type listResponse[T any] struct {
	Value []T `json:"value"`
}
