package chains

// ChainRule maps a trigger task title to the successor task it creates.
// Rules are evaluated in document order; the first rule whose TriggerTask
// equals a completed task's title exactly wins. Nothing enforces trigger
// uniqueness across the document.
type ChainRule struct {
	// TriggerTask is the exact, case-sensitive title that fires this rule.
	TriggerTask string `json:"trigger_task"`

	// CreatesTask is the successor task's title.
	CreatesTask string `json:"creates_task"`

	// List is the display name of the list the successor is created in.
	List string `json:"list"`

	// Category is applied to the successor task.
	Category string `json:"category"`

	// DueTime, when present, is an "HH:MM" clock time. The successor is due
	// today (UTC, at invocation time) at that time.
	DueTime string `json:"due_time,omitempty"`
}

// Notification is one webhook delivery item. Resource is an opaque
// list-scoped path; deliveries may arrive duplicated or out of order.
type Notification struct {
	Resource string `json:"resource"`
}

// NotificationBatch is the webhook POST body.
type NotificationBatch struct {
	Value []Notification `json:"value"`
}

// Failure records one failed rule application or notification, classified
// by kind so operators can tell benign skips from real problems.
type Failure struct {
	Resource string
	Rule     string
	Err      error
}

// Result summarizes one dispatcher invocation. Partial failures never abort
// the batch; they are collected here instead.
type Result struct {
	Created  int
	Skipped  int
	Failures []Failure
}

func (r *Result) fail(resource, rule string, err error) {
	r.Failures = append(r.Failures, Failure{Resource: resource, Rule: rule, Err: err})
}
