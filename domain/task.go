package domain

// Status is the board column a task sits in.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses returns the board columns in display order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusInProgress, StatusReview, StatusDone}
}

// NormalizeStatus maps unknown values to StatusBacklog so every task lands in
// a real column.
func NormalizeStatus(s Status) Status {
	switch s {
	case StatusBacklog, StatusInProgress, StatusReview, StatusDone:
		return s
	default:
		return StatusBacklog
	}
}

// Priority is a free-form importance label; Low/Medium/High are the values
// the board offers.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Task represents a single board item.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	Status    Status   `json:"status"`
	Assignee  string   `json:"assignee"`
	Starred   bool     `json:"starred"`
	CreatedAt int64    `json:"createdAt"`
}

// ApplyDefaults fills omitted optional fields with their documented defaults.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusBacklog
	}
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title    *string   `json:"title,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Assignee *string   `json:"assignee,omitempty"`
	Starred  *bool     `json:"starred,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Priority == nil && p.Status == nil && p.Assignee == nil && p.Starred == nil
}

// Apply copies the set fields onto t. The task identity fields (ID,
// CreatedAt) are never touched.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Starred != nil {
		t.Starred = *p.Starred
	}
}
