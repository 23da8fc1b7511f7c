package domain

import "github.com/bytedance/sonic"

// Task event types published to the activity queue.
const (
	EventTaskCreated = "task-created"
	EventTaskUpdated = "task-updated"
)

// TaskEvent is the advisory activity record emitted after a successful write.
// Data carries the created task or the applied patch.
type TaskEvent struct {
	Type      string                 `json:"type"`
	TaskID    string                 `json:"taskId"`
	Data      sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// NewTaskCreatedEvent records a freshly created task.
func NewTaskCreatedEvent(t Task) (TaskEvent, error) {
	data, err := sonic.Marshal(t)
	if err != nil {
		return TaskEvent{}, err
	}
	return TaskEvent{Type: EventTaskCreated, TaskID: t.ID, Data: data, Timestamp: t.CreatedAt}, nil
}

// NewTaskUpdatedEvent records the patch applied to an existing task.
func NewTaskUpdatedEvent(taskID string, patch TaskPatch, ts int64) (TaskEvent, error) {
	data, err := sonic.Marshal(patch)
	if err != nil {
		return TaskEvent{}, err
	}
	return TaskEvent{Type: EventTaskUpdated, TaskID: taskID, Data: data, Timestamp: ts}, nil
}
