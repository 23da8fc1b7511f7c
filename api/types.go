package api

import (
	"context"

	"taskmaster/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	PublishEvents(ctx context.Context, events []domain.TaskEvent) error
}

// NotFoundError is implemented by storage errors that mean no task exists
// with the requested id.
type NotFoundError interface {
	error
	NotFound()
}

const taskPayloadMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}
