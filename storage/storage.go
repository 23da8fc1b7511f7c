package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"taskmaster/domain"
)

// Every task document lives in one partition; the board has no notion of
// tenants and the task count stays small.
const taskPartition = "board"

const edmInt64Type = "Edm.Int64"

type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Storage persists task documents in an Azure table and publishes activity
// events to an Azure queue. Each call is an independent round trip.
type Storage struct {
	taskTable        tableClient
	eventQueue       queueClient
	queueConcurrency int
}

// New creates a Storage instance from the given connection string. The events
// queue is optional; pass an empty name to disable activity publication.
func New(connStr, tasksTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		taskTable:        svc.NewClient(tasksTable),
		queueConcurrency: queueConcurrencyForCPU(numCPU()),
	}
	if eventsQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute * 5,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 60,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.eventQueue = eq
	}
	return s, nil
}

type taskEntity struct {
	aztables.Entity
	Title         string            `json:"Title"`
	Priority      string            `json:"Priority"`
	Status        string            `json:"Status"`
	Assignee      string            `json:"Assignee"`
	Starred       bool              `json:"Starred"`
	CreatedAt     aztables.EDMInt64 `json:"CreatedAt"`
	CreatedAtType string            `json:"CreatedAt@odata.type,omitempty"`
}

func entityFromTask(t domain.Task) taskEntity {
	return taskEntity{
		Entity: aztables.Entity{
			PartitionKey: taskPartition,
			RowKey:       t.ID,
		},
		Title:         t.Title,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		Assignee:      t.Assignee,
		Starred:       t.Starred,
		CreatedAt:     aztables.EDMInt64(t.CreatedAt),
		CreatedAtType: edmInt64Type,
	}
}

func (e taskEntity) toTask() domain.Task {
	return domain.Task{
		ID:        e.RowKey,
		Title:     e.Title,
		Priority:  domain.Priority(e.Priority),
		Status:    domain.Status(e.Status),
		Assignee:  e.Assignee,
		Starred:   e.Starred,
		CreatedAt: int64(e.CreatedAt),
	}
}

// FetchTasks retrieves every task, newest first. The table service returns
// rows in key order, so recency ordering happens here; CreatedAt values come
// from a strictly monotonic allocator which makes the sort equivalent to
// insertion order.
func (s *Storage) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + taskPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toTask())
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt != tasks[j].CreatedAt {
			return tasks[i].CreatedAt > tasks[j].CreatedAt
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

// CreateTask persists a fully materialized task document.
func (s *Storage) CreateTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(entityFromTask(t))
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, data, nil)
	return err
}

// UpdateTask applies a partial update to the task with the given id and
// returns the updated task. The replace is guarded by the entity ETag so a
// single update call is an atomic read-modify-write.
func (s *Storage) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, taskPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Task{}, NotFoundError{ID: id}
		}
		return domain.Task{}, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	task := ent.toTask()
	patch.Apply(&task)

	updated := entityFromTask(task)
	data, err := json.Marshal(updated)
	if err != nil {
		return domain.Task{}, err
	}
	etag := resp.ETag
	_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
		IfMatch:    &etag,
	})
	if err != nil {
		if isNotFound(err) {
			return domain.Task{}, NotFoundError{ID: id}
		}
		return domain.Task{}, err
	}
	return task, nil
}

// PublishEvents sends the given activity events to the events queue with
// bounded concurrency. It is a no-op when no queue is configured.
func (s *Storage) PublishEvents(ctx context.Context, events []domain.TaskEvent) error {
	if s.eventQueue == nil || len(events) == 0 {
		return nil
	}
	limit := s.queueConcurrency
	if limit <= 0 {
		limit = 1
	}

	sem := make(chan struct{}, limit)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(msg string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.eventQueue.EnqueueMessage(ctx, msg, nil); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(string(data))
	}
	wg.Wait()
	return firstErr
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
