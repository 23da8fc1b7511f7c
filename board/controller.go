package board

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskmaster/domain"
)

// Controller owns the board state and reconciles it with the task API.
// Mutating methods apply locally right away and hand back a request
// function; the caller runs that function wherever it likes (a goroutine, a
// tea.Cmd, or inline) and feeds the resulting Completion back into Resolve
// on the owning event loop.
type Controller struct {
	state  *State
	client *Client
	logger *log.Logger
}

// NewController creates a Controller over the given API client.
func NewController(client *Client, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New()
	}
	return &Controller{state: NewState(), client: client, logger: logger}
}

// State exposes the board state for rendering.
func (c *Controller) State() *State {
	return c.state
}

// Load fetches the full task list. On failure the board is reset to an
// empty, fully usable state and the error is returned for display.
func (c *Controller) Load(ctx context.Context) error {
	tasks, err := c.client.ListTasks(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load tasks, starting empty")
		c.state.Replace(nil)
		return err
	}
	c.state.Replace(tasks)
	return nil
}

// Completion is the outcome of one mutation request.
type Completion struct {
	Mutation Mutation
	Task     domain.Task
	Err      error
}

// MoveTask optimistically moves a card to the target column and returns the
// request to run. It reports false when the card is unknown or already in
// that column.
func (c *Controller) MoveTask(id string, status domain.Status) (func(context.Context) Completion, bool) {
	task, ok := c.state.Task(id)
	if !ok || task.Status == status {
		return nil, false
	}
	return c.mutate(id, domain.TaskPatch{Status: &status})
}

// ToggleStar optimistically flips the card's starred flag and returns the
// request to run.
func (c *Controller) ToggleStar(id string) (func(context.Context) Completion, bool) {
	task, ok := c.state.Task(id)
	if !ok {
		return nil, false
	}
	starred := !task.Starred
	return c.mutate(id, domain.TaskPatch{Starred: &starred})
}

func (c *Controller) mutate(id string, patch domain.TaskPatch) (func(context.Context) Completion, bool) {
	m, ok := c.state.ApplyOptimistic(id, patch)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context) Completion {
		updated, err := c.client.UpdateTask(ctx, m.TaskID, m.Patch)
		return Completion{Mutation: m, Task: updated, Err: err}
	}, true
}

// Resolve settles a completed mutation against the board state, rolling the
// card back when the request failed.
func (c *Controller) Resolve(comp Completion) SettleResult {
	res := c.state.Settle(comp.Mutation, comp.Err == nil)
	if res == SettleRolledBack {
		c.logger.WithError(comp.Err).WithField("task_id", comp.Mutation.TaskID).Warn("Update failed, rolled back")
	}
	return res
}

// CreateCompletion is the outcome of one creation request.
type CreateCompletion struct {
	Task domain.Task
	Err  error
}

// CreateTask returns the request that creates a task on the server. Nothing
// is added locally until the server confirms; feed the completion to
// AcceptCreate.
func (c *Controller) CreateTask(input CreateInput) func(context.Context) CreateCompletion {
	return func(ctx context.Context) CreateCompletion {
		created, err := c.client.CreateTask(ctx, input)
		return CreateCompletion{Task: created, Err: err}
	}
}

// AcceptCreate appends the confirmed card to the board. It reports false on
// failure, leaving the board untouched so the caller can keep the entered
// values for retry.
func (c *Controller) AcceptCreate(comp CreateCompletion) bool {
	if comp.Err != nil {
		c.logger.WithError(comp.Err).Warn("Failed to create task")
		return false
	}
	c.state.Append(comp.Task)
	return true
}
