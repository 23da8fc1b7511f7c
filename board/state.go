package board

import (
	"taskmaster/domain"
)

// State is the client-side mirror of the task list. It is not safe for
// concurrent use; all access must happen on the owning event loop, with
// request completions delivered back to that loop before settling.
type State struct {
	tasks   []domain.Task
	index   map[string]int
	seq     map[string]uint64
	pending map[string]int
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		index:   make(map[string]int),
		seq:     make(map[string]uint64),
		pending: make(map[string]int),
	}
}

// Replace swaps in a freshly fetched task list, discarding any pending
// bookkeeping along with the cards it referred to.
func (s *State) Replace(tasks []domain.Task) {
	s.tasks = append(s.tasks[:0:0], tasks...)
	s.index = make(map[string]int, len(s.tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
	s.seq = make(map[string]uint64)
	s.pending = make(map[string]int)
}

// Tasks returns a copy of the current task list in board order.
func (s *State) Tasks() []domain.Task {
	return append([]domain.Task(nil), s.tasks...)
}

// Task returns the card with the given id, if present.
func (s *State) Task(id string) (domain.Task, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return s.tasks[i], true
}

// Append adds a confirmed new card to the end of the board.
func (s *State) Append(t domain.Task) {
	if _, ok := s.index[t.ID]; ok {
		return
	}
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
}

// Pending reports whether the card has requests in flight.
func (s *State) Pending(id string) bool {
	return s.pending[id] > 0
}

// Mutation is one optimistic transition for one card. The snapshot holds the
// prior values of exactly the fields the patch touched, so a rollback
// restores those fields without clobbering later unrelated changes.
type Mutation struct {
	TaskID string
	Seq    uint64
	Patch  domain.TaskPatch
	prev   domain.TaskPatch
}

// ApplyOptimistic applies the patch to the local card immediately and
// returns the pending Mutation to settle once the matching request
// completes. It reports false when the card does not exist or the patch is
// empty.
func (s *State) ApplyOptimistic(id string, patch domain.TaskPatch) (Mutation, bool) {
	i, ok := s.index[id]
	if !ok || patch.IsZero() {
		return Mutation{}, false
	}

	task := &s.tasks[i]
	var prev domain.TaskPatch
	if patch.Title != nil {
		v := task.Title
		prev.Title = &v
	}
	if patch.Priority != nil {
		v := task.Priority
		prev.Priority = &v
	}
	if patch.Status != nil {
		v := task.Status
		prev.Status = &v
	}
	if patch.Assignee != nil {
		v := task.Assignee
		prev.Assignee = &v
	}
	if patch.Starred != nil {
		v := task.Starred
		prev.Starred = &v
	}

	patch.Apply(task)
	s.seq[id]++
	s.pending[id]++
	return Mutation{TaskID: id, Seq: s.seq[id], Patch: patch, prev: prev}, true
}

// SettleResult describes the outcome of settling a mutation.
type SettleResult int

const (
	// SettleConfirmed means the server accepted the change and the
	// optimistic value is now the settled value.
	SettleConfirmed SettleResult = iota
	// SettleRolledBack means the request failed and the snapshot was
	// restored.
	SettleRolledBack
	// SettleStale means a newer mutation superseded this one before its
	// request completed; the completion is discarded either way so the
	// latest issued state stays authoritative.
	SettleStale
)

// Settle finalizes a mutation once its request has completed. ok indicates
// whether the server accepted the change.
func (s *State) Settle(m Mutation, ok bool) SettleResult {
	if s.pending[m.TaskID] > 0 {
		s.pending[m.TaskID]--
		if s.pending[m.TaskID] == 0 {
			delete(s.pending, m.TaskID)
		}
	}

	if s.seq[m.TaskID] != m.Seq {
		return SettleStale
	}
	if ok {
		return SettleConfirmed
	}

	if i, found := s.index[m.TaskID]; found {
		m.prev.Apply(&s.tasks[i])
	}
	return SettleRolledBack
}
