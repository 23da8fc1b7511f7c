package board

import (
	"fmt"
	"math"
	"sort"
	"time"

	"taskmaster/domain"
)

const (
	maxPinnedTasks      = 6
	recentActivityLimit = 5
)

// Columns groups the board into the four status columns, preserving board
// order within each column. Unknown statuses land in backlog.
func (s *State) Columns() map[domain.Status][]domain.Task {
	cols := make(map[domain.Status][]domain.Task, len(domain.Statuses()))
	for _, st := range domain.Statuses() {
		cols[st] = nil
	}
	for _, t := range s.tasks {
		st := domain.NormalizeStatus(t.Status)
		cols[st] = append(cols[st], t)
	}
	return cols
}

// ColumnCounts returns the number of cards in each status column.
func (s *State) ColumnCounts() map[domain.Status]int {
	counts := make(map[domain.Status]int, len(domain.Statuses()))
	for _, st := range domain.Statuses() {
		counts[st] = 0
	}
	for _, t := range s.tasks {
		counts[domain.NormalizeStatus(t.Status)]++
	}
	return counts
}

// StatusWidget is the per-status share of the board as whole percentages.
type StatusWidget struct {
	Backlog    int
	InProgress int
	Review     int
	Done       int
}

// StatusWidget computes the percentage distribution across statuses. Each
// share is rounded half away from zero; on an empty board every share is 0.
func (s *State) StatusWidget() StatusWidget {
	counts := s.ColumnCounts()
	total := len(s.tasks)
	if total < 1 {
		total = 1
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	return StatusWidget{
		Backlog:    pct(counts[domain.StatusBacklog]),
		InProgress: pct(counts[domain.StatusInProgress]),
		Review:     pct(counts[domain.StatusReview]),
		Done:       pct(counts[domain.StatusDone]),
	}
}

// PinnedTasks returns the starred cards in board order, capped at six.
func (s *State) PinnedTasks() []domain.Task {
	var pinned []domain.Task
	for _, t := range s.tasks {
		if !t.Starred {
			continue
		}
		pinned = append(pinned, t)
		if len(pinned) == maxPinnedTasks {
			break
		}
	}
	return pinned
}

// RecentActivity returns the five most recently created cards, newest first.
func (s *State) RecentActivity() []domain.Task {
	recent := append([]domain.Task(nil), s.tasks...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt > recent[j].CreatedAt
	})
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}
	return recent
}

// TimeAgo renders a creation timestamp (epoch milliseconds) as a coarse
// relative age.
func TimeAgo(createdAt int64, now time.Time) string {
	elapsed := now.UnixMilli() - createdAt
	switch {
	case elapsed >= 24*int64(time.Hour/time.Millisecond):
		return fmt.Sprintf("%dd ago", elapsed/(24*int64(time.Hour/time.Millisecond)))
	case elapsed >= int64(time.Hour/time.Millisecond):
		return fmt.Sprintf("%dh ago", elapsed/int64(time.Hour/time.Millisecond))
	case elapsed >= int64(time.Minute/time.Millisecond):
		return fmt.Sprintf("%dm ago", elapsed/int64(time.Minute/time.Millisecond))
	default:
		return "just now"
	}
}
