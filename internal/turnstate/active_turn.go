package turnstate

import (
	"context"
	"sync"
)

// TaskKind distinguishes the different session-task shapes a running turn
// may host.
type TaskKind int

const (
	TaskRegular TaskKind = iota
	TaskReview
	TaskCompact
)

// RunningTask is the bookkeeping an ActiveTurn keeps for one in-flight
// subscription (typically one exec or read-code call).
type RunningTask struct {
	Kind   TaskKind
	Cancel context.CancelFunc
}

// ActiveTurn tracks the running tasks of the current turn alongside its
// TurnState. Task order is preserved (insertion order), matching the
// reference implementation's IndexMap, so a caller enumerating in-flight
// work sees it in the order calls were issued.
type ActiveTurn struct {
	mu        sync.Mutex
	order     []string
	tasks     map[string]RunningTask
	TurnState *TurnState
}

// NewActiveTurn creates an empty ActiveTurn backed by a fresh TurnState.
func NewActiveTurn() *ActiveTurn {
	return &ActiveTurn{
		tasks:     make(map[string]RunningTask),
		TurnState: NewTurnState(),
	}
}

// AddTask registers task under subID, appending to the insertion order.
func (a *ActiveTurn) AddTask(subID string, task RunningTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.tasks[subID]; !exists {
		a.order = append(a.order, subID)
	}
	a.tasks[subID] = task
}

// RemoveTask removes subID's task. Returns true if no tasks remain.
func (a *ActiveTurn) RemoveTask(subID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tasks[subID]; ok {
		delete(a.tasks, subID)
		for i, id := range a.order {
			if id == subID {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
	return len(a.tasks) == 0
}

// DrainTasks returns every registered task, in insertion order, clearing the
// set.
func (a *ActiveTurn) DrainTasks() []RunningTask {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]RunningTask, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.tasks[id])
	}
	a.order = nil
	a.tasks = make(map[string]RunningTask)
	return out
}

// ClearPending clears pending approvals/input on the backing TurnState.
func (a *ActiveTurn) ClearPending() {
	a.TurnState.ClearPending()
}
