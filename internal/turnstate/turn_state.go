package turnstate

import "sync"

// TurnState is the mutable state for a single agent turn: pending
// approvals/input, the turn's output budget, its metrics, and its code-read
// ledger. It is created at turn start and discarded at turn end.
//
// The mutex guards every field; it is held only for the duration of a
// single method call, never across a blocking I/O wait.
type TurnState struct {
	mu sync.Mutex

	pendingApprovals map[string]chan ReviewDecision
	pendingInput     []PendingInputItem
	budget           *Budget
	metrics          Metrics
	codeReadIndex    map[string]*IntervalSet
}

// NewTurnState creates a turn state with the default 24 KiB output budget.
func NewTurnState() *TurnState {
	return NewTurnStateWithBudget(DefaultTurnOutputMaxBytes)
}

// NewTurnStateWithBudget creates a turn state with an explicit budget
// ceiling, for callers whose CoreConfig overrides the default.
func NewTurnStateWithBudget(maxBytes int) *TurnState {
	return &TurnState{
		pendingApprovals: make(map[string]chan ReviewDecision),
		budget:           NewBudget(maxBytes),
		codeReadIndex:    make(map[string]*IntervalSet),
	}
}

// ReserveToolOutput reserves desiredBytes of this turn's output budget,
// truncating and reserving notice space as needed. See Budget.Reserve.
func (t *TurnState) ReserveToolOutput(desiredBytes, noticeLen int) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.budget.Reserve(desiredBytes, noticeLen, &t.metrics)
}

// RecordCommandBlocked increments the commands-blocked counter.
func (t *TurnState) RecordCommandBlocked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.CommandsBlocked++
}

// RecordLogTail increments the log-tail-invocation counter.
func (t *TurnState) RecordLogTail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.LogTailInvocations++
}

// DrainMetrics returns the current metrics and resets them to zero.
func (t *TurnState) DrainMetrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.metrics
	t.metrics = Metrics{}
	return m
}

// InsertPendingApproval registers a reply channel for a pending approval
// keyed by key, returning the previous channel registered under that key,
// if any.
func (t *TurnState) InsertPendingApproval(key string, reply chan ReviewDecision) (chan ReviewDecision, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.pendingApprovals[key]
	t.pendingApprovals[key] = reply
	return prev, ok
}

// RemovePendingApproval removes and returns the reply channel for key.
func (t *TurnState) RemovePendingApproval(key string) (chan ReviewDecision, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reply, ok := t.pendingApprovals[key]
	if ok {
		delete(t.pendingApprovals, key)
	}
	return reply, ok
}

// ClearPending drops every pending approval and buffered input item. Called
// when a turn is interrupted.
func (t *TurnState) ClearPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingApprovals = make(map[string]chan ReviewDecision)
	t.pendingInput = nil
}

// PushPendingInput appends an item to the end of the pending input queue.
func (t *TurnState) PushPendingInput(item PendingInputItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingInput = append(t.pendingInput, item)
}

// TakePendingInput returns and clears the pending input queue.
func (t *TurnState) TakePendingInput() []PendingInputItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pendingInput) == 0 {
		return nil
	}
	items := t.pendingInput
	t.pendingInput = nil
	return items
}

// ComputeUnservedCodeRanges returns, for path, the subset of ranges not yet
// recorded as served in this turn's ledger, and whether any requested range
// overlapped something already served.
func (t *TurnState) ComputeUnservedCodeRanges(path string, ranges []Range) ([]Range, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return computeUnservedCodeRanges(t.codeReadIndex, path, ranges)
}

// RecordServedCodeRanges inserts ranges into this turn's ledger for path.
func (t *TurnState) RecordServedCodeRanges(path string, ranges []Range) {
	t.mu.Lock()
	defer t.mu.Unlock()
	recordServedCodeRanges(t.codeReadIndex, path, ranges)
}

// computeUnservedCodeRanges and recordServedCodeRanges are shared between
// TurnState and SessionState, which keep independent path->IntervalSet
// ledgers but apply identical logic to them.
func computeUnservedCodeRanges(index map[string]*IntervalSet, path string, ranges []Range) ([]Range, bool) {
	set, ok := index[path]
	if !ok {
		out := make([]Range, len(ranges))
		copy(out, ranges)
		return out, false
	}

	var uncovered []Range
	hadOverlap := false

	for _, r := range ranges {
		if r.Lo == 0 || r.Hi == 0 || r.Lo > r.Hi {
			continue
		}
		missing := set.Subtract(r.Lo, r.Hi)
		uncovered = append(uncovered, missing...)

		requestedLen := r.Hi - r.Lo + 1
		uncoveredLen := 0
		for _, m := range missing {
			uncoveredLen += m.Hi - m.Lo + 1
		}
		if uncoveredLen < requestedLen {
			hadOverlap = true
		}
	}

	return uncovered, hadOverlap
}

func recordServedCodeRanges(index map[string]*IntervalSet, path string, ranges []Range) {
	if len(ranges) == 0 {
		return
	}
	set, ok := index[path]
	if !ok {
		set = &IntervalSet{}
		index[path] = set
	}
	for _, r := range ranges {
		set.Insert(r.Lo, r.Hi)
	}
}
