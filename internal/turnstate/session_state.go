package turnstate

import (
	"sync"
	"time"
)

// SessionState is the persistent, session-scoped counterpart to TurnState:
// it lives for the whole conversation, not just one turn, and holds the
// repeat-command breaker and a session-lifetime code-read ledger.
type SessionState struct {
	mu sync.Mutex

	approvedCommands map[string]bool
	breaker          *RepeatCommandBreaker
	codeReadIndex    map[string]*IntervalSet
}

// NewSessionState creates a session state with the default repeat-command
// breaker configuration.
func NewSessionState() *SessionState {
	return NewSessionStateWithBreakerConfig(DefaultRepeatCommandConfig())
}

// NewSessionStateWithBreakerConfig creates a session state with an explicit
// breaker configuration, for CoreConfig overrides.
func NewSessionStateWithBreakerConfig(cfg RepeatCommandConfig) *SessionState {
	return &SessionState{
		approvedCommands: make(map[string]bool),
		breaker:          NewRepeatCommandBreaker(cfg),
		codeReadIndex:    make(map[string]*IntervalSet),
	}
}

// AddApprovedCommand records command as pre-approved for the rest of the
// session (e.g. after an interactive "always allow" decision).
func (s *SessionState) AddApprovedCommand(command []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvedCommands[commandKey(command)] = true
}

// IsApprovedCommand reports whether command was previously approved.
func (s *SessionState) IsApprovedCommand(command []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvedCommands[commandKey(command)]
}

// CheckRepeatCommand consults the session's repeat-command breaker.
func (s *SessionState) CheckRepeatCommand(command []string, now time.Time) *RepeatCommandBlock {
	return s.breaker.Check(command, now)
}

// RecordRepeatCommand updates the session's repeat-command breaker with the
// latest (command, output) observation.
func (s *SessionState) RecordRepeatCommand(command []string, output string, now time.Time) {
	s.breaker.Record(command, output, now)
}

// ComputeUnservedCodeRanges returns the subset of ranges not yet recorded as
// served in this session's ledger for path, and whether any range
// overlapped something already served.
func (s *SessionState) ComputeUnservedCodeRanges(path string, ranges []Range) ([]Range, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeUnservedCodeRanges(s.codeReadIndex, path, ranges)
}

// RecordServedCodeRanges inserts ranges into this session's ledger for path.
func (s *SessionState) RecordServedCodeRanges(path string, ranges []Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordServedCodeRanges(s.codeReadIndex, path, ranges)
}
