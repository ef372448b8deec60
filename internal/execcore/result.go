package execcore

import "strings"

// StreamOutput is a byte-capped capture of one output stream (stdout,
// stderr, or the aggregated interleaving of both). T is []byte while a
// capture is in progress and string once FromUTF8Lossy has converted it
// for the caller.
type StreamOutput[T any] struct {
	Text                T
	TruncatedAfterBytes bool
}

// FromUTF8Lossy converts a []byte capture to its string form. Invalid UTF-8
// sequences are replaced rather than rejected, since subprocess output is
// not guaranteed to be valid UTF-8 and the model-facing transcript needs a
// string regardless.
func FromUTF8Lossy(in StreamOutput[[]byte]) StreamOutput[string] {
	return StreamOutput[string]{
		Text:                strings.ToValidUTF8(string(in.Text), "�"),
		TruncatedAfterBytes: in.TruncatedAfterBytes,
	}
}

// ExecOutcome classifies how an ExecSupervisor invocation ended.
type ExecOutcome int

const (
	OutcomeExited ExecOutcome = iota
	OutcomeTimedOut
	OutcomeSignaled
	OutcomeSandboxDenied
)

// ExecResult is the full result of one ExecSupervisor.Run call.
type ExecResult struct {
	Outcome  ExecOutcome
	ExitCode int
	Signal   int // valid when Outcome == OutcomeSignaled

	Stdout     StreamOutput[string]
	Stderr     StreamOutput[string]
	Aggregated StreamOutput[string]

	DurationMS int64
}
