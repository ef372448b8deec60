package turnstate

const (
	// DefaultTurnOutputMaxBytes is the per-turn tool-output budget.
	DefaultTurnOutputMaxBytes = 24 * 1024
	// TurnOutputNoticeReserveBytes caps how much of the budget a truncation
	// notice itself may consume.
	TurnOutputNoticeReserveBytes = 128
)

// TurnOutputTruncationNotice is appended, verbatim or trimmed, when the
// turn-level budget is exhausted.
const TurnOutputTruncationNotice = "[turn output truncated after reaching 24 KiB; refine your request or use /relax]"

// Metrics accumulates turn-scoped counters. The zero value is the empty
// record DrainMetrics resets to.
type Metrics struct {
	BytesServed       int
	BytesTrimmed      int
	OutputsTruncated  int
	CommandsBlocked   int
	LogTailInvocations int
}

// IsEmpty reports whether every counter is zero.
func (m Metrics) IsEmpty() bool {
	return m.BytesServed == 0 &&
		m.BytesTrimmed == 0 &&
		m.OutputsTruncated == 0 &&
		m.CommandsBlocked == 0 &&
		m.LogTailInvocations == 0
}

// Decision is the outcome of a single Budget.Reserve call.
type Decision struct {
	AllowedContentBytes int
	NoticeBytes         int
	Truncated           bool
}

// Budget is a monotone byte allocator: used bytes never exceed max bytes,
// and never decrease.
type Budget struct {
	maxBytes  int
	usedBytes int
}

// NewBudget creates a budget with the given byte ceiling.
func NewBudget(maxBytes int) *Budget {
	return &Budget{maxBytes: maxBytes}
}

// Remaining returns the unconsumed portion of the budget.
func (b *Budget) Remaining() int {
	if b.usedBytes >= b.maxBytes {
		return 0
	}
	return b.maxBytes - b.usedBytes
}

func (b *Budget) consume(n int) {
	total := b.usedBytes + n
	if total > b.maxBytes {
		total = b.maxBytes
	}
	b.usedBytes = total
}

// Reserve allocates desiredBytes of content, reserving a suffix for a
// truncation notice (capped at TurnOutputNoticeReserveBytes and at
// noticeLen) when the budget cannot cover the full request.
func (b *Budget) Reserve(desiredBytes, noticeLen int, metrics *Metrics) Decision {
	if desiredBytes == 0 {
		return Decision{}
	}

	remaining := b.Remaining()

	if desiredBytes <= remaining {
		b.consume(desiredBytes)
		metrics.BytesServed += desiredBytes
		return Decision{AllowedContentBytes: desiredBytes}
	}

	noticeCap := min(TurnOutputNoticeReserveBytes, noticeLen)

	var allowedContentBytes, noticeBytes int
	if remaining == 0 {
		noticeBytes = noticeCap
	} else {
		noticeBytes = min(remaining, noticeCap)
		allowedContentBytes = remaining - noticeBytes
	}

	served := allowedContentBytes + noticeBytes
	b.consume(served)

	metrics.BytesServed += served
	metrics.BytesTrimmed += desiredBytes - allowedContentBytes
	metrics.OutputsTruncated++

	return Decision{
		AllowedContentBytes: allowedContentBytes,
		NoticeBytes:         noticeBytes,
		Truncated:           true,
	}
}
