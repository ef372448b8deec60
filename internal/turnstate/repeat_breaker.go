package turnstate

import (
	"hash/maphash"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultRepeatMaxRepeats is the number of identical-output runs that
	// trips the breaker (the third identical run is blocked).
	DefaultRepeatMaxRepeats = 3
	// DefaultRepeatWindow is the sliding window a command's identical-output
	// streak must stay within.
	DefaultRepeatWindow = 120 * time.Second
	// RepeatOutputPreviewBytes bounds the excerpt kept alongside a blocked
	// command's last output.
	RepeatOutputPreviewBytes = 256
)

// RepeatCommandConfig tunes RepeatCommandBreaker. Zero value is invalid;
// use DefaultRepeatCommandConfig.
type RepeatCommandConfig struct {
	MaxRepeats   int
	Window       time.Duration
	PreviewBytes int
}

// DefaultRepeatCommandConfig returns the package's built-in default values.
func DefaultRepeatCommandConfig() RepeatCommandConfig {
	return RepeatCommandConfig{
		MaxRepeats:   DefaultRepeatMaxRepeats,
		Window:       DefaultRepeatWindow,
		PreviewBytes: RepeatOutputPreviewBytes,
	}
}

// RepeatCommandBlock is returned by Check when a command has repeated its
// output often enough, within the window, to warrant blocking.
type RepeatCommandBlock struct {
	RepeatCount int
	Window      time.Duration
	LastExcerpt string
	HasExcerpt  bool
}

type repeatCommandEntry struct {
	lastFingerprint uint64
	repeatCount     int
	lastSeen        time.Time
	lastExcerpt     string
	hasExcerpt      bool
}

// RepeatCommandBreaker detects an agent stuck re-running the same command
// and getting the same output back, within a sliding window.
type RepeatCommandBreaker struct {
	mu      sync.Mutex
	entries map[string]*repeatCommandEntry
	cfg     RepeatCommandConfig
	seed    maphash.Seed
}

// NewRepeatCommandBreaker builds a breaker with the given config.
func NewRepeatCommandBreaker(cfg RepeatCommandConfig) *RepeatCommandBreaker {
	return &RepeatCommandBreaker{
		entries: make(map[string]*repeatCommandEntry),
		cfg:     cfg,
		seed:    maphash.MakeSeed(),
	}
}

func (b *RepeatCommandBreaker) isEnabled() bool {
	return b.cfg.MaxRepeats > 1
}

func commandKey(command []string) string {
	// NUL is not a valid argv byte, so it is safe as a field separator.
	return strings.Join(command, "\x00")
}

// Check returns a block decision if command has repeated its output enough
// times within the window to warrant blocking. Returns (nil) when disabled,
// when the command is empty, when no entry exists, or when the existing
// entry's window has lapsed (in which case the entry is evicted).
func (b *RepeatCommandBreaker) Check(command []string, now time.Time) *RepeatCommandBlock {
	if !b.isEnabled() || len(command) == 0 {
		return nil
	}

	key := commandKey(command)

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil
	}

	if now.Sub(entry.lastSeen) > b.cfg.Window {
		delete(b.entries, key)
		return nil
	}

	threshold := b.cfg.MaxRepeats - 1
	if threshold <= 0 {
		return nil
	}

	if entry.repeatCount < threshold {
		return nil
	}

	return &RepeatCommandBlock{
		RepeatCount: entry.repeatCount,
		Window:      b.cfg.Window,
		LastExcerpt: entry.lastExcerpt,
		HasExcerpt:  entry.hasExcerpt,
	}
}

// Record folds one more (command, output) observation into the breaker's
// state, resetting the streak when the output changes or the window lapses.
func (b *RepeatCommandBreaker) Record(command []string, output string, now time.Time) {
	if !b.isEnabled() || len(command) == 0 {
		return
	}

	fingerprint := fingerprintOutput(&b.seed, output)
	excerpt, hasExcerpt := outputPreview(output, b.cfg.PreviewBytes)
	key := commandKey(command)

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		b.entries[key] = &repeatCommandEntry{
			lastFingerprint: fingerprint,
			repeatCount:     1,
			lastSeen:        now,
			lastExcerpt:     excerpt,
			hasExcerpt:      hasExcerpt,
		}
		return
	}

	if now.Sub(entry.lastSeen) > b.cfg.Window || entry.lastFingerprint != fingerprint {
		entry.repeatCount = 1
		entry.lastFingerprint = fingerprint
	} else {
		entry.repeatCount = min(entry.repeatCount+1, b.cfg.MaxRepeats)
	}
	entry.lastSeen = now
	entry.lastExcerpt = excerpt
	entry.hasExcerpt = hasExcerpt
}

// fingerprintOutput reduces output to a fast, non-cryptographic 64-bit
// digest. Like the reference implementation's DefaultHasher, this exists
// purely to detect "same output as last time" within one process lifetime —
// it is not stable across builds or suitable for anything security-sensitive.
func fingerprintOutput(seed *maphash.Seed, output string) uint64 {
	var h maphash.Hash
	h.SetSeed(*seed)
	_, _ = h.WriteString(output)
	return h.Sum64()
}

func outputPreview(output string, previewBytes int) (string, bool) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "", false
	}
	if previewBytes <= 0 {
		previewBytes = RepeatOutputPreviewBytes
	}
	return truncateMiddle(trimmed, previewBytes), true
}
