package readcode

import (
	"sort"
	"strconv"
	"strings"

	"github.com/coderunner/agentcore/internal/coreerr"
	"github.com/coderunner/agentcore/internal/turnstate"
)

// normalizeRanges validates 1-indexing, swaps reversed pairs, and sorts by
// start in place.
func normalizeRanges(ranges []turnstate.Range) error {
	for i, r := range ranges {
		if r.Lo == 0 || r.Hi == 0 {
			return coreerr.NewRespondToModel("line numbers must be 1-indexed and greater than zero")
		}
		if r.Hi < r.Lo {
			ranges[i] = turnstate.Range{Lo: r.Hi, Hi: r.Lo}
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Lo < ranges[j].Lo })
	return nil
}

// applyContext expands each range by context lines in both directions
// (floored at 1, capped at lineCount) and merges the results.
func applyContext(ranges []turnstate.Range, context int, lineCount int) []turnstate.Range {
	out := make([]turnstate.Range, 0, len(ranges))
	if lineCount == 0 {
		return out
	}
	for _, r := range ranges {
		start := r.Lo - context
		if start < 1 {
			start = 1
		}
		end := r.Hi + context
		if end > lineCount {
			end = lineCount
		}
		if start <= end {
			out = append(out, turnstate.Range{Lo: start, Hi: end})
		}
	}
	return mergeRanges(out)
}

// mergeRanges sorts by start and joins touching/overlapping ranges, matching
// IntervalSet's adjacency rule (c <= b+1 merges).
func mergeRanges(ranges []turnstate.Range) []turnstate.Range {
	if len(ranges) == 0 {
		return ranges
	}
	sorted := make([]turnstate.Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })

	merged := make([]turnstate.Range, 0, len(sorted))
	current := sorted[0]
	for _, r := range sorted[1:] {
		if r.Lo <= current.Hi+1 {
			if r.Hi > current.Hi {
				current.Hi = r.Hi
			}
			continue
		}
		merged = append(merged, current)
		current = r
	}
	merged = append(merged, current)
	return merged
}

// enforceLineCap trims ranges, in order, to at most maxLines total lines.
// Returns the trimmed ranges and whether anything was cut.
func enforceLineCap(ranges []turnstate.Range, maxLines int) ([]turnstate.Range, bool) {
	remaining := maxLines
	var result []turnstate.Range
	truncated := false

	for _, r := range ranges {
		if remaining == 0 {
			truncated = true
			break
		}
		span := r.Hi - r.Lo + 1
		allowed := span
		if remaining < allowed {
			allowed = remaining
		}
		actualEnd := r.Lo + allowed - 1
		result = append(result, turnstate.Range{Lo: r.Lo, Hi: actualEnd})
		remaining -= allowed
		if actualEnd < r.Hi {
			truncated = true
			break
		}
	}

	return result, truncated
}

// buildContent renders each range as a "lines {start}-{end}:" label
// followed by its raw lines (lines already include their newline
// terminator), stopping the instant the next write would exceed maxBytes.
// Returns the rendered content, the subranges actually served, and whether
// the byte budget cut anything short.
func buildContent(ranges []turnstate.Range, lines []string, maxBytes int) (string, []turnstate.Range, bool) {
	var content strings.Builder
	var served []turnstate.Range
	used := 0
	firstSegment := true
	endsWithNewline := true
	truncated := false

	for _, r := range ranges {
		if r.Lo-1 >= len(lines) || r.Lo-1 < 0 {
			continue
		}
		label := labelFor(r.Lo, r.Hi)
		labelLen := len(label)
		firstLineLen := len(lines[r.Lo-1])

		required := labelLen + firstLineLen
		needsSeparator := !firstSegment && !endsWithNewline
		if needsSeparator {
			required++
		}

		if used+required > maxBytes {
			truncated = true
			break
		}

		if needsSeparator {
			content.WriteByte('\n')
			used++
		}

		content.WriteString(label)
		used += labelLen
		endsWithNewline = true

		actualEnd := r.Lo - 1
		for lineIdx := r.Lo; lineIdx <= r.Hi; lineIdx++ {
			if lineIdx-1 >= len(lines) {
				break
			}
			text := lines[lineIdx-1]
			if used+len(text) > maxBytes {
				truncated = true
				break
			}
			content.WriteString(text)
			used += len(text)
			actualEnd = lineIdx
			endsWithNewline = strings.HasSuffix(text, "\n")
		}

		if actualEnd >= r.Lo {
			served = append(served, turnstate.Range{Lo: r.Lo, Hi: actualEnd})
		}

		if actualEnd < r.Hi {
			truncated = true
			break
		}

		firstSegment = false
	}

	return content.String(), served, truncated
}

func labelFor(start, end int) string {
	return "lines " + strconv.Itoa(start) + "-" + strconv.Itoa(end) + ":\n"
}

func rangesLineTotal(ranges []turnstate.Range) int {
	total := 0
	for _, r := range ranges {
		total += r.Hi - r.Lo + 1
	}
	return total
}

// truncateToBytes cuts s to at most maxBytes bytes, never splitting a UTF-8
// rune.
func truncateToBytes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	return turnstate.TakeBytesAtCharBoundary(s, maxBytes)
}
