package readcode

import (
	"reflect"
	"testing"

	"github.com/coderunner/agentcore/internal/turnstate"
)

func rs(pairs ...[2]int) []turnstate.Range {
	out := make([]turnstate.Range, len(pairs))
	for i, p := range pairs {
		out[i] = turnstate.Range{Lo: p[0], Hi: p[1]}
	}
	return out
}

func TestMergesOverlappingRanges(t *testing.T) {
	got := mergeRanges(rs([2]int{5, 10}, [2]int{1, 3}, [2]int{3, 7}, [2]int{20, 25}))
	want := rs([2]int{1, 10}, [2]int{20, 25})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeRanges = %v, want %v", got, want)
	}
}

func TestEnforcesLineCap(t *testing.T) {
	limited, truncated := enforceLineCap(rs([2]int{1, 50}, [2]int{60, 120}), 80)
	want := rs([2]int{1, 50}, [2]int{60, 89})
	if !reflect.DeepEqual(limited, want) {
		t.Errorf("limited = %v, want %v", limited, want)
	}
	if !truncated {
		t.Error("expected truncated = true")
	}
}

func TestBuildContentHonorsByteBudget(t *testing.T) {
	lines := []string{"line1\n", "line2\n", "line3\n"}
	content, served, truncated := buildContent(rs([2]int{1, 3}), lines, 24)
	if content[:10] != "lines 1-3:" {
		t.Errorf("content = %q, want prefix %q", content, "lines 1-3:")
	}
	want := rs([2]int{1, 2})
	if !reflect.DeepEqual(served, want) {
		t.Errorf("served = %v, want %v", served, want)
	}
	if !truncated {
		t.Error("expected truncated = true")
	}
}

func TestNormalizeRangesSwapsReversedPairs(t *testing.T) {
	ranges := rs([2]int{10, 5})
	if err := normalizeRanges(ranges); err != nil {
		t.Fatalf("normalizeRanges: %v", err)
	}
	if ranges[0] != (turnstate.Range{Lo: 5, Hi: 10}) {
		t.Errorf("ranges[0] = %v, want {5 10}", ranges[0])
	}
}

func TestNormalizeRangesRejectsZeroEndpoint(t *testing.T) {
	if err := normalizeRanges(rs([2]int{0, 5})); err == nil {
		t.Fatal("expected error for zero start")
	}
}

func TestNormalizeRangesSortsByStart(t *testing.T) {
	ranges := rs([2]int{10, 12}, [2]int{1, 2})
	if err := normalizeRanges(ranges); err != nil {
		t.Fatalf("normalizeRanges: %v", err)
	}
	if ranges[0].Lo != 1 || ranges[1].Lo != 10 {
		t.Errorf("ranges = %v, want sorted by start", ranges)
	}
}

func TestApplyContextExpandsAndClampsToLineCount(t *testing.T) {
	got := applyContext(rs([2]int{5, 5}), 2, 6)
	want := rs([2]int{3, 6})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applyContext = %v, want %v", got, want)
	}
}

func TestApplyContextMergesAdjacentExpansions(t *testing.T) {
	got := applyContext(rs([2]int{1, 2}, [2]int{4, 5}), 1, 10)
	want := rs([2]int{1, 6})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applyContext = %v, want %v", got, want)
	}
}

func TestEnforceLineCapStopsAtExactBoundary(t *testing.T) {
	limited, truncated := enforceLineCap(rs([2]int{1, 10}), 10)
	if truncated {
		t.Error("expected not truncated when cap exactly covers the range")
	}
	if !reflect.DeepEqual(limited, rs([2]int{1, 10})) {
		t.Errorf("limited = %v", limited)
	}
}

func TestTruncateToBytesRespectsUTF8Boundary(t *testing.T) {
	s := "héllo" // 'é' is 2 bytes
	got := truncateToBytes(s, 2)
	if got != "h" {
		t.Errorf("truncateToBytes = %q, want %q", got, "h")
	}
}
