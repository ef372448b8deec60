package turnstate

import (
	"reflect"
	"testing"
)

func TestIntervalSetRecordsAndSubtracts(t *testing.T) {
	var set IntervalSet

	got := set.Subtract(5, 10)
	want := []Range{{5, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Subtract(5,10) = %v, want %v", got, want)
	}

	set.Insert(5, 10)
	if got := set.Subtract(5, 10); got != nil {
		t.Fatalf("Subtract(5,10) after insert = %v, want nil", got)
	}

	got = set.Subtract(8, 15)
	want = []Range{{11, 15}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Subtract(8,15) = %v, want %v", got, want)
	}
}

func TestIntervalSetInvalidInputIsNoOp(t *testing.T) {
	var set IntervalSet
	if got := set.Subtract(0, 10); got != nil {
		t.Fatalf("Subtract(0,10) = %v, want nil", got)
	}
	if got := set.Subtract(10, 0); got != nil {
		t.Fatalf("Subtract(10,0) = %v, want nil", got)
	}
	if got := set.Subtract(10, 5); got != nil {
		t.Fatalf("Subtract(10,5) = %v, want nil", got)
	}

	set.Insert(0, 10)
	set.Insert(10, 0)
	set.Insert(10, 5)
	if got := set.Subtract(1, 20); !reflect.DeepEqual(got, []Range{{1, 20}}) {
		t.Fatalf("invalid inserts mutated the set: %v", got)
	}
}

func TestIntervalSetInsertIsIdempotent(t *testing.T) {
	var a, b IntervalSet
	a.Insert(5, 10)
	a.Insert(5, 10)
	b.Insert(5, 10)
	if !reflect.DeepEqual(a.intervals, b.intervals) {
		t.Fatalf("repeated insert changed state: %v vs %v", a.intervals, b.intervals)
	}
}

func TestIntervalSetMergesAdjacentAndOverlapping(t *testing.T) {
	var set IntervalSet
	set.Insert(1, 3)
	set.Insert(4, 6) // adjacent (gap of zero) -> must merge
	want := []Range{{1, 6}}
	if !reflect.DeepEqual(set.intervals, want) {
		t.Fatalf("adjacent ranges did not merge: %v", set.intervals)
	}

	set.Insert(20, 25)
	set.Insert(10, 22) // overlaps the new [20,25] entry
	want = []Range{{1, 6}, {10, 25}}
	if !reflect.DeepEqual(set.intervals, want) {
		t.Fatalf("overlapping ranges did not merge: %v", set.intervals)
	}
}

func TestIntervalSetNoMergeWithGapOfTwo(t *testing.T) {
	var set IntervalSet
	set.Insert(1, 5)
	set.Insert(7, 10) // gap of one (6) -> still not adjacent
	want := []Range{{1, 5}, {7, 10}}
	if !reflect.DeepEqual(set.intervals, want) {
		t.Fatalf("non-adjacent ranges incorrectly merged: %v", set.intervals)
	}
}

func TestIntervalSetMonotonicityUnderRandomInserts(t *testing.T) {
	var set IntervalSet
	inserts := [][2]int{{10, 12}, {1, 2}, {20, 22}, {5, 9}, {13, 19}, {3, 4}}
	for _, p := range inserts {
		set.Insert(p[0], p[1])
	}

	for i := 1; i < len(set.intervals); i++ {
		if set.intervals[i-1].Lo >= set.intervals[i].Lo {
			t.Fatalf("intervals not strictly ordered by Lo: %v", set.intervals)
		}
		if set.intervals[i].Lo <= set.intervals[i-1].Hi+1 {
			t.Fatalf("intervals not gap-separated: %v", set.intervals)
		}
	}
}
