package execcore

import (
	"strings"
	"testing"
)

func TestDrainStreamCapturesUnderLimit(t *testing.T) {
	r := strings.NewReader("hello world")
	out := drainStream(r, streamCapperOptions{MaxBytes: 1024})
	if string(out.Text) != "hello world" {
		t.Errorf("Text = %q", out.Text)
	}
	if out.TruncatedAfterBytes {
		t.Error("expected not truncated")
	}
}

func TestDrainStreamTruncatesAtLimitButReadsToEOF(t *testing.T) {
	data := strings.Repeat("x", 10_000)
	r := strings.NewReader(data)
	out := drainStream(r, streamCapperOptions{MaxBytes: 100})
	if len(out.Text) != 100 {
		t.Errorf("len(Text) = %d, want 100", len(out.Text))
	}
	if !out.TruncatedAfterBytes {
		t.Error("expected truncated")
	}
}

func TestDrainStreamFeedsAggregator(t *testing.T) {
	agg := newAggregator(1024)
	r := strings.NewReader("stdout chunk")
	drainStream(r, streamCapperOptions{MaxBytes: 1024, Aggregator: agg})
	if string(agg.result().Text) != "stdout chunk" {
		t.Errorf("aggregator = %q", agg.result().Text)
	}
}

func TestAggregatorCapsAcrossMultipleAppends(t *testing.T) {
	agg := newAggregator(10)
	agg.append([]byte("12345"))
	agg.append([]byte("67890ABCDE"))
	res := agg.result()
	if string(res.Text) != "1234567890" {
		t.Errorf("Text = %q", res.Text)
	}
	if !res.TruncatedAfterBytes {
		t.Error("expected truncated once cap is reached")
	}
}

func TestDeltaBudgetStopsEmittingAfterLimit(t *testing.T) {
	b := newDeltaBudget(2)
	if !b.take() || !b.take() {
		t.Fatal("expected first two takes to succeed")
	}
	if b.take() {
		t.Fatal("expected budget to be exhausted")
	}
}

func TestSubscriberTrySendDropsWhenChannelFull(t *testing.T) {
	events := make(chan DeltaEvent, 1)
	sub := &Subscriber{CallID: "c1", Events: events}
	sub.trySend(DeltaEvent{CallID: "c1"})
	sub.trySend(DeltaEvent{CallID: "c1"}) // channel full, must not block
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1", len(events))
	}
}

func TestDrainStreamEmitsDeltasToSubscriber(t *testing.T) {
	events := make(chan DeltaEvent, 8)
	sub := &Subscriber{CallID: "c1", Events: events}
	budget := newDeltaBudget(10)
	r := strings.NewReader("hi")
	drainStream(r, streamCapperOptions{MaxBytes: 1024, Subscriber: sub, Budget: budget, Kind: StreamStdout})
	select {
	case ev := <-events:
		if string(ev.Chunk) != "hi" || ev.Stream != StreamStdout {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("expected at least one delta event")
	}
}
