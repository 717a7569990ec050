package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/framepipe"
)

func testFrame(t *testing.T, seq uint64) *framepipe.Frame {
	t.Helper()
	f, err := framepipe.NewFrame(4, 4, 12, framepipe.EncodingRGB8)
	if err != nil {
		t.Fatal(err)
	}
	f.Header.Seq = seq
	return f
}

func TestSubscribeAndPublish(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	want := testFrame(t, 1)
	b.Publish("camera", want)

	got, err := recv.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if got != want {
		t.Error("Next() returned a different frame")
	}
}

func TestLatestWins(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}

	for seq := uint64(0); seq < 5; seq++ {
		b.Publish("camera", testFrame(t, seq))
	}

	got, err := recv.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Header.Seq != 4 {
		t.Errorf("Next() seq = %d, want the latest (4)", got.Header.Seq)
	}

	if _, ok := recv.TryNext(); ok {
		t.Error("TryNext() found a second pending frame; queue depth is 1")
	}

	stats, err := b.Stats("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sent != 5 {
		t.Errorf("Sent = %d, want 5", stats.Sent)
	}
	if stats.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4", stats.Dropped)
	}
}

func TestDuplicateSubscriber(t *testing.T) {
	b := New()
	defer b.Close()

	if _, err := b.Subscribe("camera", "sink"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("camera", "sink"); !errors.Is(err, ErrSubscriberExists) {
		t.Errorf("duplicate Subscribe() error = %v, want ErrSubscriberExists", err)
	}
	// Same id on a different topic is fine.
	if _, err := b.Subscribe("depth", "sink"); err != nil {
		t.Errorf("Subscribe() on second topic error: %v", err)
	}
}

func TestSubscribeChanDropNew(t *testing.T) {
	b := New()
	defer b.Close()

	ch := make(chan *framepipe.Frame, 1)
	if err := b.SubscribeChan("camera", "sink", ch); err != nil {
		t.Fatalf("SubscribeChan() error: %v", err)
	}

	first := testFrame(t, 0)
	b.Publish("camera", first)
	b.Publish("camera", testFrame(t, 1)) // channel full, dropped

	select {
	case got := <-ch:
		if got != first {
			t.Error("channel delivered the wrong frame")
		}
	default:
		t.Fatal("channel empty after publish")
	}

	stats, err := b.Stats("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sent != 1 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want sent 1 dropped 1", stats)
	}
}

func TestSubscribeChanNil(t *testing.T) {
	b := New()
	defer b.Close()
	if err := b.SubscribeChan("camera", "sink", nil); !errors.Is(err, ErrNilChannel) {
		t.Errorf("SubscribeChan(nil) error = %v, want ErrNilChannel", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Unsubscribe("camera", "sink"); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
	if err := b.Unsubscribe("camera", "sink"); !errors.Is(err, ErrSubscriberNotFound) {
		t.Errorf("second Unsubscribe() error = %v, want ErrSubscriberNotFound", err)
	}

	if _, err := recv.Next(context.Background()); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("Next() after unsubscribe = %v, want ErrReceiverClosed", err)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	defer b.Close()

	b.Publish("void", testFrame(t, 0))
	if got := b.Published(); got != 1 {
		t.Errorf("Published() = %d, want 1", got)
	}
}

func TestPublisherAdapter(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("out", "sink")
	if err != nil {
		t.Fatal(err)
	}

	var pub framepipe.Publisher = b.Publisher("out")
	want := testFrame(t, 9)
	pub.Publish(want)

	got, ok := recv.TryNext()
	if !ok || got != want {
		t.Error("Publisher adapter did not deliver the frame")
	}
}

func TestCloseWakesReceivers(t *testing.T) {
	b := New()
	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := recv.Next(context.Background())
		done <- err
	}()

	// Give the consumer a moment to block.
	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrReceiverClosed) {
			t.Errorf("Next() after Close() = %v, want ErrReceiverClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next() still blocked after Close()")
	}

	if _, err := b.Subscribe("camera", "late"); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Subscribe() after Close() = %v, want ErrBusClosed", err)
	}
}

func TestCloseDrainsFinalFrame(t *testing.T) {
	b := New()
	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}

	want := testFrame(t, 3)
	b.Publish("camera", want)
	b.Close()

	got, err := recv.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v, want the final frame", err)
	}
	if got != want {
		t.Error("final frame lost on close")
	}
	if _, err := recv.Next(context.Background()); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("Next() after drain = %v, want ErrReceiverClosed", err)
	}
}

func TestNextContextCancel(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := recv.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() = %v, want context.DeadlineExceeded", err)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New()
	defer b.Close()

	recv, err := b.Subscribe("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}

	const publishers, frames = 4, 50
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < frames; i++ {
				f, err := framepipe.NewFrame(4, 4, 12, framepipe.EncodingRGB8)
				if err != nil {
					t.Error(err)
					return
				}
				f.Header.Seq = uint64(i)
				b.Publish("camera", f)
			}
		}()
	}
	wg.Wait()

	if got := b.Published(); got != publishers*frames {
		t.Errorf("Published() = %d, want %d", got, publishers*frames)
	}

	stats, err := b.Stats("camera", "sink")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sent != publishers*frames {
		t.Errorf("Sent = %d, want %d", stats.Sent, publishers*frames)
	}
	if _, ok := recv.TryNext(); !ok {
		t.Error("no frame pending after concurrent publishes")
	}
}

func TestStatsUnknown(t *testing.T) {
	b := New()
	defer b.Close()
	if _, err := b.Stats("void", "sink"); !errors.Is(err, ErrSubscriberNotFound) {
		t.Errorf("Stats() error = %v, want ErrSubscriberNotFound", err)
	}
}

func TestDropPolicyString(t *testing.T) {
	if DropOld.String() != "drop-old" || DropNew.String() != "drop-new" {
		t.Error("DropPolicy.String() mismatch")
	}
}
