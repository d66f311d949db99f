package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/vkornev/logbay/internal/model"
)

func waitFor(t *testing.T, c *Client) model.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-c.Messages():
		if !ok {
			t.Fatal("channel closed")
		}
		return msg
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return model.ServerMessage{}
}

func TestPublishToSubscriber(t *testing.T) {
	h := New()
	c := h.Register()
	h.Subscribe(c, "file-1")

	h.Publish("file-1", model.LogRecord{ID: "r1", Level: "ERROR", Message: "boom"})

	msg := waitFor(t, c)
	if msg.Type != model.MessageLogEntry {
		t.Errorf("expected logEntry, got %s", msg.Type)
	}
	if msg.Data == nil || msg.Data.ID != "r1" {
		t.Errorf("unexpected payload: %+v", msg.Data)
	}
}

func TestPublishOnlyToMatchingFile(t *testing.T) {
	h := New()
	a := h.Register()
	b := h.Register()
	h.Subscribe(a, "file-a")
	h.Subscribe(b, "file-b")

	h.Publish("file-a", model.LogRecord{ID: "r1"})

	if msg := waitFor(t, a); msg.Data.ID != "r1" {
		t.Errorf("subscriber a: unexpected record %+v", msg.Data)
	}
	select {
	case msg := <-b.Messages():
		t.Errorf("subscriber b should receive nothing, got %+v", msg)
	default:
	}
}

func TestResubscribeReplacesBinding(t *testing.T) {
	h := New()
	c := h.Register()
	h.Subscribe(c, "file-a")
	h.Subscribe(c, "file-b")

	h.Publish("file-a", model.LogRecord{ID: "old"})
	h.Publish("file-b", model.LogRecord{ID: "new"})

	msg := waitFor(t, c)
	if msg.Data.ID != "new" {
		t.Errorf("expected only the new binding's record, got %s", msg.Data.ID)
	}
}

func TestUnregisteredClientIsSkipped(t *testing.T) {
	h := New()
	gone := h.Register()
	live := h.Register()
	h.Subscribe(gone, "file-1")
	h.Subscribe(live, "file-1")
	h.Unregister(gone)

	// Publishing past a departed connection must not panic and must still
	// reach the live one.
	h.Publish("file-1", model.LogRecord{ID: "r1"})

	if msg := waitFor(t, live); msg.Data.ID != "r1" {
		t.Errorf("live subscriber missed the record: %+v", msg.Data)
	}
}

func TestUnregisterTwice(t *testing.T) {
	h := New()
	c := h.Register()
	h.Unregister(c)
	h.Unregister(c) // must not panic on double close

	if n := h.Subscribers(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := New()
	c := h.Register()
	h.Subscribe(c, "file-1")

	// Never drain: overflow the buffer and make sure Publish keeps returning.
	for i := 0; i < clientBuffer+10; i++ {
		h.Publish("file-1", model.LogRecord{ID: "r"})
	}

	if h.Dropped() != 10 {
		t.Errorf("expected 10 dropped pushes, got %d", h.Dropped())
	}
}

func TestConcurrentPublishersCountDrops(t *testing.T) {
	h := New()
	c := h.Register()
	h.Subscribe(c, "file-1")

	// Concurrent uploads of different files publish simultaneously; the
	// drop counter must stay exact with several publishers in flight.
	const publishers = 4
	const perPublisher = 500

	var wg sync.WaitGroup
	for g := 0; g < publishers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				h.Publish("file-1", model.LogRecord{ID: "r", Level: "INFO"})
			}
		}()
	}
	wg.Wait()

	// The subscriber never drains: everything past its buffer is dropped.
	want := int64(publishers*perPublisher - clientBuffer)
	if got := h.Dropped(); got != want {
		t.Errorf("expected %d dropped pushes, got %d", want, got)
	}
}

func TestSendAfterUnregister(t *testing.T) {
	h := New()
	c := h.Register()
	h.Unregister(c)

	// Must not panic by sending on a closed channel.
	h.Send(c, model.StatusMessage("connected"))
}

func TestSubscribeAfterUnregister(t *testing.T) {
	h := New()
	c := h.Register()
	h.Unregister(c)
	h.Subscribe(c, "file-1")

	h.Publish("file-1", model.LogRecord{ID: "r1"})
	if n := h.Subscribers(); n != 0 {
		t.Errorf("unregistered client resurrected: %d subscribers", n)
	}
}
