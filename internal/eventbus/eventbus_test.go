package eventbus

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Publish("hello")
	select {
	case e := <-sub:
		if e != "hello" {
			t.Fatalf("got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New()
	_ = b.Subscribe() // never drained
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, open := <-sub; open {
		t.Fatal("unsubscribed channel must be closed")
	}
	b.Publish("after") // must not panic
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Close()
	if _, open := <-sub; open {
		t.Fatal("subscriber channel must close with the bus")
	}
	if late := b.Subscribe(); late == nil {
		t.Fatal("subscribe after close must return a closed channel, not nil")
	}
}

func TestTypedBus(t *testing.T) {
	b := NewTyped[int]()
	sub := b.Subscribe()
	b.Publish(42)
	select {
	case v := <-sub:
		if v != 42 {
			t.Fatalf("got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	b.Unsubscribe(sub)
	if _, open := <-sub; open {
		t.Fatal("unsubscribed channel must be closed")
	}
}
