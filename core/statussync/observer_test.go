package statussync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/model"
)

// fakeStore drives subscriptions by hand through exposed channels.
type fakeStore struct {
	alerts    chan model.Alert
	responses chan []model.HelperResponse
	stopped   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alerts:    make(chan model.Alert, 16),
		responses: make(chan []model.HelperResponse, 16),
	}
}

func (f *fakeStore) CreateAlert(context.Context, model.Alert) (model.Alert, error) {
	return model.Alert{}, nil
}
func (f *fakeStore) UpdateAlert(context.Context, string, alertstore.Patch) error { return nil }
func (f *fakeStore) GetAlert(context.Context, string) (model.Alert, error) {
	return model.Alert{}, nil
}
func (f *fakeStore) SubscribeAlert(context.Context, string) (<-chan model.Alert, func(), error) {
	return f.alerts, func() { f.stopped = true }, nil
}
func (f *fakeStore) SubscribeResponses(context.Context, string) (<-chan []model.HelperResponse, func(), error) {
	return f.responses, func() { f.stopped = true }, nil
}
func (f *fakeStore) CreateResponse(context.Context, model.HelperResponse) (model.HelperResponse, error) {
	return model.HelperResponse{}, nil
}
func (f *fakeStore) UpdateResponse(context.Context, string, model.ResponseStatus) error { return nil }

func recvUpdate(t *testing.T, ch <-chan AlertUpdate) AlertUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return AlertUpdate{}
	}
}

func TestSubscribe_DeliversSnapshots(t *testing.T) {
	store := newFakeStore()
	o := NewObserver(store, nil)
	ch, cancel, err := o.Subscribe(context.Background(), "a1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	t0 := time.Now()
	store.alerts <- model.Alert{ID: "a1", Status: model.StatusActive, UpdatedAt: t0}
	store.alerts <- model.Alert{ID: "a1", Status: model.StatusHelpOnWay, UpdatedAt: t0.Add(time.Second)}

	if u := recvUpdate(t, ch); u.Alert.Status != model.StatusActive {
		t.Fatalf("first update: %+v", u)
	}
	if u := recvUpdate(t, ch); u.Alert.Status != model.StatusHelpOnWay {
		t.Fatalf("second update: %+v", u)
	}
}

func TestSubscribe_SuppressesDuplicates(t *testing.T) {
	store := newFakeStore()
	o := NewObserver(store, nil)
	ch, cancel, err := o.Subscribe(context.Background(), "a1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	t0 := time.Now()
	dup := model.Alert{ID: "a1", Status: model.StatusActive, UpdatedAt: t0}
	store.alerts <- dup
	store.alerts <- dup
	store.alerts <- dup
	store.alerts <- model.Alert{ID: "a1", Status: model.StatusResponded, UpdatedAt: t0.Add(time.Second)}

	if u := recvUpdate(t, ch); u.Alert.Status != model.StatusActive {
		t.Fatalf("first update: %+v", u)
	}
	if u := recvUpdate(t, ch); u.Alert.Status != model.StatusResponded {
		t.Fatalf("duplicates were not suppressed: %+v", u)
	}
}

func TestSubscribe_TerminalErrorOnSourceClose(t *testing.T) {
	store := newFakeStore()
	o := NewObserver(store, nil)
	ch, cancel, err := o.Subscribe(context.Background(), "a1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	close(store.alerts)
	u := recvUpdate(t, ch)
	if !errors.Is(u.Err, ErrStreamClosed) {
		t.Fatalf("want ErrStreamClosed, got %+v", u)
	}
	if _, open := <-ch; open {
		t.Fatal("channel must close after the terminal event")
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	store := newFakeStore()
	o := NewObserver(store, nil)
	ch, cancel, err := o.Subscribe(context.Background(), "a1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	cancel()
	cancel() // idempotent
	if !store.stopped {
		t.Fatal("cancel must release the store listener")
	}

	store.alerts <- model.Alert{ID: "a1", Status: model.StatusActive, UpdatedAt: time.Now()}
	select {
	case u, open := <-ch:
		if open && u.Err == nil {
			t.Fatalf("no snapshot may arrive after cancel: %+v", u)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeResponses_DedupByIDAndStatus(t *testing.T) {
	store := newFakeStore()
	o := NewObserver(store, nil)
	ch, cancel, err := o.SubscribeResponses(context.Background(), "a1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	one := []model.HelperResponse{{ID: "r1", Status: model.ResponseResponding}}
	store.responses <- one
	store.responses <- one
	store.responses <- []model.HelperResponse{{ID: "r1", Status: model.ResponseArrived}}

	select {
	case u := <-ch:
		if len(u.Responses) != 1 || u.Responses[0].Status != model.ResponseResponding {
			t.Fatalf("first update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	select {
	case u := <-ch:
		if len(u.Responses) != 1 || u.Responses[0].Status != model.ResponseArrived {
			t.Fatalf("duplicate list was not suppressed: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
