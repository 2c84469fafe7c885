package statussync

import (
	"context"
	"errors"
	"sync"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/model"
)

// ErrStreamClosed is delivered as the terminal event when the underlying
// subscription drops. The observer never resubscribes on its own; that is
// the caller's decision.
var ErrStreamClosed = errors.New("statussync: status stream closed")

// AlertUpdate is one event on an alert subscription. Err is non-nil exactly
// once, as the terminal event before the channel closes.
type AlertUpdate struct {
	Alert model.Alert
	Err   error
}

// ResponseUpdate is one event on a response-list subscription.
type ResponseUpdate struct {
	Responses []model.HelperResponse
	Err       error
}

// Observer reconciles the authoritative remote alert records into local
// streams. It deduplicates consecutive identical snapshots so consumers see
// no redundant churn.
type Observer struct {
	store  alertstore.Store
	logger logger.Logger
}

// NewObserver creates an Observer over the given store.
func NewObserver(store alertstore.Store, log logger.Logger) *Observer {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Observer{store: store, logger: log}
}

// Subscribe opens a deduplicated snapshot stream for one alert. The full
// current snapshot is delivered first. The cancel func releases the
// underlying listener immediately; no buffered events are delivered after it
// returns.
func (o *Observer) Subscribe(ctx context.Context, alertID string) (<-chan AlertUpdate, func(), error) {
	src, stop, err := o.store.SubscribeAlert(ctx, alertID)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan AlertUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		var last model.Alert
		var seen bool
		for {
			select {
			case <-done:
				return
			case a, ok := <-src:
				if !ok {
					select {
					case out <- AlertUpdate{Err: ErrStreamClosed}:
					case <-done:
					}
					return
				}
				if seen && a.Status == last.Status && a.UpdatedAt.Equal(last.UpdatedAt) {
					o.logger.Debugf("suppressing duplicate snapshot for alert %s", alertID)
					continue
				}
				last, seen = a, true
				select {
				case out <- AlertUpdate{Alert: a}:
				case <-done:
					return
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			close(done)
		})
	}
	return out, cancel, nil
}

// SubscribeResponses opens a stream of the alert's full helper response list.
// Snapshots whose content is unchanged are suppressed.
func (o *Observer) SubscribeResponses(ctx context.Context, alertID string) (<-chan ResponseUpdate, func(), error) {
	src, stop, err := o.store.SubscribeResponses(ctx, alertID)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan ResponseUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		var last []model.HelperResponse
		var seen bool
		for {
			select {
			case <-done:
				return
			case rs, ok := <-src:
				if !ok {
					select {
					case out <- ResponseUpdate{Err: ErrStreamClosed}:
					case <-done:
					}
					return
				}
				if seen && equalResponses(last, rs) {
					continue
				}
				last, seen = rs, true
				select {
				case out <- ResponseUpdate{Responses: rs}:
				case <-done:
					return
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			close(done)
		})
	}
	return out, cancel, nil
}

// equalResponses compares two snapshots by ID and status.
func equalResponses(a, b []model.HelperResponse) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}
