package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/resqlink/resqlink/core/events"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/core/model"
	"github.com/resqlink/resqlink/core/sms"
	"github.com/resqlink/resqlink/internal/eventbus"
)

// SendFailure identifies one recipient that could not be notified.
type SendFailure struct {
	Contact model.EmergencyContact
	Reason  error
}

// Result aggregates the outcome of one fan-out. It is only observable once
// every recipient reached a terminal outcome.
type Result struct {
	Attempted int
	Succeeded int
	Failed    []SendFailure
}

// PartialFailure reports whether at least one, but not all, recipients failed.
func (r Result) PartialFailure() bool {
	return len(r.Failed) > 0 && r.Succeeded > 0
}

// Dispatcher sends templated alert messages to emergency contacts
// concurrently. A transport failure for one recipient never aborts dispatch
// to the remaining recipients, and no retry happens at this layer.
type Dispatcher struct {
	client   sms.Client
	workers  int
	segLimit int
	logger   logger.Logger
	sink     metrics.Sink
	bus      eventbus.EventBus
}

// NewDispatcher creates a Dispatcher. workers bounds the per-recipient send
// parallelism; values below one fall back to four.
func NewDispatcher(client sms.Client, workers int, log logger.Logger, sink metrics.Sink, bus eventbus.EventBus) (*Dispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("fanout: nil sms client provided to NewDispatcher")
	}
	if workers < 1 {
		workers = 4
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Dispatcher{
		client:   client,
		workers:  workers,
		segLimit: sms.SegmentLimit,
		logger:   log,
		sink:     sink,
		bus:      bus,
	}, nil
}

// Dispatch notifies all recipients and blocks until each of them has a
// terminal outcome. No ordering is guaranteed across recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.Alert, recipients []model.EmergencyContact) Result {
	text := ComposeMessage(alert)
	segments := SplitSegments(text, d.segLimit)
	d.logger.Infof("dispatching alert %s to %d contacts (%d segments)", alert.ID, len(recipients), len(segments))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		res     = Result{Attempted: len(recipients)}
		records = make([]metrics.SendRecord, 0, len(recipients))
		sem     = make(chan struct{}, d.workers)
	)
	for _, c := range recipients {
		wg.Add(1)
		go func(c model.EmergencyContact) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			err := d.send(ctx, c, segments)
			dur := time.Since(start)

			mu.Lock()
			if err != nil {
				res.Failed = append(res.Failed, SendFailure{Contact: c, Reason: err})
				sendFailure.Inc()
				d.logger.Warnf("notify %s failed: %v", c.Phone, err)
			} else {
				res.Succeeded++
				sendSuccess.Inc()
			}
			contactsNotified.WithLabelValues(alert.Type.String()).Inc()
			sendLatency.WithLabelValues(alert.Type.String()).Observe(dur.Seconds())
			records = append(records, metrics.SendRecord{
				AlertID:   alert.ID,
				AlertType: alert.Type,
				Phone:     c.Phone,
				Delivered: err == nil,
				Segments:  len(segments),
				Latency:   dur,
				Time:      time.Now(),
			})
			mu.Unlock()

			if d.bus != nil {
				d.bus.Publish(events.SendOutcomeEvent{
					AlertID: alert.ID,
					Contact: c,
					Err:     err,
					Latency: dur,
				})
			}
		}(c)
	}
	wg.Wait()

	if total := len(recipients); total > 0 {
		deliveryRate.WithLabelValues(alert.Type.String()).Set(float64(res.Succeeded) / float64(total))
	}
	if err := d.sink.RecordSendOutcomes(records); err != nil {
		d.logger.Errorf("metrics error: %v", err)
	}
	return res
}

// send delivers the composed message to one contact, choosing the multipart
// primitive when the text exceeds a single segment.
func (d *Dispatcher) send(ctx context.Context, c model.EmergencyContact, segments []string) error {
	if c.Phone == "" {
		return sms.ErrNoRecipient
	}
	if len(segments) == 1 {
		return d.client.Send(ctx, c.Phone, segments[0])
	}
	return d.client.SendMultipart(ctx, c.Phone, segments)
}
