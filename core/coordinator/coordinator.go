package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/contacts"
	"github.com/resqlink/resqlink/core/events"
	"github.com/resqlink/resqlink/core/fanout"
	"github.com/resqlink/resqlink/core/geoloc"
	"github.com/resqlink/resqlink/core/lifecycle"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/match"
	"github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/core/model"
	"github.com/resqlink/resqlink/core/push"
	"github.com/resqlink/resqlink/core/statussync"
	"github.com/resqlink/resqlink/internal/eventbus"
)

// State is the coordinator's own lifecycle.
type State int

const (
	StateIdle State = iota
	StateTriggering
	StateActive
	StateCancelled
	StateResolved
	StateErrored
)

// String returns a short name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggering:
		return "triggering"
	case StateActive:
		return "active"
	case StateCancelled:
		return "cancelled"
	case StateResolved:
		return "resolved"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Requester identifies the user on whose behalf the coordinator acts.
type Requester struct {
	ID    string
	Name  string
	Phone string
}

// TriggerOptions parameterize one trigger call. A zero Location means the
// geolocation provider is asked for the current fix. ContactsOnly skips the
// nearby-helper lookup and push pings.
type TriggerOptions struct {
	Location     model.Location
	Type         model.AlertType
	Message      string
	ContactsOnly bool
}

// Coordinator owns the life of one active alert end to end: creation, contact
// fan-out, nearby-helper pings, the authoritative status stream, the feedback
// cue and the periodic location refresh. The alert record itself is shared,
// externally-owned state: every inbound snapshot is re-validated through the
// lifecycle state machine instead of trusting the last local write.
type Coordinator struct {
	requester  Requester
	store      alertstore.Store
	contacts   contacts.Source
	dispatcher *fanout.Dispatcher
	matcher    *match.Matcher
	observer   *statussync.Observer
	pusher     push.Channel
	locations  geoloc.Provider
	feedback   Feedback
	logger     logger.Logger
	sink       metrics.Sink
	bus        eventbus.EventBus
	cfg        Config

	mu         sync.Mutex
	state      State
	alert      model.Alert
	candidates []match.Candidate
	responses  []model.HelperResponse
	settled    map[string]bool
	runCancel  context.CancelFunc
	unsubs     []func()
	torn       bool

	wg sync.WaitGroup
}

// New creates a coordinator for one requester. pusher, feedback, sink and bus
// may be nil.
func New(req Requester, store alertstore.Store, src contacts.Source, dispatcher *fanout.Dispatcher,
	matcher *match.Matcher, observer *statussync.Observer, pusher push.Channel,
	locations geoloc.Provider, feedback Feedback, log logger.Logger, sink metrics.Sink,
	bus eventbus.EventBus, cfg Config) (*Coordinator, error) {

	if req.ID == "" {
		return nil, fmt.Errorf("coordinator: requester ID is required")
	}
	if store == nil || src == nil || dispatcher == nil || matcher == nil || observer == nil || locations == nil {
		return nil, fmt.Errorf("coordinator: nil parameter provided to New")
	}
	if feedback == nil {
		feedback = NopFeedback{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	cfg.SetDefaults()
	return &Coordinator{
		requester:  req,
		store:      store,
		contacts:   src,
		dispatcher: dispatcher,
		matcher:    matcher,
		observer:   observer,
		pusher:     pusher,
		locations:  locations,
		feedback:   feedback,
		logger:     log,
		sink:       sink,
		bus:        bus,
		cfg:        cfg,
	}, nil
}

// Trigger creates the alert and launches all subordinate work. A requester
// may have at most one active alert; a second trigger while one is live
// fails with ErrAlreadyActive. A store failure on creation is fatal to this
// call and leaves no partial state behind.
func (c *Coordinator) Trigger(ctx context.Context, opts TriggerOptions) (model.Alert, error) {
	c.mu.Lock()
	if c.state == StateTriggering || c.state == StateActive {
		c.mu.Unlock()
		return model.Alert{}, ErrAlreadyActive
	}
	c.state = StateTriggering
	c.torn = false
	c.mu.Unlock()

	loc := opts.Location
	if loc.IsZero() {
		var err error
		loc, err = c.locations.CurrentLocation(ctx)
		if err != nil {
			c.fail()
			return model.Alert{}, fmt.Errorf("current location: %w", err)
		}
	}
	if !loc.Valid() {
		c.fail()
		return model.Alert{}, fmt.Errorf("%w: lat %.4f lon %.4f", ErrInvalidLocation, loc.Latitude, loc.Longitude)
	}

	a := model.Alert{
		ID:             uuid.NewString(),
		RequesterID:    c.requester.ID,
		RequesterName:  c.requester.Name,
		RequesterPhone: c.requester.Phone,
		Location:       loc,
		Type:           opts.Type,
		Message:        opts.Message,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}
	created, err := c.store.CreateAlert(ctx, a)
	if err != nil {
		c.fail()
		return model.Alert{}, fmt.Errorf("create alert: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.state = StateActive
	c.alert = created
	c.runCancel = cancel
	c.candidates = nil
	c.responses = nil
	c.settled = map[string]bool{}
	c.mu.Unlock()

	alertsTriggered.WithLabelValues(created.Type.String()).Inc()
	activeAlerts.Inc()
	c.publish(events.AlertEvent{Alert: created, Action: "created"})
	c.record(created, "created")
	c.logger.Infof("alert %s created for requester %s", created.ID, c.requester.ID)

	// Contact fan-out is fire-and-forget once started: coordinator teardown
	// must never cancel an in-flight send.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.notifyContacts(context.Background(), created)
	}()

	if !opts.ContactsOnly {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.pingNearbyHelpers(runCtx, created)
		}()
	}

	if err := c.watch(runCtx, created.ID); err != nil {
		// The alert exists remotely; stay active without a stream and let
		// the requester cancel or resolve explicitly.
		c.logger.Errorf("status subscription failed: %v", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runFeedback(runCtx)
	}()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pushLocation(runCtx, created.ID)
	}()

	return created, nil
}

// Cancel abandons the active alert. Requester-only by construction.
func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.finish(ctx, model.StatusCancelled, StateCancelled, "cancelled")
}

// Resolve closes the active alert as handled.
func (c *Coordinator) Resolve(ctx context.Context) error {
	return c.finish(ctx, model.StatusResolved, StateResolved, "resolved")
}

func (c *Coordinator) finish(ctx context.Context, target model.AlertStatus, final State, action string) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	cur := c.alert
	c.mu.Unlock()

	if err := lifecycle.Validate(cur.Status, lifecycle.ActorRequester, target); err != nil {
		return err
	}
	st := target
	if err := c.store.UpdateAlert(ctx, cur.ID, alertstore.Patch{Status: &st}); err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	c.mu.Lock()
	c.alert.Status = target
	done := c.alert
	c.mu.Unlock()

	c.publish(events.AlertEvent{Alert: done, Action: action})
	c.record(done, action)
	c.teardown(final)
	return nil
}

// fail marks a trigger attempt as errored without retaining partial state.
// Nothing was started and no gauge was incremented, so the coordinator is
// left already torn down: a later Close must not run teardown side effects
// for an alert that never existed.
func (c *Coordinator) fail() {
	c.mu.Lock()
	c.state = StateErrored
	c.alert = model.Alert{}
	c.torn = true
	c.mu.Unlock()
}

// notifyContacts runs the SMS fan-out against the requester's contact list.
// Partial failure is not blocking: the alert stays active even if zero
// contacts were notified, since helper matching is an independent channel.
func (c *Coordinator) notifyContacts(ctx context.Context, a model.Alert) {
	all, err := c.contacts.ListByOwner(ctx, c.requester.ID)
	if err != nil {
		c.logger.Errorf("list contacts: %v", err)
		return
	}
	recipients := make([]model.EmergencyContact, 0, len(all))
	for _, ct := range all {
		if ct.NotifyBySMS {
			recipients = append(recipients, ct)
		}
	}
	if len(recipients) == 0 {
		c.logger.Warnf("alert %s has no SMS-notifiable contacts", a.ID)
		return
	}
	res := c.dispatcher.Dispatch(ctx, a, recipients)
	if res.PartialFailure() {
		c.logger.Warnf("alert %s: %d of %d contacts failed", a.ID, len(res.Failed), res.Attempted)
	} else if res.Succeeded == 0 {
		c.logger.Errorf("alert %s: no contacts could be notified", a.ID)
	}
}

// pingNearbyHelpers looks up candidate helpers for local display and pings
// them over the push channel, tracking acknowledgments. Best-effort: actual
// helper acceptance arrives through the status stream, not from here.
func (c *Coordinator) pingNearbyHelpers(ctx context.Context, a model.Alert) {
	cands, err := c.matcher.FindNearby(ctx, a.Location, c.cfg.HelperRadiusKm)
	if err != nil {
		c.logger.Errorf("helper lookup: %v", err)
		return
	}
	c.mu.Lock()
	c.candidates = cands
	c.mu.Unlock()
	if c.pusher == nil || len(cands) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, cand := range cands {
		wg.Add(1)
		go func(h model.HelperProfile) {
			defer wg.Done()
			start := time.Now()
			ack, err := c.pingAndWait(h.ID, a)
			helpersPinged.WithLabelValues(strconv.FormatBool(ack && err == nil)).Inc()
			c.publish(events.PingEvent{
				AlertID:      a.ID,
				HelperID:     h.ID,
				Acknowledged: ack && err == nil,
				Err:          err,
				Latency:      time.Since(start),
			})
			if err != nil {
				c.logger.Debugf("ping %s failed: %v", h.ID, err)
			}
		}(cand.Helper)
	}
	wg.Wait()

	select {
	case <-ctx.Done():
	default:
		c.logger.Infof("pinged %d candidate helpers for alert %s", len(cands), a.ID)
	}
}

// pingAndWait sends the push ping and waits for the device acknowledgment.
func (c *Coordinator) pingAndWait(helperID string, a model.Alert) (bool, error) {
	msgID, err := c.pusher.Ping(helperID, a)
	if err != nil {
		return false, err
	}
	return c.pusher.WaitForAck(msgID, c.cfg.AckTimeout())
}

// watch subscribes to the authoritative alert and response streams.
func (c *Coordinator) watch(ctx context.Context, alertID string) error {
	updates, stopAlert, err := c.observer.Subscribe(ctx, alertID)
	if err != nil {
		return err
	}
	resUpdates, stopRes, err := c.observer.SubscribeResponses(ctx, alertID)
	if err != nil {
		stopAlert()
		return err
	}
	c.mu.Lock()
	c.unsubs = append(c.unsubs, stopAlert, stopRes)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for updates != nil || resUpdates != nil {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if u.Err != nil {
					// Terminal stream error. No automatic resubscribe:
					// the caller decides whether to reconnect.
					c.logger.Errorf("alert stream for %s ended: %v", alertID, u.Err)
					updates = nil
					continue
				}
				c.applySnapshot(u.Alert)
			case ru, ok := <-resUpdates:
				if !ok {
					resUpdates = nil
					continue
				}
				if ru.Err != nil {
					c.logger.Errorf("response stream for %s ended: %v", alertID, ru.Err)
					resUpdates = nil
					continue
				}
				c.applyResponses(alertID, ru.Responses)
			}
		}
	}()
	return nil
}

// applySnapshot validates an authoritative snapshot against the lifecycle
// state machine. An illegal remote transition is logged and ignored; the
// last valid local state is kept.
func (c *Coordinator) applySnapshot(a model.Alert) {
	c.mu.Lock()
	cur := c.alert
	if err := lifecycle.Validate(cur.Status, lifecycle.ActorAuthority, a.Status); err != nil {
		c.mu.Unlock()
		snapshotsRejected.Inc()
		c.logger.Warnf("ignoring snapshot for alert %s: %v", a.ID, err)
		return
	}
	c.alert = a
	c.mu.Unlock()

	c.publish(events.SnapshotEvent{Alert: a})
	if a.Status.Terminal() {
		c.logger.Infof("alert %s reached terminal status %s", a.ID, a.Status)
		c.teardown(stateFor(a.Status))
	}
}

// applyResponses stores the latest authoritative response list and feeds the
// helper fleet record once a response settles. Each response is counted once,
// completed or cancelled, so the helper's success rate reflects live outcomes.
func (c *Coordinator) applyResponses(alertID string, rs []model.HelperResponse) {
	c.mu.Lock()
	c.responses = rs
	var done []model.HelperResponse
	for _, r := range rs {
		if r.Status.Terminal() && !c.settled[r.ID] {
			c.settled[r.ID] = true
			done = append(done, r)
		}
	}
	c.mu.Unlock()

	if fleet := c.matcher.Fleet(); fleet != nil {
		for _, r := range done {
			fleet.RecordResponse(r.HelperID, r.Status == model.ResponseCompleted)
		}
	}
	c.publish(events.ResponseEvent{AlertID: alertID, Responses: rs})
}

// runFeedback starts the audible/haptic cue and silences it after the
// configured window, or earlier on teardown.
func (c *Coordinator) runFeedback(ctx context.Context) {
	c.feedback.Start()
	defer c.feedback.Stop()
	timer := time.NewTimer(c.cfg.FeedbackWindow())
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// pushLocation refreshes the alert location for the life of the active alert.
func (c *Coordinator) pushLocation(ctx context.Context, alertID string) {
	stream, stop, err := c.locations.LocationUpdates(ctx, c.cfg.LocationPushInterval())
	if err != nil {
		c.logger.Errorf("location updates: %v", err)
		return
	}
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case loc, ok := <-stream:
			if !ok {
				return
			}
			if !loc.Valid() {
				continue
			}
			l := loc
			if err := c.store.UpdateAlert(ctx, alertID, alertstore.Patch{Location: &l}); err != nil {
				c.logger.Warnf("location refresh failed: %v", err)
				continue
			}
			locationPushes.Inc()
		}
	}
}

// teardown stops all timers, releases subscriptions and the feedback cue,
// and records the final state. It is idempotent: racing a local action
// against a remote terminal push is safe.
func (c *Coordinator) teardown(final State) {
	c.mu.Lock()
	if c.torn || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.torn = true
	cancel := c.runCancel
	unsubs := c.unsubs
	c.runCancel = nil
	c.unsubs = nil
	a := c.alert
	c.state = final
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, stop := range unsubs {
		stop()
	}
	c.feedback.Stop()
	activeAlerts.Dec()
	c.publish(events.AlertEvent{Alert: a, Action: "teardown"})
	c.record(a, "teardown")
	c.logger.Infof("coordinator for alert %s torn down (%s)", a.ID, final)
}

// Close releases all resources held by the coordinator and waits for
// outstanding work, including in-flight notification sends, to complete.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	c.teardown(st)
	c.wg.Wait()
	return nil
}

// State returns the coordinator lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Alert returns the last valid alert snapshot.
func (c *Coordinator) Alert() model.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alert
}

// Candidates returns the nearby helpers found for local display.
func (c *Coordinator) Candidates() []match.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]match.Candidate(nil), c.candidates...)
}

// Responses returns the latest authoritative helper responses.
func (c *Coordinator) Responses() []model.HelperResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.HelperResponse(nil), c.responses...)
}

func (c *Coordinator) publish(e eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func (c *Coordinator) record(a model.Alert, event string) {
	if err := c.sink.RecordAlertEvent(metrics.AlertRecord{Alert: a, Event: event, Time: time.Now()}); err != nil {
		c.logger.Errorf("metrics error: %v", err)
	}
}

// stateFor maps a terminal alert status to the coordinator state.
func stateFor(s model.AlertStatus) State {
	switch s {
	case model.StatusResolved:
		return StateResolved
	default:
		return StateCancelled
	}
}
