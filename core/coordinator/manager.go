package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/contacts"
	"github.com/resqlink/resqlink/core/fanout"
	"github.com/resqlink/resqlink/core/geoloc"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/match"
	"github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/core/model"
	"github.com/resqlink/resqlink/core/push"
	"github.com/resqlink/resqlink/core/statussync"
	"github.com/resqlink/resqlink/internal/eventbus"
)

// Manager hands out at most one coordinator per requester and owns the
// shared collaborators they run on.
type Manager struct {
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

	mu    sync.Mutex
	procs map[string]*Coordinator
}

// NewManager creates a Manager. pusher, feedback, sink and bus may be nil.
func NewManager(store alertstore.Store, src contacts.Source, dispatcher *fanout.Dispatcher,
	matcher *match.Matcher, observer *statussync.Observer, pusher push.Channel,
	locations geoloc.Provider, feedback Feedback, log logger.Logger, sink metrics.Sink,
	bus eventbus.EventBus, cfg Config) (*Manager, error) {

	if store == nil || src == nil || dispatcher == nil || matcher == nil || observer == nil || locations == nil {
		return nil, fmt.Errorf("coordinator: nil parameter provided to NewManager")
	}
	cfg.SetDefaults()
	return &Manager{
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
		procs:      make(map[string]*Coordinator),
	}, nil
}

// Coordinator returns the requester's coordinator, creating it on first use.
func (m *Manager) Coordinator(req Requester) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.procs[req.ID]; ok {
		return c, nil
	}
	c, err := New(req, m.store, m.contacts, m.dispatcher, m.matcher, m.observer,
		m.pusher, m.locations, m.feedback, m.logger, m.sink, m.bus, m.cfg)
	if err != nil {
		return nil, err
	}
	m.procs[req.ID] = c
	return c, nil
}

// Trigger runs Trigger on the requester's coordinator.
func (m *Manager) Trigger(ctx context.Context, req Requester, opts TriggerOptions) (*Coordinator, model.Alert, error) {
	c, err := m.Coordinator(req)
	if err != nil {
		return nil, model.Alert{}, err
	}
	a, err := c.Trigger(ctx, opts)
	if err != nil {
		return c, model.Alert{}, err
	}
	return c, a, nil
}

// Close tears down all coordinators and the event bus.
func (m *Manager) Close() error {
	m.mu.Lock()
	procs := make([]*Coordinator, 0, len(m.procs))
	for _, c := range m.procs {
		procs = append(procs, c)
	}
	m.procs = map[string]*Coordinator{}
	m.mu.Unlock()

	for _, c := range procs {
		if err := c.Close(); err != nil {
			return err
		}
	}
	if m.bus != nil {
		m.bus.Close()
	}
	return nil
}
