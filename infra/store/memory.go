package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/lifecycle"
	"github.com/resqlink/resqlink/core/model"
	"github.com/resqlink/resqlink/internal/eventbus"
)

// MemoryStore is an in-process alertstore.Store with push subscriptions. It
// plays the remote authority in tests and single-node deployments: creation
// acknowledgment activates the alert, helper responses drive the alert
// status, and every change fans out to subscribers as a full snapshot.
type MemoryStore struct {
	mu          sync.RWMutex
	alerts      map[string]model.Alert
	responses   map[string]model.HelperResponse
	byAlert     map[string][]string
	activeByReq map[string]string
	guard       *lifecycle.ResponseGuard
	alertBus    map[string]*eventbus.TypedBus[model.Alert]
	respBus     map[string]*eventbus.TypedBus[[]model.HelperResponse]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:      make(map[string]model.Alert),
		responses:   make(map[string]model.HelperResponse),
		byAlert:     make(map[string][]string),
		activeByReq: make(map[string]string),
		guard:       lifecycle.NewResponseGuard(),
		alertBus:    make(map[string]*eventbus.TypedBus[model.Alert]),
		respBus:     make(map[string]*eventbus.TypedBus[[]model.HelperResponse]),
	}
}

// CreateAlert stores the alert and acknowledges it as ACTIVE. At most one
// non-terminal alert may exist per requester; the check and the write happen
// under one lock, closing the double-trigger race.
func (s *MemoryStore) CreateAlert(_ context.Context, a model.Alert) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.activeByReq[a.RequesterID]; ok {
		if held, found := s.alerts[id]; found && held.Active() {
			return model.Alert{}, fmt.Errorf("%w (alert %s)", alertstore.ErrActiveAlertExists, id)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.Status = model.StatusActive
	a.UpdatedAt = now
	s.alerts[a.ID] = a
	s.activeByReq[a.RequesterID] = a.ID
	s.publishAlertLocked(a)
	return a, nil
}

// UpdateAlert applies a partial update. Alerts in a terminal status are
// immutable.
func (s *MemoryStore) UpdateAlert(_ context.Context, id string, p alertstore.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return alertstore.ErrNotFound
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: alert %s is %s", lifecycle.ErrInvalidTransition, id, a.Status)
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.Status != nil {
		if err := lifecycle.Validate(a.Status, lifecycle.ActorRequester, *p.Status); err != nil {
			return err
		}
		a.Status = *p.Status
		if a.Status.Terminal() {
			delete(s.activeByReq, a.RequesterID)
		}
	}
	a.UpdatedAt = time.Now()
	s.alerts[id] = a
	s.publishAlertLocked(a)
	return nil
}

// GetAlert returns the current snapshot.
func (s *MemoryStore) GetAlert(_ context.Context, id string) (model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, alertstore.ErrNotFound
	}
	return a, nil
}

// SubscribeAlert delivers the current snapshot, then one snapshot per change.
func (s *MemoryStore) SubscribeAlert(_ context.Context, id string) (<-chan model.Alert, func(), error) {
	s.mu.Lock()
	a, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, alertstore.ErrNotFound
	}
	bus, found := s.alertBus[id]
	if !found {
		bus = eventbus.NewTyped[model.Alert]()
		s.alertBus[id] = bus
	}
	sub := bus.Subscribe()
	s.mu.Unlock()

	out := make(chan model.Alert, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		out <- a
		for {
			select {
			case <-done:
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-done:
					return
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			bus.Unsubscribe(sub)
			close(done)
		})
	}
	return out, cancel, nil
}

// SubscribeResponses delivers the current response list, then one list per
// change.
func (s *MemoryStore) SubscribeResponses(_ context.Context, id string) (<-chan []model.HelperResponse, func(), error) {
	s.mu.Lock()
	if _, ok := s.alerts[id]; !ok {
		s.mu.Unlock()
		return nil, nil, alertstore.ErrNotFound
	}
	current := s.responsesLocked(id)
	bus, found := s.respBus[id]
	if !found {
		bus = eventbus.NewTyped[[]model.HelperResponse]()
		s.respBus[id] = bus
	}
	sub := bus.Subscribe()
	s.mu.Unlock()

	out := make(chan []model.HelperResponse, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		out <- current
		for {
			select {
			case <-done:
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-done:
					return
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			bus.Unsubscribe(sub)
			close(done)
		})
	}
	return out, cancel, nil
}

// CreateResponse records a helper commitment. The helper may hold only one
// non-terminal response across all alerts, and a new RESPONDING response
// drives the alert from ACTIVE to HELP_ON_WAY.
func (s *MemoryStore) CreateResponse(_ context.Context, r model.HelperResponse) (model.HelperResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[r.AlertID]
	if !ok {
		return model.HelperResponse{}, alertstore.ErrNotFound
	}
	if a.Status.Terminal() {
		return model.HelperResponse{}, fmt.Errorf("%w: alert %s is %s", lifecycle.ErrInvalidTransition, a.ID, a.Status)
	}
	if err := s.guard.Begin(r.HelperID, r.AlertID); err != nil {
		return model.HelperResponse{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = model.ResponseResponding
	r.RespondedAt = time.Now()
	s.responses[r.ID] = r
	s.byAlert[r.AlertID] = append(s.byAlert[r.AlertID], r.ID)

	a.RespondersCount++
	if lifecycle.CanTransition(a.Status, lifecycle.ActorHelper, model.StatusHelpOnWay) {
		a.Status = model.StatusHelpOnWay
	}
	a.UpdatedAt = time.Now()
	s.alerts[a.ID] = a
	s.publishAlertLocked(a)
	s.publishResponsesLocked(r.AlertID)
	return r, nil
}

// UpdateResponse moves a response through its sub-machine and mirrors the
// effect on the alert status.
func (s *MemoryStore) UpdateResponse(_ context.Context, id string, status model.ResponseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[id]
	if !ok {
		return alertstore.ErrNotFound
	}
	if err := lifecycle.ValidateResponse(r.Status, status); err != nil {
		return err
	}
	r.Status = status
	switch status {
	case model.ResponseArrived:
		r.ArrivedAt = time.Now()
	case model.ResponseCancelled, model.ResponseCompleted:
		s.guard.End(r.HelperID)
	}
	s.responses[id] = r

	if a, found := s.alerts[r.AlertID]; found {
		changed := false
		if status == model.ResponseArrived && lifecycle.CanTransition(a.Status, lifecycle.ActorHelper, model.StatusResponded) {
			a.Status = model.StatusResponded
			changed = true
		}
		if status == model.ResponseCancelled && a.RespondersCount > 0 {
			a.RespondersCount--
			changed = true
		}
		if changed {
			a.UpdatedAt = time.Now()
			s.alerts[a.ID] = a
			s.publishAlertLocked(a)
		}
	}
	s.publishResponsesLocked(r.AlertID)
	return nil
}

func (s *MemoryStore) responsesLocked(alertID string) []model.HelperResponse {
	ids := s.byAlert[alertID]
	res := make([]model.HelperResponse, 0, len(ids))
	for _, id := range ids {
		res = append(res, s.responses[id])
	}
	sortResponses(res)
	return res
}

func sortResponses(res []model.HelperResponse) {
	sort.Slice(res, func(i, j int) bool { return res[i].RespondedAt.Before(res[j].RespondedAt) })
}

func (s *MemoryStore) publishAlertLocked(a model.Alert) {
	if bus, ok := s.alertBus[a.ID]; ok {
		bus.Publish(a)
	}
}

func (s *MemoryStore) publishResponsesLocked(alertID string) {
	if bus, ok := s.respBus[alertID]; ok {
		bus.Publish(s.responsesLocked(alertID))
	}
}

// Close shuts down all subscription buses.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.alertBus {
		b.Close()
	}
	for _, b := range s.respBus {
		b.Close()
	}
	s.alertBus = make(map[string]*eventbus.TypedBus[model.Alert])
	s.respBus = make(map[string]*eventbus.TypedBus[[]model.HelperResponse])
	return nil
}
