package helperstatus

import (
	"sort"
	"sync"

	"github.com/resqlink/resqlink/core/model"
)

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Status       *model.HelperStatus
	VerifiedOnly bool
}

// Store tracks the current state of the helper fleet. Helper lifecycle is
// independent of any single alert: helpers flip their own status and refresh
// their location on a timer while online.
type Store interface {
	Set(model.HelperProfile)
	Get(id string) (model.HelperProfile, bool)
	List(Filter) []model.HelperProfile
	SetLocation(id string, loc model.Location)
	// RecordResponse updates the helper's response counters once a
	// response reaches a terminal state.
	RecordResponse(id string, completed bool)
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.HelperProfile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.HelperProfile{}}
}

func (s *MemoryStore) Set(h model.HelperProfile) {
	s.mu.Lock()
	s.data[h.ID] = h
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (model.HelperProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[id]
	return h, ok
}

func (s *MemoryStore) SetLocation(id string, loc model.Location) {
	s.mu.Lock()
	h, ok := s.data[id]
	if !ok {
		h = model.HelperProfile{ID: id}
	}
	h.Location = &loc
	s.data[id] = h
	s.mu.Unlock()
}

func (s *MemoryStore) RecordResponse(id string, completed bool) {
	s.mu.Lock()
	h, ok := s.data[id]
	if !ok {
		h = model.HelperProfile{ID: id}
	}
	h.TotalResponses++
	if completed {
		h.SuccessfulResponses++
	}
	s.data[id] = h
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []model.HelperProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.HelperProfile, 0, len(s.data))
	for _, h := range s.data {
		if f.Status != nil && h.Status != *f.Status {
			continue
		}
		if f.VerifiedOnly && !h.Verified {
			continue
		}
		res = append(res, h)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
