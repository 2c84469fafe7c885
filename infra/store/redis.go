package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/lifecycle"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/model"
)

const (
	alertKeyFmt     = "resq:alert:%s"
	activeKeyFmt    = "resq:active:%s"
	responsesKeyFmt = "resq:alert:%s:responses"
	respIndexFmt    = "resq:response:%s"
	helperKeyFmt    = "resq:helper:%s"
	alertChanFmt    = "resq:alerts:%s"
	respChanFmt     = "resq:alerts:%s:responses"
)

// RedisStore is an alertstore.Store backed by Redis. Alerts and responses are
// stored as JSON documents, the one-active-alert-per-requester rule is
// enforced with SETNX on a per-requester marker key, and snapshot push uses
// Redis pub/sub, one channel per alert.
type RedisStore struct {
	rdb *redis.Client
	log logger.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, log logger.Logger) (*RedisStore, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, log: log}, nil
}

// CreateAlert claims the requester's active-alert marker with SETNX, then
// writes the alert as ACTIVE. The marker claim is what closes the
// double-trigger race across processes.
func (s *RedisStore) CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.Status = model.StatusActive
	a.UpdatedAt = now

	activeKey := fmt.Sprintf(activeKeyFmt, a.RequesterID)
	ok, err := s.rdb.SetNX(ctx, activeKey, a.ID, 0).Result()
	if err != nil {
		return model.Alert{}, fmt.Errorf("claim active marker: %w", err)
	}
	if !ok {
		held, _ := s.rdb.Get(ctx, activeKey).Result()
		// A stale marker from a crashed process may point at a terminal
		// alert. Release it and retry once.
		if prev, gerr := s.getAlert(ctx, held); gerr != nil || !prev.Active() {
			s.rdb.Del(ctx, activeKey)
			if ok2, err2 := s.rdb.SetNX(ctx, activeKey, a.ID, 0).Result(); err2 != nil || !ok2 {
				return model.Alert{}, fmt.Errorf("%w (alert %s)", alertstore.ErrActiveAlertExists, held)
			}
		} else {
			return model.Alert{}, fmt.Errorf("%w (alert %s)", alertstore.ErrActiveAlertExists, held)
		}
	}

	if err := s.writeAlert(ctx, a); err != nil {
		s.rdb.Del(ctx, activeKey)
		return model.Alert{}, err
	}
	return a, nil
}

// UpdateAlert applies a patch to the stored document and republishes it.
func (s *RedisStore) UpdateAlert(ctx context.Context, id string, p alertstore.Patch) error {
	a, err := s.getAlert(ctx, id)
	if err != nil {
		return err
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
			s.rdb.Del(ctx, fmt.Sprintf(activeKeyFmt, a.RequesterID))
		}
	}
	a.UpdatedAt = time.Now()
	return s.writeAlert(ctx, a)
}

// GetAlert returns the current snapshot.
func (s *RedisStore) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	return s.getAlert(ctx, id)
}

// SubscribeAlert delivers the current snapshot, then one snapshot per
// published change. Cancelling closes the pub/sub listener immediately.
func (s *RedisStore) SubscribeAlert(ctx context.Context, id string) (<-chan model.Alert, func(), error) {
	a, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ps := s.rdb.Subscribe(ctx, fmt.Sprintf(alertChanFmt, id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe alert %s: %w", id, err)
	}

	out := make(chan model.Alert, 16)
	go func() {
		defer close(out)
		out <- a
		for msg := range ps.Channel() {
			var snap model.Alert
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				s.log.Warnf("alert snapshot decode failed: %v", err)
				continue
			}
			out <- snap
		}
	}()
	var once sync.Once
	cancel := func() { once.Do(func() { _ = ps.Close() }) }
	return out, cancel, nil
}

// SubscribeResponses delivers the current response list, then one list per
// published change.
func (s *RedisStore) SubscribeResponses(ctx context.Context, id string) (<-chan []model.HelperResponse, func(), error) {
	if _, err := s.getAlert(ctx, id); err != nil {
		return nil, nil, err
	}
	current, err := s.listResponses(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ps := s.rdb.Subscribe(ctx, fmt.Sprintf(respChanFmt, id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe responses %s: %w", id, err)
	}

	out := make(chan []model.HelperResponse, 16)
	go func() {
		defer close(out)
		out <- current
		for msg := range ps.Channel() {
			var snap []model.HelperResponse
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				s.log.Warnf("response snapshot decode failed: %v", err)
				continue
			}
			out <- snap
		}
	}()
	var once sync.Once
	cancel := func() { once.Do(func() { _ = ps.Close() }) }
	return out, cancel, nil
}

// CreateResponse claims the helper's single-response marker with SETNX, then
// records the response and drives the alert to HELP_ON_WAY where permitted.
func (s *RedisStore) CreateResponse(ctx context.Context, r model.HelperResponse) (model.HelperResponse, error) {
	a, err := s.getAlert(ctx, r.AlertID)
	if err != nil {
		return model.HelperResponse{}, err
	}
	if a.Status.Terminal() {
		return model.HelperResponse{}, fmt.Errorf("%w: alert %s is %s", lifecycle.ErrInvalidTransition, a.ID, a.Status)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = model.ResponseResponding
	r.RespondedAt = time.Now()

	helperKey := fmt.Sprintf(helperKeyFmt, r.HelperID)
	ok, err := s.rdb.SetNX(ctx, helperKey, r.ID, 0).Result()
	if err != nil {
		return model.HelperResponse{}, fmt.Errorf("claim helper marker: %w", err)
	}
	if !ok {
		return model.HelperResponse{}, fmt.Errorf("%w: helper %s already responding", lifecycle.ErrResponseConflict, r.HelperID)
	}

	if err := s.writeResponse(ctx, r); err != nil {
		s.rdb.Del(ctx, helperKey)
		return model.HelperResponse{}, err
	}

	a.RespondersCount++
	if lifecycle.CanTransition(a.Status, lifecycle.ActorHelper, model.StatusHelpOnWay) {
		a.Status = model.StatusHelpOnWay
	}
	a.UpdatedAt = time.Now()
	if err := s.writeAlert(ctx, a); err != nil {
		return model.HelperResponse{}, err
	}
	return r, s.publishResponses(ctx, r.AlertID)
}

// UpdateResponse moves a response through its sub-machine, releasing the
// helper marker on terminal statuses.
func (s *RedisStore) UpdateResponse(ctx context.Context, id string, status model.ResponseStatus) error {
	alertID, err := s.rdb.Get(ctx, fmt.Sprintf(respIndexFmt, id)).Result()
	if err == redis.Nil {
		return alertstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve response %s: %w", id, err)
	}
	raw, err := s.rdb.HGet(ctx, fmt.Sprintf(responsesKeyFmt, alertID), id).Result()
	if err == redis.Nil {
		return alertstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load response %s: %w", id, err)
	}
	var r model.HelperResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return fmt.Errorf("decode response %s: %w", id, err)
	}
	if err := lifecycle.ValidateResponse(r.Status, status); err != nil {
		return err
	}
	r.Status = status
	switch status {
	case model.ResponseArrived:
		r.ArrivedAt = time.Now()
	case model.ResponseCancelled, model.ResponseCompleted:
		s.rdb.Del(ctx, fmt.Sprintf(helperKeyFmt, r.HelperID))
	}
	if err := s.writeResponse(ctx, r); err != nil {
		return err
	}

	if a, aerr := s.getAlert(ctx, alertID); aerr == nil {
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
			if werr := s.writeAlert(ctx, a); werr != nil {
				return werr
			}
		}
	}
	return s.publishResponses(ctx, alertID)
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) getAlert(ctx context.Context, id string) (model.Alert, error) {
	if id == "" {
		return model.Alert{}, alertstore.ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(alertKeyFmt, id)).Result()
	if err == redis.Nil {
		return model.Alert{}, alertstore.ErrNotFound
	}
	if err != nil {
		return model.Alert{}, fmt.Errorf("load alert %s: %w", id, err)
	}
	var a model.Alert
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return model.Alert{}, fmt.Errorf("decode alert %s: %w", id, err)
	}
	return a, nil
}

func (s *RedisStore) writeAlert(ctx context.Context, a model.Alert) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.ID, err)
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(alertKeyFmt, a.ID), doc, 0).Err(); err != nil {
		return fmt.Errorf("store alert %s: %w", a.ID, err)
	}
	if err := s.rdb.Publish(ctx, fmt.Sprintf(alertChanFmt, a.ID), doc).Err(); err != nil {
		s.log.Warnf("publish alert %s snapshot: %v", a.ID, err)
	}
	return nil
}

func (s *RedisStore) writeResponse(ctx context.Context, r model.HelperResponse) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response %s: %w", r.ID, err)
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, fmt.Sprintf(responsesKeyFmt, r.AlertID), r.ID, doc)
	pipe.Set(ctx, fmt.Sprintf(respIndexFmt, r.ID), r.AlertID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store response %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) listResponses(ctx context.Context, alertID string) ([]model.HelperResponse, error) {
	raw, err := s.rdb.HGetAll(ctx, fmt.Sprintf(responsesKeyFmt, alertID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list responses for %s: %w", alertID, err)
	}
	res := make([]model.HelperResponse, 0, len(raw))
	for _, doc := range raw {
		var r model.HelperResponse
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			s.log.Warnf("response decode failed: %v", err)
			continue
		}
		res = append(res, r)
	}
	sortResponses(res)
	return res, nil
}

func (s *RedisStore) publishResponses(ctx context.Context, alertID string) error {
	list, err := s.listResponses(ctx, alertID)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode responses for %s: %w", alertID, err)
	}
	if err := s.rdb.Publish(ctx, fmt.Sprintf(respChanFmt, alertID), doc).Err(); err != nil {
		s.log.Warnf("publish responses for %s: %v", alertID, err)
	}
	return nil
}
