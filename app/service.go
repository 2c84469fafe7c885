package app

import (
	"context"
	"fmt"

	"github.com/resqlink/resqlink/config"
	"github.com/resqlink/resqlink/core/alertstore"
	"github.com/resqlink/resqlink/core/coordinator"
	"github.com/resqlink/resqlink/core/fanout"
	"github.com/resqlink/resqlink/core/helperstatus"
	"github.com/resqlink/resqlink/core/match"
	coremetrics "github.com/resqlink/resqlink/core/metrics"
	corepush "github.com/resqlink/resqlink/core/push"
	"github.com/resqlink/resqlink/core/statussync"
	infracontacts "github.com/resqlink/resqlink/infra/contacts"
	"github.com/resqlink/resqlink/infra/geoloc"
	"github.com/resqlink/resqlink/infra/logger"
	"github.com/resqlink/resqlink/infra/metrics"
	"github.com/resqlink/resqlink/infra/push"
	"github.com/resqlink/resqlink/infra/sms"
	"github.com/resqlink/resqlink/infra/store"
	"github.com/resqlink/resqlink/internal/eventbus"
)

type alertStore interface {
	alertstore.Store
	Close() error
}

// Service wires the coordinator manager to its store, transports and sinks.
type Service struct {
	Manager   *coordinator.Manager
	Fleet     *helperstatus.MemoryStore
	Contacts  *infracontacts.MemoryRegistry
	Locations *geoloc.StaticProvider

	bus        *eventbus.Bus
	log        logger.Logger
	metricsCfg coremetrics.Config
	closers    []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	svc := &Service{
		Fleet:      helperstatus.NewMemoryStore(),
		Contacts:   infracontacts.NewMemoryRegistry(),
		Locations:  geoloc.NewStaticProvider(),
		log:        logg,
		metricsCfg: cfg.Metrics,
	}

	alerts, err := svc.buildStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	gateway, err := sms.NewHTTPGateway(cfg.SMS)
	if err != nil {
		return nil, fmt.Errorf("sms gateway: %w", err)
	}

	var pusher corepush.Channel
	if cfg.Push.Broker != "" {
		ch, err := push.NewPahoChannel(cfg.Push)
		if err != nil {
			return nil, fmt.Errorf("push channel: %w", err)
		}
		ch.BindFleet(svc.Fleet)
		svc.closers = append(svc.closers, func() error { ch.Disconnect(); return nil })
		pusher = ch
	}

	bus := eventbus.New()
	svc.bus = bus

	dispatcher, err := fanout.NewDispatcher(gateway, cfg.Coordinator.FanoutWorkers, logger.New("fanout"), sink, bus)
	if err != nil {
		return nil, fmt.Errorf("fanout dispatcher: %w", err)
	}
	matcher := match.NewMatcher(svc.Fleet, logger.New("match"))
	observer := statussync.NewObserver(alerts, logger.New("statussync"))

	manager, err := coordinator.NewManager(alerts, svc.Contacts, dispatcher, matcher, observer,
		pusher, svc.Locations, coordinator.NopFeedback{}, logger.New("coordinator"), sink, bus, cfg.Coordinator)
	if err != nil {
		return nil, fmt.Errorf("coordinator manager: %w", err)
	}
	svc.Manager = manager
	return svc, nil
}

func (s *Service) buildStore(cfg store.Config) (alertStore, error) {
	switch cfg.Backend {
	case store.BackendRedis:
		rs, err := store.NewRedisStore(context.Background(), cfg.Redis, logger.New("redis-store"))
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		s.closers = append(s.closers, rs.Close)
		return rs, nil
	default:
		ms := store.NewMemoryStore()
		s.closers = append(s.closers, ms.Close)
		return ms, nil
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.metricsCfg.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.metricsCfg); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("coordinator service running")
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Manager.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
