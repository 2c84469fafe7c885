package push

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/resqlink/resqlink/core/model"
	corepush "github.com/resqlink/resqlink/core/push"
	"github.com/resqlink/resqlink/infra/logger"
)

// Config defines the connection parameters for the MQTT push channel.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	AckTopic   string          `json:"ack_topic"`
	QoS        map[string]byte `json:"qos"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.AckTopic == "" {
		c.AckTopic = "helper/ack"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// FleetUpdater receives the helper location fix a device reports on its ack
// receipt.
type FleetUpdater interface {
	SetLocation(id string, loc model.Location)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoChannel implements the push Channel over MQTT. Each helper device
// subscribes to its own alert topic and publishes receipts on the shared
// ack topic.
type PahoChannel struct {
	cli      pahoClient
	ackTopic string
	qos      map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	fleet      FleetUpdater
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewPahoChannel connects to the MQTT broker and subscribes to the ack topic.
func NewPahoChannel(cfg Config) (*PahoChannel, error) {
	cfg.SetDefaults()
	if cfg.Broker == "" {
		return nil, fmt.Errorf("push: broker is required")
	}
	log := logger.New("push-channel")
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	pc := &PahoChannel{
		ackTopic:   cfg.AckTopic,
		ackChans:   make(map[string]chan struct{}),
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("push channel connected")
		qos := byte(0)
		if q, ok := pc.qos["ack"]; ok {
			qos = q
		}
		if token := c.Subscribe(pc.ackTopic, qos, pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	qos := byte(0)
	if q, ok := pc.qos["ack"]; ok {
		qos = q
	}
	if token := c.Subscribe(pc.ackTopic, qos, pc.onAck); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// BindFleet forwards location fixes carried on ack receipts to the fleet.
func (p *PahoChannel) BindFleet(f FleetUpdater) {
	p.mu.Lock()
	p.fleet = f
	p.mu.Unlock()
}

func (p *PahoChannel) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		MessageID string   `json:"message_id"`
		HelperID  string   `json:"helper_id"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.MessageID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Infof("received ack %s", m.MessageID)
	}
	fleet := p.fleet
	p.mu.Unlock()

	// The ack may carry the device's current fix; use it to refresh the
	// helper's position for subsequent matching.
	if fleet != nil && m.HelperID != "" && m.Latitude != nil && m.Longitude != nil {
		loc := model.Location{Latitude: *m.Latitude, Longitude: *m.Longitude, CapturedAt: time.Now()}
		if loc.Valid() {
			fleet.SetLocation(m.HelperID, loc)
		}
	}
}

// Ping publishes an alert summary on the helper's topic and returns the
// message identifier used for acknowledgment tracking.
func (p *PahoChannel) Ping(helperID string, a model.Alert) (string, error) {
	msgID := uuid.NewString()
	ping := struct {
		MessageID string  `json:"message_id"`
		HelperID  string  `json:"helper_id"`
		AlertID   string  `json:"alert_id"`
		AlertType string  `json:"alert_type"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timestamp int64   `json:"timestamp"`
	}{
		MessageID: msgID,
		HelperID:  helperID,
		AlertID:   a.ID,
		AlertType: a.Type.String(),
		Latitude:  a.Location.Latitude,
		Longitude: a.Location.Longitude,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(ping)
	if err != nil {
		return "", err
	}

	topic := fmt.Sprintf("helper/%s/alert", helperID)
	qos := byte(0)
	if q, ok := p.qos["alert"]; ok {
		qos = q
	}

	// Register before publishing so an immediate device ack is not lost.
	p.mu.Lock()
	p.ackChans[msgID] = make(chan struct{}, 1)
	p.mu.Unlock()

	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent ping %s to %s", msgID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		p.mu.Lock()
		delete(p.ackChans, msgID)
		p.mu.Unlock()
		return "", publishErr
	}
	return msgID, nil
}

// WaitForAck blocks until an ack for the given message ID arrives or timeout.
func (p *PahoChannel) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[messageID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown message")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		p.mu.Lock()
		delete(p.ackChans, messageID)
		p.mu.Unlock()
		return true, nil
	case <-timer.C:
		p.mu.Lock()
		delete(p.ackChans, messageID)
		p.mu.Unlock()
		return false, corepush.ErrAckTimeout
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoChannel) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
