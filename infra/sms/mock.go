package sms

import (
	"context"
	"fmt"
	"sync"
	"time"

	coresms "github.com/resqlink/resqlink/core/sms"
)

// Client mirrors the core sms.Client interface.
type Client = coresms.Client

// MockTransport is a simple SMS transport used in tests.
type MockTransport struct {
	Messages   map[string][]string
	FailPhones map[string]bool
	Delay      map[string]time.Duration
	mu         sync.Mutex
}

// NewMockTransport creates a new MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Messages:   make(map[string][]string),
		FailPhones: make(map[string]bool),
		Delay:      make(map[string]time.Duration),
	}
}

// Send records the message or returns an error if configured to fail.
func (m *MockTransport) Send(ctx context.Context, phone, text string) error {
	return m.deliver(ctx, phone, []string{text})
}

// SendMultipart records all segments or fails the whole message.
func (m *MockTransport) SendMultipart(ctx context.Context, phone string, parts []string) error {
	return m.deliver(ctx, phone, parts)
}

func (m *MockTransport) deliver(ctx context.Context, phone string, parts []string) error {
	if phone == "" {
		return coresms.ErrNoRecipient
	}
	m.mu.Lock()
	delay := m.Delay[phone]
	fail := m.FailPhones[phone]
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return fmt.Errorf("send failed")
	}
	m.mu.Lock()
	m.Messages[phone] = append(m.Messages[phone], parts...)
	m.mu.Unlock()
	return nil
}

// Sent returns the segments delivered to the given phone.
func (m *MockTransport) Sent(phone string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Messages[phone]...)
}
