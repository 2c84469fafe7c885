package push

import (
	"fmt"
	"sync"
	"time"

	"github.com/resqlink/resqlink/core/model"
	corepush "github.com/resqlink/resqlink/core/push"
)

// Channel mirrors the core push.Channel interface.
type Channel = corepush.Channel

// MockChannel is a simple push channel used in tests.
type MockChannel struct {
	Pings      map[string]model.Alert
	FailIDs    map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockChannel creates a new MockChannel.
func NewMockChannel() *MockChannel {
	return &MockChannel{
		Pings:      make(map[string]model.Alert),
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// Ping records the ping or returns an error if configured to fail.
func (m *MockChannel) Ping(helperID string, a model.Alert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[helperID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Pings[helperID] = a
	messageID := fmt.Sprintf("msg-%s", helperID)
	m.AckResults[messageID] = true
	return messageID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockChannel) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown message")
	}
	return ok, nil
}
