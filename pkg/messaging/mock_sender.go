package messaging

import (
	"context"
	"sync"
)

// MockMessageSender records every message it is asked to send.
type MockMessageSender struct {
	mu      sync.Mutex
	done    []*DoneMessage
	cancels []*CancelMessage
	err     error
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// FailWith makes subsequent sends return err.
func (m *MockMessageSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SendDoneMessage records done.
func (m *MockMessageSender) SendDoneMessage(_ context.Context, done *DoneMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.done = append(m.done, done)
	return nil
}

// SendCancelMessage records cancel.
func (m *MockMessageSender) SendCancelMessage(_ context.Context, cancel *CancelMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cancels = append(m.cancels, cancel)
	return nil
}

// DoneMessages returns the recorded done messages.
func (m *MockMessageSender) DoneMessages() []*DoneMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*DoneMessage(nil), m.done...)
}

// CancelMessages returns the recorded cancel messages.
func (m *MockMessageSender) CancelMessages() []*CancelMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*CancelMessage(nil), m.cancels...)
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
