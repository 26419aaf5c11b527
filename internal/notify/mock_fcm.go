package notify

import (
	"context"
	"sync"

	"github.com/ternarybob/dipsentry/internal/models"
)

// MockFCMMessage is the shape MockFCMProvider would hand to a real
// Firebase Cloud Messaging client - kept minimal, just enough to exercise
// collapse-key and android-priority mapping in tests.
type MockFCMMessage struct {
	Token       string
	Title       string
	Body        string
	CollapseKey string
	Priority    string
	Data        map[string]string
}

// MockFCMProvider records the messages it would have sent, standing in
// for a real firebase.google.com/go/v4/messaging client until one is
// wired against real device tokens.
type MockFCMProvider struct {
	mu       sync.Mutex
	Sent     []MockFCMMessage
	deviceTokenLookup func(symbol string) string
	failNext bool
}

// NewMockFCMProvider constructs a MockFCMProvider. deviceTokenLookup
// resolves a symbol to the device token(s) that should receive the push;
// a nil lookup sends every message to a placeholder token.
func NewMockFCMProvider(deviceTokenLookup func(symbol string) string) *MockFCMProvider {
	return &MockFCMProvider{deviceTokenLookup: deviceTokenLookup}
}

func (m *MockFCMProvider) Name() string { return "fcm" }

// FailNext makes the next Send call return an error, for exercising
// FanOut's partial-failure handling in tests.
func (m *MockFCMProvider) FailNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

func (m *MockFCMProvider) Send(_ context.Context, event models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return errFCMUnavailable
	}

	token := "device-placeholder"
	if m.deviceTokenLookup != nil {
		token = m.deviceTokenLookup(event.Symbol)
	}

	m.Sent = append(m.Sent, MockFCMMessage{
		Token:       token,
		Title:       event.Symbol,
		Body:        event.Message,
		CollapseKey: CollapseKey(event),
		Priority:    AndroidPriority(event.Priority),
		Data: map[string]string{
			"rule_id": event.RuleID,
			"symbol":  event.Symbol,
		},
	})
	return nil
}

var errFCMUnavailable = fcmUnavailableError{}

type fcmUnavailableError struct{}

func (fcmUnavailableError) Error() string { return "fcm: mock provider unavailable" }
