package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/messaging"
)

// PublishedEvent is an event captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	Timestamp  time.Time
	RawJSON    []byte
}

// MockPublisher records published events in memory instead of sending them
// to RabbitMQ.
type MockPublisher struct {
	mu         sync.RWMutex
	events     []PublishedEvent
	publishErr error
}

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// NewMockPublisher creates a new mock RabbitMQ publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// FailWith makes every later Publish call return err without recording.
func (m *MockPublisher) FailWith(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

// Publish stores the event after marshalling it like the real publisher does.
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishErr != nil {
		return m.publishErr
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		Timestamp:  time.Now(),
		RawJSON:    jsonData,
	})
	return nil
}

// Close is a no-op for mock publisher
func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// GetEventCount returns the total number of events published
func (m *MockPublisher) GetEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Reset clears all published events
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := len(m.GetEventsByKey(routingKey)); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}

// DecodeLastEvent unmarshals the newest event with routingKey into target.
// It fails the test when no such event was published.
func (m *MockPublisher) DecodeLastEvent(t *testing.T, routingKey string, target interface{}) {
	t.Helper()

	events := m.GetEventsByKey(routingKey)
	if len(events) == 0 {
		t.Fatalf("Expected event with routing key '%s' to be published, but found none", routingKey)
	}
	if err := json.Unmarshal(events[len(events)-1].RawJSON, target); err != nil {
		t.Fatalf("Failed to decode event %s: %v", routingKey, err)
	}
}
