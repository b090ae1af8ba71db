// Package pubsub fans graph change notifications out to streaming clients.
package pubsub

import (
	"context"

	"github.com/goccy/go-json"
)

// TopicGraphStatus carries graph lifecycle events
const TopicGraphStatus = "graph_status"

// Graph status event types
const (
	EventLoading  = "loading"
	EventReloaded = "reloaded"
	EventFailed   = "failed"
)

// Event is one message on a topic
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, strictly increasing
}

// Subscription is a client's view of one topic
type Subscription interface {
	Topic() string

	// Events is closed when the publisher shuts down
	Events() <-chan Event

	Close() error
}

// Publisher manages subscriptions and event delivery.
// Cancelling the context passed to Subscribe closes the subscription.
type Publisher interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(topic string, eventType string, data any) error
	Close() error
}

// GraphStatus is the payload of graph_status events
type GraphStatus struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Epoch   uint64 `json:"epoch"`
}
