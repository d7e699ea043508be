// Package messaging holds the event contract between the storefront and its broker.
package messaging

import (
	"context"
)

// Event is anything the storefront announces on the broker.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Deduplicated is implemented by events that must be recorded once even when the publish is retried.
// The broker drops a second message with the same ID inside its duplicate window.
type Deduplicated interface {
	MessageID() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. It stands in when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
