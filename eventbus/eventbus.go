// Package eventbus provides a simple publish/subscribe event bus. Services
// use it to decouple side effects, such as sending an order receipt, from
// the workflow that triggered them.
package eventbus

import "context"

// Constant name for identifying the eventbus plugin.
const PluginName = "eventbus"

// Handler is called with each message delivered to a subscription. Handlers
// should assume they may be called multiple times concurrently.
type Handler func(context.Context, *Message) error

// Message wraps a published payload with delivery metadata.
type Message struct {
	ID      string
	Topic   string
	Data    any
	Attempt int
}

// NewMessage returns a first-attempt message for the topic.
func NewMessage(id, topic string, data any) *Message {
	return &Message{
		ID:      id,
		Topic:   topic,
		Data:    data,
		Attempt: 1,
	}
}

// EventBus provides a publish/subscribe interface for events.
type EventBus interface {
	// Subscribe to a topic. The handler will be called for every message
	// published to the topic. Depending on the implementation errors may be
	// logged or retried.
	Subscribe(topic string, handler Handler)

	// Publish a message to all of a topic's subscribers.
	Publish(topic string, data any)

	// SubscribeQueue registers a handler in the topic's work queue. Each
	// message is delivered to exactly one queue subscriber.
	SubscribeQueue(topic string, handler Handler)

	// Enqueue a message for one of the topic's queue subscribers.
	Enqueue(topic string, data any)

	// Wait blocks until all pending messages have been processed. Ensure
	// publishers are stopped first, the bus won't reject new events.
	Wait(ctx context.Context) error

	// Shutdown stops accepting work and waits for in-flight handlers.
	Shutdown(ctx context.Context) error
}

// Plugin registers an eventbus for other plugins and services to use.
func Plugin(eb EventBus) *EventBusPlugin {
	return &EventBusPlugin{EventBus: eb}
}

// EventBusPlugin provides access to an event bus for plugins and components
// to communicate with each other.
type EventBusPlugin struct {
	EventBus
}

// From storefront.Plugin.
func (p *EventBusPlugin) Name() string {
	return PluginName
}
