package events

// Publisher is the narrow port components use to emit events,
// mirroring the teacher's lifecycle.Publisher shape.
type Publisher interface {
	// Publish broadcasts event to all current subscribers. Non-blocking:
	// a slow subscriber may miss events rather than stall the publisher.
	Publish(event Event)
}

// Subscriber is the narrow port components use to receive events.
type Subscriber interface {
	// Subscribe returns a channel that receives events until
	// Unsubscribe or Close.
	Subscribe() <-chan Event
	// Unsubscribe removes a subscription; idempotent, safe with unknown
	// channels.
	Unsubscribe(ch <-chan Event)
}

// Bus combines Publisher and Subscriber into the full EventBus port.
type Bus interface {
	Publisher
	Subscriber
	// Close shuts down the bus and closes all subscriber channels.
	Close()
}
