package telnet

import "sync"

// EventHook is a type for function pointers that are registered to receive events
type EventHook[T any] func(conn *Connection, data T)

// EventPublisher is a type used to register and fire arbitrary events
type EventPublisher[U any] struct {
	lock sync.Mutex

	registeredHooks []EventHook[U]
}

// NewPublisher creates a new EventPublisher for a particular EventHook. A slice of
// hooks can be passed in- in which case the hooks will be registered to receive events
// from the publisher.  Otherwise, nil can be passed in.
func NewPublisher[U any, T ~func(conn *Connection, data U)](hooks []T) *EventPublisher[U] {
	var convertedHooks []EventHook[U]

	for _, hook := range hooks {
		convertedHooks = append(convertedHooks, EventHook[U](hook))
	}

	return &EventPublisher[U]{
		registeredHooks: convertedHooks,
	}
}

// Register registers a single EventHook to receive events from this publisher.
func (e *EventPublisher[U]) Register(hook EventHook[U]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.registeredHooks = append(e.registeredHooks, hook)
}

// Fire calls the event for all EventHook instances registered to this publisher with
// the provided parameters
func (e *EventPublisher[U]) Fire(conn *Connection, eventData U) {
	e.lock.Lock()
	hooks := e.registeredHooks
	e.lock.Unlock()

	for _, hook := range hooks {
		hook(conn, eventData)
	}
}

// EventHandler is an event hook type that receives protocol events
type EventHandler func(c *Connection, event Event)

// CommandHandler is an event hook type that receives commands written to the remote
type CommandHandler func(c *Connection, command Command)

// EventHooks is used to pass in a set of pre-registered event hooks to a Connection
// when it is created.  See ConnectionConfig for more info.
type EventHooks struct {
	// InboundEvent receives every event handed to the connection, including events
	// that were pushed back and delivered a second time
	InboundEvent []EventHandler
	// OutboundCommand receives every negotiation command the connection writes
	OutboundCommand []CommandHandler
	// UnexpectedEvent receives negotiation traffic that ReadText dropped
	UnexpectedEvent []EventHandler
}
