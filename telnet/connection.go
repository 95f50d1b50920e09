package telnet

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

// Connection is one remote telnet terminal, seen from the server side. It negotiates
// terminal modes with the remote, remembers what it learned in Capabilities, and turns
// the incoming event stream into text for the application.
//
// A Connection is owned by a single goroutine: negotiation, reads and writes must all be
// made from the goroutine that owns it. Hooks registered with the connection are called
// synchronously from inside those methods.
//
// The connection holds at most one event of lookahead. A negotiator that reads an event
// it doesn't understand hands it back so that the next negotiator or the read loop sees
// it first.
type Connection struct {
	source   EventSource
	keyboard *TelnetKeyboard
	closer   io.Closer
	logger   *slog.Logger

	ansiTerminals []string

	lookahead    Event
	hasLookahead bool
	timeout      time.Duration

	capabilities Capabilities

	inboundEventHooks    *EventPublisher[Event]
	outboundCommandHooks *EventPublisher[Command]
	unexpectedEventHooks *EventPublisher[Event]
}

// NewConnection wraps a net.Conn. Closing the connection closes conn.
func NewConnection(conn net.Conn, config ConnectionConfig) *Connection {
	c := NewConnectionFromPipes(conn, conn, config)
	c.closer = conn
	return c
}

// NewConnectionFromPipes builds a connection that parses telnet from reader and writes
// to writer
func NewConnectionFromPipes(reader io.Reader, writer io.Writer, config ConnectionConfig) *Connection {
	return NewConnectionFromSource(NewTelnetPrinter(reader), writer, config)
}

// NewConnectionFromSource builds a connection on top of an already-decoded event stream
func NewConnectionFromSource(source EventSource, writer io.Writer, config ConnectionConfig) *Connection {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	terminals := config.ANSITerminals
	if terminals == nil {
		terminals = DefaultANSITerminals
	}

	return &Connection{
		source:        source,
		keyboard:      newTelnetKeyboard(writer),
		logger:        logger,
		ansiTerminals: terminals,
		capabilities:  defaultCapabilities(),

		inboundEventHooks:    NewPublisher(config.EventHooks.InboundEvent),
		outboundCommandHooks: NewPublisher(config.EventHooks.OutboundCommand),
		unexpectedEventHooks: NewPublisher(config.EventHooks.UnexpectedEvent),
	}
}

// RegisterInboundEventHook will register an event to be called with every event
// the connection takes from its source or its lookahead
func (c *Connection) RegisterInboundEventHook(hook EventHandler) {
	c.inboundEventHooks.Register(EventHook[Event](hook))
}

// RegisterOutboundCommandHook will register an event to be called whenever a
// negotiation command is written to the remote
func (c *Connection) RegisterOutboundCommandHook(hook CommandHandler) {
	c.outboundCommandHooks.Register(EventHook[Command](hook))
}

// RegisterUnexpectedEventHook will register an event to be called whenever ReadText
// drops negotiation traffic it wasn't waiting for
func (c *Connection) RegisterUnexpectedEventHook(hook EventHandler) {
	c.unexpectedEventHooks.Register(EventHook[Event](hook))
}

// Logger returns the logger the connection reports dropped traffic to
func (c *Connection) Logger() *slog.Logger {
	return c.logger
}

// SetTimeout sets how long a read waits before giving up with a timeout. A duration of
// zero or less makes reads block until the remote sends something.
func (c *Connection) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}

	c.timeout = d
}

// SetTimeoutMillis is SetTimeout for callers holding an optional millisecond count. A nil
// value makes reads block.
func (c *Connection) SetTimeoutMillis(ms *uint64) {
	if ms == nil {
		c.SetTimeout(0)
		return
	}

	c.SetTimeout(time.Duration(*ms) * time.Millisecond)
}

// Timeout returns the current poll timeout and whether one is set
func (c *Connection) Timeout() (time.Duration, bool) {
	return c.timeout, c.timeout > 0
}

// Capabilities returns a snapshot of everything negotiated so far
func (c *Connection) Capabilities() Capabilities {
	return c.capabilities
}

func (c *Connection) CBreak() bool {
	return c.capabilities.CBreak()
}

func (c *Connection) Echo() bool {
	return c.capabilities.Echo()
}

func (c *Connection) ANSI() bool {
	return c.capabilities.ANSI()
}

func (c *Connection) Width() (uint16, bool) {
	return c.capabilities.Width()
}

func (c *Connection) Height() (uint16, bool) {
	return c.capabilities.Height()
}

func (c *Connection) IsCharacterMode() bool {
	return c.capabilities.IsCharacterMode()
}

// getEvent returns the lookahead event if there is one, otherwise it reads from the
// source, waiting at most the poll timeout when one is set
func (c *Connection) getEvent() (Event, error) {
	var ev Event
	var err error

	if c.hasLookahead {
		ev = c.lookahead
		c.lookahead = nil
		c.hasLookahead = false
	} else if c.timeout > 0 {
		ev, err = c.source.ReadTimeout(c.timeout)
	} else {
		ev, err = c.source.Read()
	}

	if err != nil {
		return nil, err
	}

	c.inboundEventHooks.Fire(c, ev)
	return ev, nil
}

// pushBack stores an event to be returned by the next getEvent. Pushing a second event
// before the first has been consumed is a bug in the caller.
func (c *Connection) pushBack(ev Event) {
	if c.hasLookahead {
		panic(fmt.Sprintf("telnet: pushBack of %s with %s already waiting", ev, c.lookahead))
	}

	c.lookahead = ev
	c.hasLookahead = true
}

func (c *Connection) sendCommand(command Command) error {
	c.outboundCommandHooks.Fire(c, command)

	err := c.keyboard.writeCommand(command)
	if err != nil {
		return fmt.Errorf("telnet: write %s: %w", command, err)
	}

	return nil
}

// Write sends application bytes to the remote exactly as given. Bytes with the value
// 255 are not escaped.
func (c *Connection) Write(b []byte) (int, error) {
	return c.keyboard.Write(b)
}

// Flush exists for writers that buffer. Connection writes straight through, so there
// is never anything to flush.
func (c *Connection) Flush() error {
	return nil
}

// Close closes the underlying net.Conn, if the connection was built from one
func (c *Connection) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}
