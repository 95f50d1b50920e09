package telnet

import (
	"fmt"
	"strconv"

	"github.com/moodclient/owo/telopts"
)

// Event is a single protocol event pulled off the wire.  The set of implementations is
// closed: DataEvent, NegotiationEvent, SubnegotiationEvent, TimedOutEvent, NoDataEvent
// and ErrorEvent.
type Event interface {
	String() string
	isEvent()
}

// DataEvent carries application bytes sent by the remote, with IAC escaping already removed
type DataEvent struct {
	Data []byte
}

func (e DataEvent) isEvent() {}

func (e DataEvent) String() string {
	return strconv.Quote(string(e.Data))
}

// NegotiationEvent is IAC WILL/WONT/DO/DONT <option>
type NegotiationEvent struct {
	Verb   byte
	Option telopts.Code
}

func (e NegotiationEvent) isEvent() {}

func (e NegotiationEvent) String() string {
	return Command{OpCode: e.Verb, Option: e.Option}.String()
}

// SubnegotiationEvent is IAC SB <option> <payload> IAC SE
type SubnegotiationEvent struct {
	Option  telopts.Code
	Payload []byte
}

func (e SubnegotiationEvent) isEvent() {}

func (e SubnegotiationEvent) String() string {
	return Command{OpCode: SB, Option: e.Option, Subnegotiation: e.Payload}.String()
}

// TimedOutEvent is produced by a bounded read that saw nothing before its deadline
type TimedOutEvent struct{}

func (e TimedOutEvent) isEvent() {}

func (e TimedOutEvent) String() string {
	return "TIMED OUT"
}

// NoDataEvent is protocol traffic that carries nothing for the application, such as
// IAC NOP or IAC GA
type NoDataEvent struct{}

func (e NoDataEvent) isEvent() {}

func (e NoDataEvent) String() string {
	return "NO DATA"
}

// ErrorEvent reports a codec-level problem with the incoming byte stream
type ErrorEvent struct {
	Message string
}

func (e ErrorEvent) isEvent() {}

func (e ErrorEvent) String() string {
	return fmt.Sprintf("ERROR: %s", e.Message)
}

// commandEvent converts a parsed command into the event it represents
func commandEvent(c Command) Event {
	switch {
	case isNegotiationCode(c.OpCode):
		return NegotiationEvent{Verb: c.OpCode, Option: c.Option}
	case c.OpCode == SB:
		return SubnegotiationEvent{Option: c.Option, Payload: c.Subnegotiation}
	default:
		return NoDataEvent{}
	}
}
