package telnet

import (
	"io"
	"time"
)

// EventSource is anything that can produce telnet protocol events. The error result
// is reserved for transport failure; io.EOF means the remote closed the stream.
// Trouble decoding the stream itself is reported as an ErrorEvent.
type EventSource interface {
	// Read blocks until one event is available
	Read() (Event, error)
	// ReadTimeout returns TimedOutEvent if no event arrives within d
	ReadTimeout(d time.Duration) (Event, error)
}

// TelnetPrinter is the EventSource that parses the byte stream sent by the remote peer
type TelnetPrinter struct {
	scanner *TelnetScanner
}

var _ EventSource = &TelnetPrinter{}

// NewTelnetPrinter creates a TelnetPrinter reading from inputStream. The printer starts
// a goroutine per pending scan; it exits once inputStream returns an error or EOF.
func NewTelnetPrinter(inputStream io.Reader) *TelnetPrinter {
	return &TelnetPrinter{
		scanner: NewTelnetScanner(inputStream),
	}
}

func (p *TelnetPrinter) Read() (Event, error) {
	return p.next(0, false)
}

func (p *TelnetPrinter) ReadTimeout(d time.Duration) (Event, error) {
	return p.next(d, true)
}

func (p *TelnetPrinter) next(wait time.Duration, bounded bool) (Event, error) {
	switch p.scanner.Scan(wait, bounded) {
	case scanTimedOut:
		return TimedOutEvent{}, nil
	case scanEnded:
		if err := p.scanner.Err(); err != nil {
			return nil, err
		}

		return nil, io.EOF
	}

	token := p.scanner.Bytes()

	if len(token) == 0 {
		return NoDataEvent{}, nil
	}

	if token[0] != IAC {
		data := make([]byte, len(token))
		copy(data, token)
		return DataEvent{Data: data}, nil
	}

	if len(token) == 2 && token[1] == IAC {
		return DataEvent{Data: []byte{IAC}}, nil
	}

	command, err := parseCommand(token)
	if err != nil {
		return ErrorEvent{Message: err.Error()}, nil
	}

	return commandEvent(command), nil
}
