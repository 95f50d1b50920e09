package telnet

import (
	"errors"
	"fmt"

	"github.com/moodclient/owo/telopts"
)

// ErrInvalidData is matched by every *DataError
var ErrInvalidData = errors.New("telnet: invalid data")

// DataError is returned by ReadText when the remote sent something that can't be
// delivered as text: bytes that aren't UTF-8, or a codec-level ErrorEvent.
type DataError struct {
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telnet: invalid data: %s: %v", e.Message, e.Err)
	}

	return "telnet: invalid data: " + e.Message
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Is(target error) bool {
	return target == ErrInvalidData
}

// ProtocolError is returned by a negotiator when the remote agreed to an option and then
// answered with a subnegotiation that can't be decoded.
type ProtocolError struct {
	Option  telopts.Code
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("telnet: protocol error in %s: %s", e.Option, e.Message)
}
