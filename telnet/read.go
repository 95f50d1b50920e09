package telnet

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// ReadText returns the next piece of text sent by the remote. ok is false when a poll
// timeout is set and nothing arrived in time. Negotiation traffic that shows up here is
// logged and dropped.  Any error is fatal to the session: a *DataError when the remote
// sent something that isn't text, or the wrapped transport error (io.EOF once the remote
// hangs up).
func (c *Connection) ReadText() (text string, ok bool, err error) {
	for {
		ev, err := c.getEvent()
		if err != nil {
			return "", false, fmt.Errorf("telnet: read: %w", err)
		}

		switch typed := ev.(type) {
		case DataEvent:
			if !utf8.Valid(typed.Data) {
				return "", false, &DataError{Message: fmt.Sprintf("received non-UTF-8 text %q", typed.Data)}
			}

			return string(typed.Data), true, nil
		case TimedOutEvent:
			return "", false, nil
		case NoDataEvent:
			continue
		case ErrorEvent:
			return "", false, &DataError{Message: typed.Message}
		default:
			c.logger.Warn("dropping unexpected telnet event", slog.String("event", ev.String()))
			c.unexpectedEventHooks.Fire(c, ev)
		}
	}
}
