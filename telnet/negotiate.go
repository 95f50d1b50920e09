package telnet

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/moodclient/owo/telopts"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
)

type optionResult byte

const (
	optionUndetermined optionResult = iota
	optionAccepted
	optionRefused
)

// offerOption tells the remote that we will activate a telopt and interprets the
// single event that comes back.  Anything that isn't a DO/DONT for the same telopt
// is handed back to the lookahead.
func (c *Connection) offerOption(option telopts.Code) (optionResult, error) {
	err := c.sendCommand(Command{OpCode: WILL, Option: option})
	if err != nil {
		return optionUndetermined, err
	}

	ev, err := c.getEvent()
	if err != nil {
		return optionUndetermined, fmt.Errorf("telnet: negotiate %s: %w", option, err)
	}

	negotiation, isNegotiation := ev.(NegotiationEvent)
	if isNegotiation && negotiation.Option == option {
		switch negotiation.Verb {
		case DO:
			return optionAccepted, nil
		case DONT:
			return optionRefused, nil
		}
	}

	c.pushBack(ev)
	return optionUndetermined, nil
}

// NegotiateCBreak offers SUPPRESS-GO-AHEAD so that the remote sends keystrokes as they
// are typed.  It returns true if the remote agreed.  A false result with a nil error means
// the remote refused or answered with something else, which stays queued for the next read.
func (c *Connection) NegotiateCBreak() (bool, error) {
	result, err := c.offerOption(telopts.SUPPRESSGOAHEAD)
	if err != nil {
		return false, err
	}

	switch result {
	case optionAccepted:
		c.capabilities.cbreak = true
	case optionRefused:
		c.capabilities.cbreak = false
	}

	c.logger.Debug("negotiated cbreak", slog.Bool("cbreak", c.capabilities.cbreak))
	return result == optionAccepted, nil
}

// NegotiateNoEcho offers to echo on the server side so that the remote stops echoing
// locally.  It returns true, and Echo reports false, if the remote agreed.
func (c *Connection) NegotiateNoEcho() (bool, error) {
	result, err := c.offerOption(telopts.ECHO)
	if err != nil {
		return false, err
	}

	switch result {
	case optionAccepted:
		c.capabilities.echo = false
	case optionRefused:
		c.capabilities.echo = true
	}

	c.logger.Debug("negotiated echo", slog.Bool("echo", c.capabilities.echo))
	return result == optionAccepted, nil
}

func (c *Connection) isANSITerminal(name string) bool {
	fold := cases.Fold()
	folded := fold.String(name)

	for _, prefix := range c.ansiTerminals {
		if strings.HasPrefix(folded, fold.String(prefix)) {
			return true
		}
	}

	return false
}

func decodeTerminalName(raw []byte) string {
	name, err := encoding.Replacement.NewEncoder().String(string(raw))
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}

	return name
}

// NegotiateANSI asks the remote for its terminal types and decides whether it understands
// ANSI escape sequences.  Clients with several names cycle through them one per query, so
// the exchange stops once a name matches the allow-list or a name comes around a second
// time.
func (c *Connection) NegotiateANSI() (bool, error) {
	err := c.sendCommand(Command{OpCode: DO, Option: telopts.TTYPE})
	if err != nil {
		return false, err
	}

	seen := make(map[string]struct{})

	for {
		ev, err := c.getEvent()
		if err != nil {
			return false, fmt.Errorf("telnet: negotiate %s: %w", telopts.TTYPE, err)
		}

		switch typed := ev.(type) {
		case NegotiationEvent:
			if typed.Option != telopts.TTYPE {
				break
			}

			if typed.Verb == WILL {
				err = c.sendCommand(Command{OpCode: SB, Option: telopts.TTYPE, Subnegotiation: telopts.TTYPESendPayload()})
				if err != nil {
					return false, err
				}
				continue
			}

			if typed.Verb == WONT {
				c.capabilities.ansi = false
				return false, nil
			}
		case SubnegotiationEvent:
			if typed.Option != telopts.TTYPE {
				break
			}

			raw, err := telopts.ParseTTYPEIS(typed.Payload)
			if err != nil {
				return false, &ProtocolError{Option: telopts.TTYPE, Message: err.Error()}
			}

			name := decodeTerminalName(raw)
			c.logger.Debug("remote terminal type", slog.String("ttype", name))

			if c.isANSITerminal(name) {
				c.capabilities.ansi = true
				return true, nil
			}

			if _, repeated := seen[name]; repeated {
				c.capabilities.ansi = false
				return false, nil
			}

			seen[name] = struct{}{}
			err = c.sendCommand(Command{OpCode: SB, Option: telopts.TTYPE, Subnegotiation: telopts.TTYPESendPayload()})
			if err != nil {
				return false, err
			}
			continue
		}

		c.pushBack(ev)
		return false, nil
	}
}

// NegotiateWinsize asks the remote to report its window size with NAWS.  It returns true
// if at least one dimension was learned.  A reported dimension of zero means unknown and
// leaves any earlier value in place.
func (c *Connection) NegotiateWinsize() (bool, error) {
	err := c.sendCommand(Command{OpCode: DO, Option: telopts.NAWS})
	if err != nil {
		return false, err
	}

	for {
		ev, err := c.getEvent()
		if err != nil {
			return false, fmt.Errorf("telnet: negotiate %s: %w", telopts.NAWS, err)
		}

		switch typed := ev.(type) {
		case NegotiationEvent:
			if typed.Option != telopts.NAWS {
				break
			}

			if typed.Verb == WILL {
				err = c.sendCommand(Command{OpCode: SB, Option: telopts.NAWS})
				if err != nil {
					return false, err
				}
				continue
			}

			if typed.Verb == WONT {
				c.capabilities.width = 0
				c.capabilities.height = 0
				return false, nil
			}
		case SubnegotiationEvent:
			if typed.Option != telopts.NAWS {
				break
			}

			width, height, err := telopts.ParseNAWS(typed.Payload)
			if err != nil {
				return false, &ProtocolError{Option: telopts.NAWS, Message: err.Error()}
			}

			if width > 0 {
				c.capabilities.width = width
			}

			if height > 0 {
				c.capabilities.height = height
			}

			c.logger.Debug("remote window size", slog.Int("width", int(width)), slog.Int("height", int(height)))
			return width > 0 || height > 0, nil
		}

		c.pushBack(ev)
		return false, nil
	}
}
