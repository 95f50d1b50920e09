package telopts

import (
	"errors"
	"fmt"
	"strings"
)

// TTYPE is the TERMINAL-TYPE telopt (RFC 1091). Once the remote agrees with WILL TTYPE,
// each SEND subnegotiation from us is answered with an IS subnegotiation naming one
// terminal.  Clients that know several names advance to the next one on each SEND and
// repeat the last (or start over) when they run out.
const TTYPE Code = 24

const (
	TTYPEIS byte = iota
	TTYPESEND
)

// TTYPESendPayload is the subnegotiation payload asking the remote for its next terminal name
func TTYPESendPayload() []byte {
	return []byte{TTYPESEND}
}

// TTYPEISPayload builds the answer a client would send for the provided terminal name
func TTYPEISPayload(terminal string) []byte {
	payload := make([]byte, 0, len(terminal)+1)
	payload = append(payload, TTYPEIS)
	payload = append(payload, terminal...)
	return payload
}

// ParseTTYPEIS extracts the raw terminal name from an IS subnegotiation. The name is
// returned as sent; callers decide how to treat bytes that aren't valid UTF-8.
func ParseTTYPEIS(subnegotiation []byte) ([]byte, error) {
	if len(subnegotiation) < 1 {
		return nil, errors.New("ttype: received empty subnegotiation")
	}

	if subnegotiation[0] != TTYPEIS {
		return nil, fmt.Errorf("ttype: expected IS subnegotiation but received %+v", subnegotiation)
	}

	return subnegotiation[1:], nil
}

// TTYPEString creates a legible string for a TTYPE subnegotiation
func TTYPEString(subnegotiation []byte) (string, error) {
	if len(subnegotiation) < 1 {
		return "", errors.New("ttype: received empty subnegotiation")
	}

	if subnegotiation[0] == TTYPEIS {
		var sb strings.Builder
		sb.WriteString("IS ")
		sb.WriteString(string(subnegotiation[1:]))
		return sb.String(), nil
	}

	if subnegotiation[0] == TTYPESEND {
		return "SEND", nil
	}

	return "", fmt.Errorf("ttype: unknown subnegotiation: %+v", subnegotiation)
}
