package telopts

import (
	"encoding/binary"
	"fmt"
)

// NAWS is Negotiate About Window Size.  After the remote agrees with WILL NAWS it reports
// its width and height as two big-endian 16-bit numbers in a subnegotiation. A zero in
// either field means the remote doesn't know that dimension.
const NAWS Code = 31

const nawsPayloadLength = 4

// EncodeNAWS builds the four byte payload reporting a width & height
func EncodeNAWS(width, height uint16) []byte {
	payload := make([]byte, nawsPayloadLength)
	binary.BigEndian.PutUint16(payload[0:2], width)
	binary.BigEndian.PutUint16(payload[2:4], height)
	return payload
}

// ParseNAWS decodes a NAWS subnegotiation payload. The payload must be exactly four
// bytes long- doubled IACs have already been collapsed by the time it gets here.
func ParseNAWS(subnegotiation []byte) (width, height uint16, err error) {
	if len(subnegotiation) != nawsPayloadLength {
		return 0, 0, fmt.Errorf("naws: expected a four byte subnegotiation but received %d", len(subnegotiation))
	}

	width = binary.BigEndian.Uint16(subnegotiation[0:2])
	height = binary.BigEndian.Uint16(subnegotiation[2:4])
	return width, height, nil
}

// NAWSString creates a legible string for a NAWS subnegotiation. An empty payload
// is the query the server sends after the remote agrees to NAWS.
func NAWSString(subnegotiation []byte) (string, error) {
	if len(subnegotiation) == 0 {
		return "QUERY", nil
	}

	width, height, err := ParseNAWS(subnegotiation)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d x %d", width, height), nil
}
