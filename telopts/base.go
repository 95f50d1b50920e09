package telopts

import (
	"fmt"
	"strconv"
)

// Code - each telopt has a unique identification number between 0 and 255
type Code byte

var codeNames = map[Code]string{
	ECHO:            "ECHO",
	SUPPRESSGOAHEAD: "SUPPRESS-GO-AHEAD",
	TTYPE:           "TTYPE",
	NAWS:            "NAWS",
}

// String returns the short name used to refer to this option. Options this
// package doesn't know are rendered as their number, e.g. "?42"
func (c Code) String() string {
	name, known := codeNames[c]
	if !known {
		return "?" + strconv.Itoa(int(c))
	}

	return name
}

// Known indicates whether the code is one of the options the server negotiates
func (c Code) Known() bool {
	_, known := codeNames[c]
	return known
}

// SubnegotiationString creates a legible string for a subnegotiation payload,
// falling back to the raw bytes when the option has no special formatting
func SubnegotiationString(code Code, subnegotiation []byte) string {
	var str string
	var err error

	switch code {
	case TTYPE:
		str, err = TTYPEString(subnegotiation)
	case NAWS:
		str, err = NAWSString(subnegotiation)
	default:
		err = fmt.Errorf("%s: no subnegotiation format", code)
	}

	if err != nil {
		return fmt.Sprintf("%+v", subnegotiation)
	}

	return str
}
