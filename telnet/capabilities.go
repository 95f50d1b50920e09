package telnet

import (
	"fmt"
	"strings"
)

// Capabilities is what the connection has learned about the remote terminal through
// negotiation. Only the Negotiate* methods on Connection change it.
type Capabilities struct {
	cbreak bool
	echo   bool
	ansi   bool
	width  uint16
	height uint16
}

func defaultCapabilities() Capabilities {
	return Capabilities{echo: true}
}

// CBreak indicates whether the remote agreed to SUPPRESS-GO-AHEAD
func (c Capabilities) CBreak() bool {
	return c.cbreak
}

// Echo indicates whether the remote is still echoing locally. It starts out true and
// becomes false once the remote agrees that the server will echo.
func (c Capabilities) Echo() bool {
	return c.echo
}

// ANSI indicates whether the remote reported an ANSI-capable terminal type
func (c Capabilities) ANSI() bool {
	return c.ansi
}

// Width returns the terminal width reported through NAWS, if any
func (c Capabilities) Width() (uint16, bool) {
	return c.width, c.width != 0
}

// Height returns the terminal height reported through NAWS, if any
func (c Capabilities) Height() (uint16, bool) {
	return c.height, c.height != 0
}

// IsCharacterMode indicates whether keystrokes arrive one at a time without being
// echoed by the remote
func (c Capabilities) IsCharacterMode() bool {
	return c.cbreak && !c.echo
}

func (c Capabilities) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cbreak=%t echo=%t ansi=%t", c.cbreak, c.echo, c.ansi)

	if width, ok := c.Width(); ok {
		fmt.Fprintf(&sb, " width=%d", width)
	}

	if height, ok := c.Height(); ok {
		fmt.Fprintf(&sb, " height=%d", height)
	}

	return sb.String()
}
