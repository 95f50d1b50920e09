package telnet

import "log/slog"

// DefaultANSITerminals lists the terminal type prefixes that are known to understand
// ANSI escape sequences.
var DefaultANSITerminals = []string{
	"ansi",
	"xterm",
	"eterm",
	"rxvt",
	"tintin++",
	"gosclient",
	"mushclient",
	"zmud",
	"vt1",
	"tinyfugue",
}

type ConnectionConfig struct {
	// ANSITerminals is the allow-list used by NegotiateANSI. A terminal name reported by
	// the remote counts as ANSI-capable when it begins with one of these entries, ignoring
	// case.  Leave it nil to use DefaultANSITerminals.
	ANSITerminals []string

	// Logger receives warnings about protocol traffic the connection had to drop. Leave it
	// nil to use slog.Default().
	Logger *slog.Logger

	// EventHooks is a set of callbacks that the connection will call when the relevant
	// event occurs.  You can register additional callbacks after creation with
	// Connection.Register* methods.
	EventHooks EventHooks
}
