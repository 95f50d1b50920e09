package utils

import (
	"context"
	"log/slog"

	"github.com/moodclient/owo/telnet"
)

// LevelNone turns a stream off when used as one of the DebugLogConfig levels
const LevelNone slog.Level = -8

type DebugLogConfig struct {
	InboundCommandLevel   slog.Level
	InboundTextLevel      slog.Level
	OutboundCommandLevel  slog.Level
	UnexpectedEventLevel  slog.Level
	EncounteredErrorLevel slog.Level
}

// DefaultDebugLogConfig logs all protocol traffic at debug level and dropped traffic at info
func DefaultDebugLogConfig() DebugLogConfig {
	return DebugLogConfig{
		InboundCommandLevel:   slog.LevelDebug,
		InboundTextLevel:      slog.LevelDebug,
		OutboundCommandLevel:  slog.LevelDebug,
		UnexpectedEventLevel:  slog.LevelInfo,
		EncounteredErrorLevel: slog.LevelWarn,
	}
}

// DebugLog writes a connection's protocol traffic to a logger
type DebugLog struct {
	logger *slog.Logger
	config DebugLogConfig
}

func NewDebugLog(conn *telnet.Connection, logger *slog.Logger, config DebugLogConfig) *DebugLog {
	log := &DebugLog{logger: logger, config: config}

	conn.RegisterInboundEventHook(log.logInboundEvent)
	conn.RegisterOutboundCommandHook(log.logOutboundCommand)
	conn.RegisterUnexpectedEventHook(log.logUnexpectedEvent)

	return log
}

func (l *DebugLog) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if level == LevelNone {
		return
	}

	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *DebugLog) logInboundEvent(conn *telnet.Connection, ev telnet.Event) {
	switch ev.(type) {
	case telnet.DataEvent:
		l.log(l.config.InboundTextLevel, "Received text", slog.String("contents", ev.String()))
	case telnet.NegotiationEvent, telnet.SubnegotiationEvent:
		l.log(l.config.InboundCommandLevel, "Received command", slog.String("command", ev.String()))
	case telnet.ErrorEvent:
		l.log(l.config.EncounteredErrorLevel, "Encountered error", slog.String("error", ev.String()))
	}
}

func (l *DebugLog) logOutboundCommand(conn *telnet.Connection, c telnet.Command) {
	l.log(l.config.OutboundCommandLevel, "Sent command", slog.String("command", c.String()))
}

func (l *DebugLog) logUnexpectedEvent(conn *telnet.Connection, ev telnet.Event) {
	l.log(l.config.UnexpectedEventLevel, "Dropped event", slog.String("event", ev.String()))
}
