package telnet

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/moodclient/owo/telopts"
)

// scriptedSource plays back a fixed list of events. Once the script runs out, blocking
// reads report io.EOF and bounded reads time out.
type scriptedSource struct {
	events       []Event
	reads        int
	timeoutReads int
}

func (s *scriptedSource) pop() (Event, bool) {
	if len(s.events) == 0 {
		return nil, false
	}

	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

func (s *scriptedSource) Read() (Event, error) {
	s.reads++
	ev, ok := s.pop()
	if !ok {
		return nil, io.EOF
	}

	return ev, nil
}

func (s *scriptedSource) ReadTimeout(d time.Duration) (Event, error) {
	s.timeoutReads++
	ev, ok := s.pop()
	if !ok {
		return TimedOutEvent{}, nil
	}

	return ev, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScriptedConnection(events ...Event) (*Connection, *scriptedSource, *bytes.Buffer) {
	source := &scriptedSource{events: events}
	var out bytes.Buffer
	conn := NewConnectionFromSource(source, &out, ConnectionConfig{Logger: quietLogger()})
	return conn, source, &out
}

func will(option telopts.Code) Event { return NegotiationEvent{Verb: WILL, Option: option} }
func wont(option telopts.Code) Event { return NegotiationEvent{Verb: WONT, Option: option} }
func do(option telopts.Code) Event   { return NegotiationEvent{Verb: DO, Option: option} }
func dont(option telopts.Code) Event { return NegotiationEvent{Verb: DONT, Option: option} }

func ttypeIs(name string) Event {
	return SubnegotiationEvent{Option: telopts.TTYPE, Payload: telopts.TTYPEISPayload(name)}
}

func naws(payload ...byte) Event {
	return SubnegotiationEvent{Option: telopts.NAWS, Payload: payload}
}

func data(text string) Event {
	return DataEvent{Data: []byte(text)}
}

func TestDefaultCapabilities(t *testing.T) {
	conn, _, _ := newScriptedConnection()

	if conn.CBreak() || !conn.Echo() || conn.ANSI() {
		t.Errorf("unexpected defaults: %s", conn.Capabilities())
	}

	if _, ok := conn.Width(); ok {
		t.Error("width should start unset")
	}

	if _, ok := conn.Height(); ok {
		t.Error("height should start unset")
	}

	if conn.IsCharacterMode() {
		t.Error("a fresh connection should not be in character mode")
	}
}

func TestGetEventReturnsLookaheadFirst(t *testing.T) {
	conn, source, _ := newScriptedConnection(data("live"))

	conn.pushBack(data("buffered"))

	ev, err := conn.getEvent()
	if err != nil {
		t.Fatalf("getEvent: %v", err)
	}

	if got := string(ev.(DataEvent).Data); got != "buffered" {
		t.Errorf("first event = %q, want %q", got, "buffered")
	}

	if source.reads != 0 {
		t.Errorf("source was read %d times while the lookahead was full", source.reads)
	}

	ev, err = conn.getEvent()
	if err != nil {
		t.Fatalf("getEvent: %v", err)
	}

	if got := string(ev.(DataEvent).Data); got != "live" {
		t.Errorf("second event = %q, want %q", got, "live")
	}

	// The slot was cleared, so the next read goes to the exhausted source
	if _, err := conn.getEvent(); !errors.Is(err, io.EOF) {
		t.Errorf("third getEvent error = %v, want io.EOF", err)
	}
}

func TestPushBackTwicePanics(t *testing.T) {
	conn, _, _ := newScriptedConnection()
	conn.pushBack(NoDataEvent{})

	defer func() {
		if recover() == nil {
			t.Error("second pushBack did not panic")
		}
	}()

	conn.pushBack(NoDataEvent{})
}

func TestGetEventUsesTimeout(t *testing.T) {
	conn, source, _ := newScriptedConnection()
	conn.SetTimeout(100 * time.Millisecond)

	ev, err := conn.getEvent()
	if err != nil {
		t.Fatalf("getEvent: %v", err)
	}

	if _, ok := ev.(TimedOutEvent); !ok {
		t.Errorf("getEvent = %s, want TIMED OUT", ev)
	}

	if source.timeoutReads != 1 || source.reads != 0 {
		t.Errorf("reads=%d timeoutReads=%d, want 0 and 1", source.reads, source.timeoutReads)
	}

	conn.SetTimeout(0)
	if _, ok := conn.Timeout(); ok {
		t.Error("SetTimeout(0) should clear the timeout")
	}
}

func TestSetTimeoutMillis(t *testing.T) {
	conn, _, _ := newScriptedConnection()

	ms := uint64(250)
	conn.SetTimeoutMillis(&ms)
	if d, ok := conn.Timeout(); !ok || d != 250*time.Millisecond {
		t.Errorf("Timeout() = %v, %t, want 250ms, true", d, ok)
	}

	conn.SetTimeoutMillis(nil)
	if _, ok := conn.Timeout(); ok {
		t.Error("SetTimeoutMillis(nil) should clear the timeout")
	}
}

func TestNegotiateCBreak(t *testing.T) {
	cases := []struct {
		name       string
		reply      Event
		result     bool
		cbreak     bool
		leftBehind bool
	}{
		{"accepted", do(telopts.SUPPRESSGOAHEAD), true, true, false},
		{"refused", dont(telopts.SUPPRESSGOAHEAD), false, false, false},
		{"other option", do(telopts.ECHO), false, false, true},
		{"data", data("look"), false, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, out := newScriptedConnection(tc.reply)

			result, err := conn.NegotiateCBreak()
			if err != nil {
				t.Fatalf("NegotiateCBreak: %v", err)
			}

			if result != tc.result || conn.CBreak() != tc.cbreak {
				t.Errorf("result=%t cbreak=%t, want %t %t", result, conn.CBreak(), tc.result, tc.cbreak)
			}

			if want := []byte{IAC, WILL, byte(telopts.SUPPRESSGOAHEAD)}; !bytes.Equal(out.Bytes(), want) {
				t.Errorf("wrote %v, want %v", out.Bytes(), want)
			}

			if conn.hasLookahead != tc.leftBehind {
				t.Errorf("lookahead filled = %t, want %t", conn.hasLookahead, tc.leftBehind)
			}

			if tc.leftBehind && conn.lookahead.String() != tc.reply.String() {
				t.Errorf("lookahead = %s, want %s", conn.lookahead, tc.reply)
			}
		})
	}
}

func TestNegotiateNoEcho(t *testing.T) {
	conn, _, out := newScriptedConnection(do(telopts.SUPPRESSGOAHEAD), do(telopts.ECHO))

	if ok, err := conn.NegotiateCBreak(); !ok || err != nil {
		t.Fatalf("NegotiateCBreak = %t, %v", ok, err)
	}

	ok, err := conn.NegotiateNoEcho()
	if err != nil {
		t.Fatalf("NegotiateNoEcho: %v", err)
	}

	if !ok || conn.Echo() {
		t.Errorf("result=%t echo=%t, want true false", ok, conn.Echo())
	}

	if !conn.IsCharacterMode() {
		t.Error("cbreak with server echo should be character mode")
	}

	want := []byte{IAC, WILL, byte(telopts.SUPPRESSGOAHEAD), IAC, WILL, byte(telopts.ECHO)}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("wrote %v, want %v", out.Bytes(), want)
	}
}

func TestNegotiateNoEchoRefused(t *testing.T) {
	conn, _, _ := newScriptedConnection(dont(telopts.ECHO))

	ok, err := conn.NegotiateNoEcho()
	if err != nil {
		t.Fatalf("NegotiateNoEcho: %v", err)
	}

	if ok || !conn.Echo() {
		t.Errorf("result=%t echo=%t, want false true", ok, conn.Echo())
	}
}

func TestRefusalLeavesTrailingEventsQueued(t *testing.T) {
	conn, _, _ := newScriptedConnection(dont(telopts.ECHO), data("x"))

	if ok, err := conn.NegotiateNoEcho(); ok || err != nil {
		t.Fatalf("NegotiateNoEcho = %t, %v", ok, err)
	}

	text, ok, err := conn.ReadText()
	if err != nil || !ok || text != "x" {
		t.Errorf("ReadText = %q, %t, %v, want \"x\", true, nil", text, ok, err)
	}
}

func TestNegotiationIsDeterministic(t *testing.T) {
	script := func() []Event {
		return []Event{
			will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18),
			do(telopts.SUPPRESSGOAHEAD),
			dont(telopts.ECHO),
		}
	}

	var results []string
	for i := 0; i < 2; i++ {
		conn, _, out := newScriptedConnection(script()...)

		winsize, _ := conn.NegotiateWinsize()
		cbreak, _ := conn.NegotiateCBreak()
		noecho, _ := conn.NegotiateNoEcho()

		results = append(results, fmtResult(winsize, cbreak, noecho, conn.Capabilities(), out.Bytes()))
	}

	if results[0] != results[1] {
		t.Errorf("repeated negotiation differed:\n%s\n%s", results[0], results[1])
	}
}

func fmtResult(winsize, cbreak, noecho bool, c Capabilities, wrote []byte) string {
	var b bytes.Buffer
	b.WriteString(c.String())
	for _, r := range []bool{winsize, cbreak, noecho} {
		if r {
			b.WriteString(" T")
		} else {
			b.WriteString(" F")
		}
	}
	b.Write(wrote)
	return b.String()
}

func countTTYPESends(wrote []byte) int {
	return bytes.Count(wrote, Command{OpCode: SB, Option: telopts.TTYPE, Subnegotiation: telopts.TTYPESendPayload()}.Bytes())
}

func TestNegotiateANSI(t *testing.T) {
	cases := []struct {
		name   string
		script []Event
		result bool
		sends  int
	}{
		{"xterm-256color", []Event{will(telopts.TTYPE), ttypeIs("xterm-256color")}, true, 1},
		{"upper case", []Event{will(telopts.TTYPE), ttypeIs("ANSI")}, true, 1},
		{"second name matches", []Event{will(telopts.TTYPE), ttypeIs("dumb"), ttypeIs("TinTin++")}, true, 2},
		{"repeat stops", []Event{will(telopts.TTYPE), ttypeIs("unknown1"), ttypeIs("unknown1")}, false, 2},
		{"cycle stops", []Event{will(telopts.TTYPE), ttypeIs("a"), ttypeIs("b"), ttypeIs("c"), ttypeIs("a")}, false, 4},
		{"refused", []Event{wont(telopts.TTYPE)}, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, out := newScriptedConnection(tc.script...)

			result, err := conn.NegotiateANSI()
			if err != nil {
				t.Fatalf("NegotiateANSI: %v", err)
			}

			if result != tc.result || conn.ANSI() != tc.result {
				t.Errorf("result=%t ansi=%t, want %t", result, conn.ANSI(), tc.result)
			}

			if !bytes.HasPrefix(out.Bytes(), []byte{IAC, DO, byte(telopts.TTYPE)}) {
				t.Errorf("negotiation did not start with IAC DO TTYPE: %v", out.Bytes())
			}

			if sends := countTTYPESends(out.Bytes()); sends != tc.sends {
				t.Errorf("sent %d TTYPE SEND requests, want %d", sends, tc.sends)
			}

			if conn.hasLookahead {
				t.Errorf("unexpected lookahead %s", conn.lookahead)
			}
		})
	}
}

func TestNegotiateANSIStopsOnRepeatWithoutReadingFurther(t *testing.T) {
	conn, source, _ := newScriptedConnection(will(telopts.TTYPE), ttypeIs("unknown1"), ttypeIs("unknown1"), data("later"))

	if ok, err := conn.NegotiateANSI(); ok || err != nil {
		t.Fatalf("NegotiateANSI = %t, %v", ok, err)
	}

	if len(source.events) != 1 {
		t.Errorf("%d events left in the source, want 1", len(source.events))
	}
}

func TestNegotiateANSIUnrelatedEvent(t *testing.T) {
	conn, _, _ := newScriptedConnection(will(telopts.NAWS))

	ok, err := conn.NegotiateANSI()
	if ok || err != nil {
		t.Fatalf("NegotiateANSI = %t, %v", ok, err)
	}

	if !conn.hasLookahead || conn.lookahead.String() != will(telopts.NAWS).String() {
		t.Errorf("lookahead = %v, want IAC WILL NAWS", conn.lookahead)
	}
}

func TestNegotiateANSIMalformedAnswer(t *testing.T) {
	conn, _, _ := newScriptedConnection(will(telopts.TTYPE), SubnegotiationEvent{Option: telopts.TTYPE})

	_, err := conn.NegotiateANSI()

	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) || protocolErr.Option != telopts.TTYPE {
		t.Errorf("error = %v, want a TTYPE ProtocolError", err)
	}
}

func TestNegotiateANSICustomTerminals(t *testing.T) {
	source := &scriptedSource{events: []Event{will(telopts.TTYPE), ttypeIs("Mudlet"), ttypeIs("xterm")}}
	conn := NewConnectionFromSource(source, io.Discard, ConnectionConfig{
		ANSITerminals: []string{"mudlet"},
		Logger:        quietLogger(),
	})

	ok, err := conn.NegotiateANSI()
	if !ok || err != nil {
		t.Errorf("NegotiateANSI = %t, %v, want true, nil", ok, err)
	}

	if len(source.events) != 1 {
		t.Errorf("negotiation read past the matching name")
	}
}

func TestNegotiateANSIInvalidUTF8Name(t *testing.T) {
	raw := SubnegotiationEvent{Option: telopts.TTYPE, Payload: []byte{telopts.TTYPEIS, 0xff, 'x'}}
	conn, _, _ := newScriptedConnection(will(telopts.TTYPE), raw, raw)

	ok, err := conn.NegotiateANSI()
	if ok || err != nil {
		t.Errorf("NegotiateANSI = %t, %v, want false, nil", ok, err)
	}
}

func TestNegotiateWinsize(t *testing.T) {
	cases := []struct {
		name   string
		script []Event
		result bool
		width  uint16
		height uint16
	}{
		{"80x24", []Event{will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18)}, true, 80, 24},
		{"width unknown", []Event{will(telopts.NAWS), naws(0x00, 0x00, 0x00, 0x18)}, true, 0, 24},
		{"both unknown", []Event{will(telopts.NAWS), naws(0x00, 0x00, 0x00, 0x00)}, false, 0, 0},
		{"refused", []Event{wont(telopts.NAWS)}, false, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, _ := newScriptedConnection(tc.script...)

			result, err := conn.NegotiateWinsize()
			if err != nil {
				t.Fatalf("NegotiateWinsize: %v", err)
			}

			if result != tc.result {
				t.Errorf("result = %t, want %t", result, tc.result)
			}

			width, widthOK := conn.Width()
			if width != tc.width || widthOK != (tc.width > 0) {
				t.Errorf("width = %d, %t, want %d", width, widthOK, tc.width)
			}

			height, heightOK := conn.Height()
			if height != tc.height || heightOK != (tc.height > 0) {
				t.Errorf("height = %d, %t, want %d", height, heightOK, tc.height)
			}
		})
	}
}

func TestNegotiateWinsizeWire(t *testing.T) {
	conn, _, out := newScriptedConnection(will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18))

	if _, err := conn.NegotiateWinsize(); err != nil {
		t.Fatalf("NegotiateWinsize: %v", err)
	}

	want := []byte{IAC, DO, byte(telopts.NAWS), IAC, SB, byte(telopts.NAWS), IAC, SE}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("wrote %v, want %v", out.Bytes(), want)
	}
}

func TestNegotiateWinsizeZeroKeepsPreviousValue(t *testing.T) {
	conn, _, _ := newScriptedConnection(
		will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18),
		will(telopts.NAWS), naws(0x00, 0x00, 0x00, 0x1e),
	)

	for i := 0; i < 2; i++ {
		if ok, err := conn.NegotiateWinsize(); !ok || err != nil {
			t.Fatalf("NegotiateWinsize #%d = %t, %v", i, ok, err)
		}
	}

	if width, _ := conn.Width(); width != 80 {
		t.Errorf("width = %d, want 80 preserved", width)
	}

	if height, _ := conn.Height(); height != 30 {
		t.Errorf("height = %d, want 30", height)
	}
}

func TestNegotiateWinsizeRefusalClears(t *testing.T) {
	conn, _, _ := newScriptedConnection(
		will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18),
		wont(telopts.NAWS),
	)

	_, _ = conn.NegotiateWinsize()
	ok, err := conn.NegotiateWinsize()
	if ok || err != nil {
		t.Fatalf("NegotiateWinsize = %t, %v", ok, err)
	}

	if _, set := conn.Width(); set {
		t.Error("width survived a refusal")
	}

	if _, set := conn.Height(); set {
		t.Error("height survived a refusal")
	}
}

func TestNegotiateWinsizeMalformed(t *testing.T) {
	conn, _, _ := newScriptedConnection(
		will(telopts.NAWS), naws(0x00, 0x50, 0x00, 0x18),
		will(telopts.NAWS), naws(0x00, 0x10, 0x00),
	)

	_, _ = conn.NegotiateWinsize()
	_, err := conn.NegotiateWinsize()

	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) || protocolErr.Option != telopts.NAWS {
		t.Errorf("error = %v, want a NAWS ProtocolError", err)
	}

	if width, _ := conn.Width(); width != 80 {
		t.Errorf("width = %d after malformed answer, want 80", width)
	}
}

func TestNegotiateWinsizeUnrelatedEvent(t *testing.T) {
	conn, _, _ := newScriptedConnection(do(telopts.ECHO))

	ok, err := conn.NegotiateWinsize()
	if ok || err != nil {
		t.Fatalf("NegotiateWinsize = %t, %v", ok, err)
	}

	// The next negotiator picks the stray event up
	ok, err = conn.NegotiateNoEcho()
	if !ok || err != nil {
		t.Errorf("NegotiateNoEcho = %t, %v, want true, nil", ok, err)
	}
}

func TestNegotiateTransportError(t *testing.T) {
	conn, _, _ := newScriptedConnection()

	_, err := conn.NegotiateWinsize()
	if !errors.Is(err, io.EOF) {
		t.Errorf("error = %v, want io.EOF", err)
	}
}

func TestReadText(t *testing.T) {
	conn, _, _ := newScriptedConnection(
		NoDataEvent{},
		will(telopts.TTYPE),
		naws(0x00, 0x50, 0x00, 0x18),
		data("héllo"),
	)

	var unexpected []Event
	conn.RegisterUnexpectedEventHook(func(c *Connection, ev Event) {
		unexpected = append(unexpected, ev)
	})

	text, ok, err := conn.ReadText()
	if err != nil || !ok || text != "héllo" {
		t.Errorf("ReadText = %q, %t, %v, want \"héllo\", true, nil", text, ok, err)
	}

	if len(unexpected) != 2 {
		t.Errorf("%d unexpected events reported, want 2", len(unexpected))
	}
}

func TestReadTextInvalidUTF8(t *testing.T) {
	conn, _, _ := newScriptedConnection(DataEvent{Data: []byte{'a', 0xff, 'b'}})

	text, ok, err := conn.ReadText()
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("error = %v, want ErrInvalidData", err)
	}

	if ok || text != "" {
		t.Errorf("ReadText returned text %q, %t alongside an error", text, ok)
	}
}

func TestReadTextErrorEvent(t *testing.T) {
	conn, _, _ := newScriptedConnection(ErrorEvent{Message: "bad command"})

	_, _, err := conn.ReadText()

	var dataErr *DataError
	if !errors.As(err, &dataErr) || dataErr.Message != "bad command" {
		t.Errorf("error = %v, want DataError carrying the message", err)
	}
}

func TestReadTextTimeout(t *testing.T) {
	conn, _, _ := newScriptedConnection()
	conn.SetTimeout(100 * time.Millisecond)

	text, ok, err := conn.ReadText()
	if text != "" || ok || err != nil {
		t.Errorf("ReadText = %q, %t, %v, want \"\", false, nil", text, ok, err)
	}
}

func TestReadTextEOF(t *testing.T) {
	conn, _, _ := newScriptedConnection()

	_, _, err := conn.ReadText()
	if !errors.Is(err, io.EOF) {
		t.Errorf("error = %v, want io.EOF", err)
	}
}

func TestWritePassesThrough(t *testing.T) {
	conn, _, out := newScriptedConnection()

	payload := []byte{'a', IAC, 'b', '\r', '\n'}
	n, err := conn.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}

	if err := conn.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}

	if !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("wrote %v, want %v", out.Bytes(), payload)
	}
}

func TestHooks(t *testing.T) {
	var inbound []Event
	var outbound []Command

	source := &scriptedSource{events: []Event{data("x")}}
	conn := NewConnectionFromSource(source, io.Discard, ConnectionConfig{
		Logger: quietLogger(),
		EventHooks: EventHooks{
			InboundEvent: []EventHandler{func(c *Connection, ev Event) {
				inbound = append(inbound, ev)
			}},
			OutboundCommand: []CommandHandler{func(c *Connection, command Command) {
				outbound = append(outbound, command)
			}},
		},
	})

	if _, err := conn.NegotiateCBreak(); err != nil {
		t.Fatalf("NegotiateCBreak: %v", err)
	}

	if _, _, err := conn.ReadText(); err != nil {
		t.Fatalf("ReadText: %v", err)
	}

	// The data event was delivered once live and once from the lookahead
	if len(inbound) != 2 {
		t.Errorf("%d inbound events, want 2", len(inbound))
	}

	if len(outbound) != 1 || outbound[0].OpCode != WILL || outbound[0].Option != telopts.SUPPRESSGOAHEAD {
		t.Errorf("outbound commands = %v, want [IAC WILL SUPPRESS-GO-AHEAD]", outbound)
	}
}
