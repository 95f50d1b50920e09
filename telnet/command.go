package telnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/moodclient/owo/telopts"
)

// Telnet opcodes
const (
	// EOR - End Of Record. Clients occasionally send it as a prompt marker; the server ignores it.
	EOR byte = 239
	// SE - Subnegotiation End. IAC SE is used to mark the end of a subnegotiation command
	SE byte = 240
	// NOP - No-Op. IAC NOP doesn't indicate anything at all, and this library ignores it.
	NOP byte = 241
	// DM - Data Mark, the data stream portion of a SYNCH
	DM byte = 242
	// BRK - Break
	BRK byte = 243
	// IP - Interrupt Process
	IP byte = 244
	// AO - Abort Output
	AO byte = 245
	// AYT - Are You There
	AYT byte = 246
	// EC - Erase Character
	EC byte = 247
	// EL - Erase Line
	EL byte = 248
	// GA - Go Ahead. Meaningless once SUPPRESS-GO-AHEAD is agreed, and ignored by the server either way.
	GA byte = 249
	// SB - Subnegotiation Begin. IAC SB is used to indicate the beginning of a subnegotiation
	// command. These are telopt-specific commands that have telopt-specific meanings.
	SB byte = 250
	// WILL - IAC WILL is used to indicate that this terminal intends to activate a telopt
	WILL byte = 251
	// WONT - IAC WONT is used to indicate that this terminal refuses to activate a telopt
	WONT byte = 252
	// DO - IAC DO is used to request that the remote terminal activates a telopt
	DO byte = 253
	// DONT - IAC DONT is used to demand that the remote terminal do not activate a telopt
	DONT byte = 254
	// IAC - This opcode indicates the beginning of a new command
	IAC byte = 255
)

var commandCodes = map[byte]string{
	EOR:  "EOR",
	SE:   "SE",
	NOP:  "NOP",
	DM:   "DM",
	BRK:  "BRK",
	IP:   "IP",
	AO:   "AO",
	AYT:  "AYT",
	EC:   "EC",
	EL:   "EL",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

// isNegotiationCode indicates whether the opcode is one of WILL/WONT/DO/DONT
func isNegotiationCode(opCode byte) bool {
	return opCode == WILL || opCode == WONT || opCode == DO || opCode == DONT
}

// Command is a struct that indicates some sort of IAC command either received from
// or sent to the remote. Any possible command can be represented by this struct.
type Command struct {
	// OpCode is the code that comes after IAC in this command. Bear in mind that
	// subnegotiations, which come in the form of IAC SB <bytes> IAC SE, are represented
	// as a single command object with the OpCode of SB. IAC SE is never sent in its
	// own command.
	OpCode byte
	// Option indicates which telopt this command is referring to, if the command has one.
	// IAC WILL/WONT/DO/DONT/SB are always followed by a byte indicating a telopt.
	Option telopts.Code
	// Subnegotiation contains a byte slice containing the bytes, if any, that came
	// between IAC SB and IAC SE.  For non-SB commands, this slice is empty.
	Subnegotiation []byte
}

// hasOption indicates whether the command carries a telopt byte on the wire
func (c Command) hasOption() bool {
	return c.OpCode == SB || isNegotiationCode(c.OpCode)
}

// Bytes serializes the command to its wire form. IAC bytes inside a subnegotiation
// payload are doubled.
func (c Command) Bytes() []byte {
	size := 2
	if c.hasOption() {
		size++
	}

	if c.OpCode == SB {
		size += len(c.Subnegotiation) + 2
	}

	b := make([]byte, 0, size)
	b = append(b, IAC, c.OpCode)

	if c.hasOption() {
		b = append(b, byte(c.Option))
	}

	if c.OpCode == SB {
		for _, value := range c.Subnegotiation {
			b = append(b, value)
			if value == IAC {
				b = append(b, IAC)
			}
		}
		b = append(b, IAC, SE)
	}

	return b
}

// String converts a Command object into a legible stream. This can be useful
// when logging a sent or received command object
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString("IAC ")

	opCode, hasOpCode := commandCodes[c.OpCode]
	if !hasOpCode {
		opCode = strconv.Itoa(int(c.OpCode))
	}

	sb.WriteString(opCode)

	if !c.hasOption() {
		return sb.String()
	}

	sb.WriteByte(' ')
	sb.WriteString(c.Option.String())

	if c.OpCode != SB {
		return sb.String()
	}

	sb.WriteByte(' ')
	sb.WriteString(telopts.SubnegotiationString(c.Option, c.Subnegotiation))
	sb.WriteString(" IAC SE")
	return sb.String()
}

func parseCommand(data []byte) (Command, error) {
	if len(data) == 0 || data[0] != IAC {
		return Command{}, fmt.Errorf("command did not begin with IAC: %q", commandStream(data))
	}

	if len(data) < 2 {
		return Command{}, errors.New("command was just a standalone IAC with no opcode")
	}

	_, validOpcode := commandCodes[data[1]]
	if !validOpcode {
		return Command{}, fmt.Errorf("command did not have valid opcode: %q", commandStream(data))
	}

	if data[1] != SB && !isNegotiationCode(data[1]) {
		return Command{
			OpCode: data[1],
		}, nil
	}

	if len(data) < 3 {
		return Command{}, fmt.Errorf("command did not contain parameters: %q", commandStream(data))
	}

	if data[1] != SB {
		return Command{
			OpCode: data[1],
			Option: telopts.Code(data[2]),
		}, nil
	}

	if len(data) < 5 || data[len(data)-2] != IAC || data[len(data)-1] != SE {
		return Command{}, fmt.Errorf("subnegotiation command did not end with IAC SE: %q", commandStream(data))
	}

	// doubled 255s in the subnegotiation data need to be pared down to a single 255 just like in the main
	// text stream. We can do that by just compacting the data into the final slice
	subnegotiationData := data[3 : len(data)-2]
	finalBuffer := make([]byte, 0, len(subnegotiationData))

	for dataIndex := 0; dataIndex < len(subnegotiationData); dataIndex++ {
		finalBuffer = append(finalBuffer, subnegotiationData[dataIndex])
		if subnegotiationData[dataIndex] == IAC && dataIndex+1 < len(subnegotiationData) && subnegotiationData[dataIndex+1] == IAC {
			dataIndex++
		}
	}

	return Command{
		OpCode:         data[1],
		Option:         telopts.Code(data[2]),
		Subnegotiation: finalBuffer,
	}, nil
}

func commandStream(b []byte) string {
	var sb strings.Builder

	for i := 0; i < len(b); i++ {
		if i > 0 {
			sb.WriteRune(' ')
		}

		code, hasCode := commandCodes[b[i]]
		if !hasCode {
			sb.WriteString(strconv.Itoa(int(b[i])))
		} else {
			sb.WriteString(code)
		}
	}

	return sb.String()
}
