package telnet

import (
	"errors"
	"io"
	"net"
)

// TelnetKeyboard is the Connection subsidiary in charge of sending outbound data
// to the remote peer. Application text passes through untouched; commands are
// serialized with Command.Bytes.
type TelnetKeyboard struct {
	outputStream io.Writer
}

func newTelnetKeyboard(output io.Writer) *TelnetKeyboard {
	return &TelnetKeyboard{
		outputStream: output,
	}
}

func (k *TelnetKeyboard) writeOutput(b []byte) (int, error) {
	written := 0

	for {
		n, err := k.outputStream.Write(b[written:])
		written += n

		// Retry when error is temporary
		var netError net.Error
		if errors.As(err, &netError) {
			//nolint:staticcheck
			if netError.Temporary() && written < len(b) {
				continue
			}
		}

		return written, err
	}
}

func (k *TelnetKeyboard) writeCommand(c Command) error {
	_, err := k.writeOutput(c.Bytes())
	return err
}

func (k *TelnetKeyboard) Write(b []byte) (int, error) {
	return k.writeOutput(b)
}
