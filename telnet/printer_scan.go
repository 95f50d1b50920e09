package telnet

import (
	"bufio"
	"bytes"
	"io"
	"time"
	"unicode/utf8"
)

type scanStatus byte

const (
	scanToken scanStatus = iota
	scanTimedOut
	scanEnded
)

// TelnetScanner splits a raw telnet stream into text runs and IAC commands. Scanning
// happens on a helper goroutine one token at a time, so a caller waiting with a
// deadline can walk away and pick the same pending scan back up on its next call.
type TelnetScanner struct {
	scanner           *bufio.Scanner
	currentlyScanning bool
	scanResult        chan bool
}

func NewTelnetScanner(inputStream io.Reader) *TelnetScanner {
	scan := bufio.NewScanner(inputStream)

	scanner := &TelnetScanner{
		scanner:    scan,
		scanResult: make(chan bool, 1),
	}

	scan.Split(scanner.ScanTelnet)
	return scanner
}

// Bytes returns the most recent token. The slice is only valid until the next call to Scan.
func (s *TelnetScanner) Bytes() []byte {
	return s.scanner.Bytes()
}

// Err returns the error that ended scanning, or nil on a clean end of stream
func (s *TelnetScanner) Err() error {
	return s.scanner.Err()
}

// Scan waits for the next token. When bounded is false it waits indefinitely, otherwise
// it gives up after wait and reports scanTimedOut. A bounded wait of zero or less only
// checks whether a token is already available.
func (s *TelnetScanner) Scan(wait time.Duration, bounded bool) scanStatus {
	if !s.currentlyScanning {
		s.currentlyScanning = true
		go func() {
			s.scanResult <- s.scanner.Scan()
		}()
	}

	var result bool

	if !bounded {
		result = <-s.scanResult
	} else if wait <= 0 {
		select {
		case result = <-s.scanResult:
		default:
			return scanTimedOut
		}
	} else {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case result = <-s.scanResult:
		case <-timer.C:
			return scanTimedOut
		}
	}

	s.currentlyScanning = false
	if !result {
		return scanEnded
	}

	return scanToken
}

// completeText returns how much of a run of text can be released without splitting
// a UTF-8 sequence that the next read will finish
func completeText(data []byte) int {
	lowest := len(data) - utf8.UTFMax
	if lowest < 0 {
		lowest = 0
	}

	for i := len(data) - 1; i >= lowest; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}

		if utf8.FullRune(data[i:]) {
			return len(data)
		}

		return i
	}

	return len(data)
}

func (s *TelnetScanner) scanTelnetWithoutEOF(data []byte) (advance int, err error) {
	specialCharIndex := bytes.IndexByte(data, IAC)

	if specialCharIndex > 0 {
		// Release all data until we get to an IAC
		return specialCharIndex, nil
	} else if specialCharIndex < 0 {
		// No special char, dump everything we can decode
		return completeText(data), nil
	}

	// if it's just IAC by itself, wait for more data
	if len(data) <= 1 {
		return 0, nil
	}

	// Release 'IAC IAC' on its own, it's actually escaped text
	if data[1] == IAC {
		return 2, nil
	}

	// Everything except negotiations & subnegotiations is a two byte command.
	// SE should never appear here but if it does we should recover by consuming the data
	if data[1] != SB && !isNegotiationCode(data[1]) {
		return 2, nil
	}

	// All other codes require at least 3 characters
	if len(data) < 3 {
		return 0, nil
	}

	if data[1] != SB {
		return 3, nil
	}

	nextIndex := 2

	for {
		nextSpecialCharIndex := bytes.IndexByte(data[nextIndex+1:], IAC)

		// No more IACs, subnegotiation end is not in buffer yet
		if nextSpecialCharIndex < 0 {
			return 0, nil
		}

		nextIndex += nextSpecialCharIndex + 1
		if len(data) <= nextIndex+1 {
			// IAC is last character, but we need more
			return 0, nil
		}

		if data[nextIndex+1] == SE {
			// Found subnegotiation end
			return nextIndex + 2, nil
		}

		if data[nextIndex+1] == IAC {
			// Double 255's should be skipped over
			nextIndex++
		}
	}
}

// ScanTelnet is a method used as the split method for bufio.Scanner. It will receive
// chunks of text or commands as individual tokens. An escaped IAC IAC is released
// as its own two byte token.
func (s *TelnetScanner) ScanTelnet(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}

	advance, err = s.scanTelnetWithoutEOF(data)
	if err != nil {
		return 0, nil, err
	}

	if advance == 0 {
		if !atEOF {
			return 0, nil, nil
		}

		// Whatever is left is a truncated command or rune, release it and let the
		// consumer decide what to make of it
		return len(data), data, nil
	}

	return advance, data[:advance], nil
}
