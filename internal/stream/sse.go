// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// maxLineSize bounds a single SSE line; answers arrive in one data line.
const maxLineSize = 4 << 20

// ErrLineTooLong is returned when a line exceeds maxLineSize.
var ErrLineTooLong = errors.New("sse line exceeds limit")

// Reader parses server-sent events.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// ReadEvent returns the next event that carries data. An error event is
// returned even without data, since the service may send it bare. An event
// without an "event:" field is named "message". Returns io.EOF at the end of
// the stream.
func (s *Reader) ReadEvent() (Event, error) {
	var name string
	var dataLines [][]byte

	flush := func() Event {
		if name == "" {
			name = "message"
		}
		return Event{Name: name, Data: bytes.Join(dataLines, []byte("\n"))}
	}

	for {
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(dataLines) > 0 || name == EventError) {
				return flush(), nil
			}
			return Event{}, err
		}

		if len(line) == 0 {
			if len(dataLines) > 0 || name == EventError {
				return flush(), nil
			}
			name = ""
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		switch string(field) {
		case "event":
			name = string(bytes.TrimSpace(value))
		case "data":
			dataLines = append(dataLines, append([]byte(nil), value...))
		}
		// id: and retry: are not used by this service.
	}
}

// readLine returns one line without its terminator.
func (s *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return line, nil
			}
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxLineSize {
			return nil, ErrLineTooLong
		}
		if !isPrefix {
			return bytes.TrimRight(line, "\r"), nil
		}
	}
}
