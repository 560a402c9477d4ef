package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxLineBytes bounds a single wire line. Lines beyond the limit
// poison their frame instead of growing the buffer without bound.
const DefaultMaxLineBytes = 1 << 20

// errLineTooLong is the internal sentinel for an oversized wire line.
var errLineTooLong = errors.New("sse: line too long")

// DecodeError reports a malformed frame. The decoder discards the frame,
// skips input to the next frame boundary and stays usable, so callers can
// log the error and keep reading.
type DecodeError struct {
	// Line is the 1-based line number in the stream where decoding failed.
	Line int
	// Reason describes what was wrong with the frame.
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sse: decode error at line %d: %s", e.Line, e.Reason)
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxLineBytes overrides the per-line size limit.
func WithMaxLineBytes(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxLine = n
		}
	}
}

// Decoder reads server-sent events from a byte stream. Partial lines are
// buffered across reads, so it works directly on a network body.
type Decoder struct {
	r       *bufio.Reader
	maxLine int
	line    int
}

// NewDecoder creates a streaming decoder over r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		r:       bufio.NewReader(r),
		maxLine: DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next event. It returns io.EOF when the stream ends, a
// *DecodeError when a frame had to be discarded, and the underlying read
// error otherwise. A frame is emitted once a blank line arrives and at
// least one field was seen; a pending frame at EOF is emitted before io.EOF.
func (d *Decoder) Next() (*Event, error) {
	var (
		ev   Event
		data []string
		seen bool
	)

	finish := func() *Event {
		ev.Data = strings.Join(data, "\n")
		decodePayload(&ev)
		return &ev
	}

	for {
		line, err := d.readLine()
		if err == errLineTooLong {
			at := d.line
			if skipErr := d.resync(); skipErr != nil && skipErr != io.EOF {
				return nil, skipErr
			}
			return nil, &DecodeError{Line: at, Reason: fmt.Sprintf("line exceeds %d bytes", d.maxLine)}
		}
		if err == io.EOF {
			if seen {
				return finish(), nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		// Blank line terminates the frame
		if line == "" {
			if !seen {
				continue
			}
			return finish(), nil
		}

		// Skip comments
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		seen = true
		switch field {
		case "data":
			data = append(data, value)
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, convErr := strconv.Atoi(value); convErr == nil && ms >= 0 {
				ev.Retry = ms
			}
		default:
			if ev.Fields == nil {
				ev.Fields = make(map[string]string)
			}
			ev.Fields[field] = value
		}
	}
}

// readLine reads one physical line, stripping the trailing LF or CRLF.
// The final line of the stream may arrive without a terminator.
func (d *Decoder) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		line = append(line, chunk...)
		switch err {
		case nil:
			d.line++
			if len(line) > d.maxLine {
				return "", errLineTooLong
			}
			return string(trimEOL(line)), nil
		case bufio.ErrBufferFull:
			if len(line) > d.maxLine {
				d.line++
				if skipErr := d.skipRestOfLine(); skipErr != nil && skipErr != io.EOF {
					return "", skipErr
				}
				return "", errLineTooLong
			}
		case io.EOF:
			if len(line) == 0 {
				return "", io.EOF
			}
			d.line++
			if len(line) > d.maxLine {
				return "", errLineTooLong
			}
			return string(trimEOL(line)), nil
		default:
			return "", err
		}
	}
}

// skipRestOfLine consumes input up to and including the next newline.
func (d *Decoder) skipRestOfLine() error {
	for {
		_, err := d.r.ReadSlice('\n')
		switch err {
		case bufio.ErrBufferFull:
			continue
		default:
			return err
		}
	}
}

// resync skips input until a frame boundary so decoding can continue
// after a poisoned frame.
func (d *Decoder) resync() error {
	for {
		line, err := d.readLine()
		if err == errLineTooLong {
			continue
		}
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

// decodePayload attempts to parse Data as JSON. Non-JSON payloads leave
// Value nil and the raw string stands in as the decoded value.
func decodePayload(ev *Event) {
	if ev.Data == "" {
		return
	}
	var v any
	if err := json.Unmarshal([]byte(ev.Data), &v); err == nil {
		ev.Value = v
	}
}

// parseLine splits a wire line into field and value. A line without a
// colon is a field name with an empty value. One leading space after the
// colon is stripped per the SSE grammar.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}

func trimEOL(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
