package sse

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Encoder writes events in SSE wire format. Field values must not contain
// newlines; multi-line payloads belong in Data, which is split into one
// "data:" line per segment.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteEvent writes one event as a frame terminated by a blank line. Each
// frame is written with a single Write call so it can be flushed whole.
func (e *Encoder) WriteEvent(ev *Event) error {
	var b strings.Builder
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", ev.Retry)
	}
	for _, name := range sortedFieldNames(ev.Fields) {
		fmt.Fprintf(&b, "%s: %s\n", name, ev.Fields[name])
	}
	for _, segment := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", segment)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(e.w, b.String())
	return err
}

// WriteComment writes a comment line. Decoders skip comments, so these are
// safe as keepalive traffic on idle connections.
func (e *Encoder) WriteComment(text string) error {
	_, err := fmt.Fprintf(e.w, ": %s\n\n", text)
	return err
}

func sortedFieldNames(fields map[string]string) []string {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
