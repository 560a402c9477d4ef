package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecoder_SingleEvent(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: hello world\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "hello world" {
		t.Errorf("got data %q, want %q", ev.Data, "hello world")
	}
}

func TestDecoder_MultipleEvents(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: first\n\ndata: second\n\n"))

	ev1, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev1.Data != "first" {
		t.Errorf("first event data = %q, want %q", ev1.Data, "first")
	}

	ev2, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev2.Data != "second" {
		t.Errorf("second event data = %q, want %q", ev2.Data, "second")
	}

	if _, err = d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_EventWithType(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: message\ndata: hello\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != "message" {
		t.Errorf("event type = %q, want %q", ev.Type, "message")
	}
	if ev.Data != "hello" {
		t.Errorf("data = %q, want %q", ev.Data, "hello")
	}
}

func TestDecoder_EventWithID(t *testing.T) {
	d := NewDecoder(strings.NewReader("id: 42\ndata: hello\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "42" {
		t.Errorf("id = %q, want %q", ev.ID, "42")
	}
}

func TestDecoder_RetryHint(t *testing.T) {
	d := NewDecoder(strings.NewReader("retry: 3000\ndata: hello\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Retry != 3000 {
		t.Errorf("retry = %d, want %d", ev.Retry, 3000)
	}
}

func TestDecoder_InvalidRetryIgnored(t *testing.T) {
	d := NewDecoder(strings.NewReader("retry: soon\ndata: hello\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Retry != 0 {
		t.Errorf("retry = %d, want 0", ev.Retry)
	}
	if ev.Data != "hello" {
		t.Errorf("data = %q, want %q", ev.Data, "hello")
	}
}

func TestDecoder_MultiLineData(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: line1\ndata: line2\ndata: line3\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "line1\nline2\nline3"
	if ev.Data != want {
		t.Errorf("data = %q, want %q", ev.Data, want)
	}
}

func TestDecoder_SkipsComments(t *testing.T) {
	d := NewDecoder(strings.NewReader(": this is a comment\ndata: hello\n: another\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "hello" {
		t.Errorf("data = %q, want %q", ev.Data, "hello")
	}
}

func TestDecoder_CommentOnlyInputIsEmpty(t *testing.T) {
	d := NewDecoder(strings.NewReader(": keepalive 1\n\n: keepalive 2\n\n"))

	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))

	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_DataWithoutSpace(t *testing.T) {
	d := NewDecoder(strings.NewReader("data:no-space\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "no-space" {
		t.Errorf("data = %q, want %q", ev.Data, "no-space")
	}
}

func TestDecoder_OnlyOneLeadingSpaceStripped(t *testing.T) {
	d := NewDecoder(strings.NewReader("data:  indented\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != " indented" {
		t.Errorf("data = %q, want %q", ev.Data, " indented")
	}
}

func TestDecoder_PendingFrameAtEOF(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: trailing"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "trailing" {
		t.Errorf("data = %q, want %q", ev.Data, "trailing")
	}

	if _, err = d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after pending frame, got %v", err)
	}
}

func TestDecoder_CRLFLines(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: message\r\ndata: hello\r\n\r\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != "message" {
		t.Errorf("event type = %q, want %q", ev.Type, "message")
	}
	if ev.Data != "hello" {
		t.Errorf("data = %q, want %q", ev.Data, "hello")
	}
}

func TestDecoder_TypeOnlyFrameEmits(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: server.connected\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != "server.connected" {
		t.Errorf("event type = %q, want %q", ev.Type, "server.connected")
	}
	if ev.Data != "" {
		t.Errorf("data = %q, want empty", ev.Data)
	}
}

func TestDecoder_UnknownFieldPreserved(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: x\nsession: abc\nsession: def\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ev.Fields["session"]; got != "def" {
		t.Errorf("session field = %q, want %q (last value wins)", got, "def")
	}
}

func TestDecoder_ColonlessLineIsEmptyField(t *testing.T) {
	d := NewDecoder(strings.NewReader("marker\ndata: x\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := ev.Fields["marker"]; !ok || got != "" {
		t.Errorf("marker field = (%q, %v), want (\"\", true)", got, ok)
	}
}

func TestDecoder_BareDataAppendsEmptySegment(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: a\ndata\ndata: b\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\n\nb"
	if ev.Data != want {
		t.Errorf("data = %q, want %q", ev.Data, want)
	}
}

func TestDecoder_JSONValueDecoded(t *testing.T) {
	d := NewDecoder(strings.NewReader(`data: {"sessionID":"abc","n":1}` + "\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := ev.Value.(map[string]any)
	if !ok {
		t.Fatalf("value = %T, want map[string]any", ev.Value)
	}
	if obj["sessionID"] != "abc" {
		t.Errorf("sessionID = %v, want %q", obj["sessionID"], "abc")
	}
}

func TestDecoder_JSONStringValue(t *testing.T) {
	d := NewDecoder(strings.NewReader(`data: "quoted"` + "\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := ev.Value.(string); !ok || s != "quoted" {
		t.Errorf("value = %v (%T), want %q", ev.Value, ev.Value, "quoted")
	}
}

func TestDecoder_NonJSONValueNil(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: plain text, not json\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Value != nil {
		t.Errorf("value = %v, want nil for non-JSON payload", ev.Value)
	}
	if ev.Data != "plain text, not json" {
		t.Errorf("data = %q, want raw payload", ev.Data)
	}
}

func TestDecoder_OverlongLinePoisonsFrame(t *testing.T) {
	long := strings.Repeat("x", 200)
	input := "data: start\ndata: " + long + "\ndata: tail\n\ndata: next frame\n\n"
	d := NewDecoder(strings.NewReader(input), WithMaxLineBytes(64))

	_, err := d.Next()
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}

	// The decoder resyncs past the poisoned frame and keeps going.
	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error after resync: %v", err)
	}
	if ev.Data != "next frame" {
		t.Errorf("data = %q, want %q", ev.Data, "next frame")
	}

	if _, err = d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_OverlongLineAtEOF(t *testing.T) {
	long := strings.Repeat("x", 200)
	d := NewDecoder(strings.NewReader("data: "+long), WithMaxLineBytes(64))

	_, err := d.Next()
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}

	if _, err = d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_IDSurvivesAcrossDataLines(t *testing.T) {
	d := NewDecoder(strings.NewReader("id: 7\nevent: tool.start\ndata: {}\n\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "7" || ev.Type != "tool.start" {
		t.Errorf("got (id=%q, type=%q), want (7, tool.start)", ev.ID, ev.Type)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line  string
		field string
		value string
	}{
		{"data: hello", "data", "hello"},
		{"data:hello", "data", "hello"},
		{"data:  hello", "data", " hello"},
		{"event: msg", "event", "msg"},
		{"id: 1", "id", "1"},
		{"retry: 3000", "retry", "3000"},
		{"fieldonly", "fieldonly", ""},
		{"empty:", "empty", ""},
	}
	for _, tt := range tests {
		f, v := parseLine(tt.line)
		if f != tt.field || v != tt.value {
			t.Errorf("parseLine(%q) = (%q, %q), want (%q, %q)", tt.line, f, v, tt.field, tt.value)
		}
	}
}
