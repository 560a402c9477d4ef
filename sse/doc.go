// Package sse implements the Server-Sent Events wire format: an Event
// record, a streaming Decoder that turns a byte stream into events, and
// an Encoder that writes events back out in the same framing.
//
// The Decoder follows the SSE grammar: frames are groups of "field: value"
// lines terminated by a blank line, lines starting with ':' are comments,
// and multiple "data:" lines within one frame are joined with newlines.
// Both LF and CRLF line endings are accepted.
//
//	dec := sse.NewDecoder(resp.Body)
//	for {
//		ev, err := dec.Next()
//		if err == io.EOF {
//			break
//		}
//		var decErr *sse.DecodeError
//		if errors.As(err, &decErr) {
//			continue // frame discarded, stream still usable
//		}
//		if err != nil {
//			return err
//		}
//		handle(ev)
//	}
package sse
