// Package sse reconstructs logical events from a fragmented event-stream
// body and frames outbound events for the client-facing stream.
package sse

import (
	"bytes"
	"encoding/json"

	"reasoner-api/internal/shared"
)

var (
	doneSentinel = []byte("[DONE]")
	dataPrefix   = []byte("data:")
	crlfBoundary = []byte("\r\n\r\n")
	lfBoundary   = []byte("\n\n")
)

// Event is one logical unit recovered from the upstream stream: a decoded
// chunk, the end-of-stream sentinel, or a malformed payload the caller gets
// to judge.
type Event struct {
	// Chunk is set for a successfully decoded data payload.
	Chunk *shared.ChatCompletionChunk
	// Done is set when the payload was the [DONE] sentinel.
	Done bool
	// Raw carries the undecodable payload when Err is set.
	Raw []byte
	Err error
}

// Reassembler accumulates raw bytes and drains complete events from them.
// One network read may carry zero, one, or many events, and an event
// boundary may be split across reads; the internal buffer carries partial
// state between Feed calls. Single pass: once the sentinel is seen all
// further input is discarded.
type Reassembler struct {
	buf  []byte
	done bool
}

func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, 4096)}
}

// Feed appends one read's worth of bytes and returns every complete event
// now available, in stream order.
func (r *Reassembler) Feed(chunk []byte) []Event {
	if r.done {
		return nil
	}
	r.buf = append(r.buf, chunk...)
	return r.drain(false)
}

// Flush signals end of input. A trailing event with no terminating blank
// line is still parsed: the stream closed without its sentinel and whatever
// arrived is preserved rather than dropped.
func (r *Reassembler) Flush() []Event {
	if r.done {
		return nil
	}
	events := r.drain(true)
	r.done = true
	return events
}

// Done reports whether the end-of-stream sentinel was seen.
func (r *Reassembler) Done() bool {
	return r.done
}

func (r *Reassembler) drain(flush bool) []Event {
	var events []Event
	for {
		raw, rest, ok := nextEvent(r.buf, flush)
		if !ok {
			return events
		}
		r.buf = rest
		event, ok := parseEvent(raw)
		if !ok {
			continue
		}
		events = append(events, event)
		if event.Done {
			r.done = true
			r.buf = nil
			return events
		}
	}
}

// nextEvent cuts the first blank-line-terminated event off buf, recognizing
// both \n\n and \r\n\r\n boundaries. In flush mode a trailing unterminated
// event is returned as-is.
func nextEvent(buf []byte, flush bool) ([]byte, []byte, bool) {
	crlf := bytes.Index(buf, crlfBoundary)
	lf := bytes.Index(buf, lfBoundary)
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return buf[:crlf], buf[crlf+len(crlfBoundary):], true
	case lf >= 0:
		return buf[:lf], buf[lf+len(lfBoundary):], true
	}
	if flush {
		trimmed := bytes.TrimSpace(buf)
		if len(trimmed) > 0 {
			return trimmed, nil, true
		}
	}
	return nil, nil, false
}

// parseEvent concatenates the data lines of one raw event. Events carrying
// no data lines (comments, bare event: fields) produce nothing.
func parseEvent(raw []byte) (Event, bool) {
	var payloads [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payloads = append(payloads, bytes.TrimSpace(line[len(dataPrefix):]))
	}
	if len(payloads) == 0 {
		return Event{}, false
	}

	payload := bytes.Join(payloads, []byte("\n"))
	if bytes.Equal(payload, doneSentinel) {
		return Event{Done: true}, true
	}

	var chunk shared.ChatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		// surfaced, not swallowed: the orchestrator decides whether a
		// malformed event is fatal
		return Event{Raw: payload, Err: err}, true
	}
	return Event{Chunk: &chunk}, true
}
