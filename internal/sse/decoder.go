// ABOUTME: Chunk-safe decoder for line-delimited server-sent event frames
// ABOUTME: Reassembles lines split across reads and extracts one JSON payload per data frame

package sse

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// dataPrefix marks a frame line carrying an event payload. Everything else
// (event-name lines, comments, blank separators) carries no payload here and
// is discarded.
const dataPrefix = "data:"

// Decoder incrementally splits a byte stream into event payloads. Network
// reads can split a line, or even a multi-byte character, at any byte
// boundary, so the decoder buffers trailing bytes until a terminator arrives.
// A Decoder is owned by a single turn and is not safe for concurrent use;
// each turn must construct a fresh one.
type Decoder struct {
	buf    []byte
	logger *slog.Logger
}

// NewDecoder creates a decoder. Pass nil logger for default.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger.With("component", "sse")}
}

// Feed consumes one chunk of the stream and returns the payloads of all data
// frames completed by it, in arrival order. Lines whose payload is not valid
// JSON are dropped with a warning; they never abort the stream.
func (d *Decoder) Feed(chunk []byte) []json.RawMessage {
	d.buf = append(d.buf, chunk...)

	var payloads []json.RawMessage
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		if p, ok := d.decodeLine(line); ok {
			payloads = append(payloads, p)
		}
	}
	return payloads
}

// Close terminates the stream, decoding a final line left unterminated when
// the connection closed. The decoder must not be fed after Close.
func (d *Decoder) Close() []json.RawMessage {
	if len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	if p, ok := d.decodeLine(line); ok {
		return []json.RawMessage{p}
	}
	return nil
}

// decodeLine extracts the JSON payload from one complete line, or reports
// that the line carries nothing usable.
func (d *Decoder) decodeLine(line []byte) (json.RawMessage, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nil, false
	}

	payload := bytes.TrimPrefix(line, []byte(dataPrefix))
	payload = bytes.TrimLeft(payload, " ")
	if len(payload) == 0 {
		return nil, false
	}

	if !json.Valid(payload) {
		d.logger.Warn("dropping unparsable event frame", "line_len", len(line))
		return nil, false
	}

	// Copy out of the shared buffer: the caller may hold the payload after
	// the next Feed reuses the backing array.
	out := make(json.RawMessage, len(payload))
	copy(out, payload)
	return out, true
}
