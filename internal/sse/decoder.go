// Package sse reassembles a byte stream into discrete event payloads.
package sse

import (
	"bytes"
	"strings"
)

const dataPrefix = "data: "

// Decoder buffers stream chunks and yields complete event payloads. A
// fresh Decoder is created per connection attempt; it is not restartable.
type Decoder struct {
	buf bytes.Buffer
}

// New returns an empty Decoder.
func New() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns the payloads of all events completed by
// it. An event ends at a blank line; only messages with the data-field
// prefix yield a payload, the prefix stripped.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf.Write(chunk)
	var payloads []string
	for {
		raw := d.buf.String()
		pos := strings.Index(raw, "\n\n")
		if pos < 0 {
			break
		}
		message := raw[:pos]
		d.buf.Next(pos + 2)
		if strings.HasPrefix(message, dataPrefix) {
			payloads = append(payloads, message[len(dataPrefix):])
		}
	}
	return payloads
}
