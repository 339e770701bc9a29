// Package encoding pools the buffers used to serialize HTTP responses and
// forwarded event envelopes.
package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
)

// maxPooledCap keeps outlier payloads, such as an order snapshot with many
// line items, from pinning memory in the pool.
const maxPooledCap = 64 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledCap {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// EncodeJSON encodes v (newline terminated) into buf without escaping HTML,
// so notes and reasons round-trip unchanged.
func EncodeJSON(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Marshal encodes v through a pooled buffer and returns a copy the caller
// owns, without the trailing newline.
func Marshal(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := EncodeJSON(buf, v); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return append([]byte(nil), out...), nil
}
