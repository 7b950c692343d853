// Package frame holds the single working buffer for one T=1 block:
// header, payload and trailing checksum. It is adapted from the
// circular-fifo-with-inline-checksum idiom used elsewhere in the
// pack's SDO segment buffering: bytes are appended one at a time as
// they arrive off the wire, with an optional checksum.Accumulator
// parameter available to fold each byte in as it is written. The
// session package currently verifies checksums with one pass over the
// finished buffer instead (simpler given a block's small, bounded
// size), so callers pass a nil accumulator; the hook stays available
// for a future streaming verifier.
package frame

import "github.com/t1proto/ese-link/internal/checksum"

// Buffer is a flat, reusable byte buffer sized for one block. Unlike a
// circular fifo it does not wrap: a block is read or written once,
// then Reset for the next one.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a Buffer with the given capacity (header + max
// payload + checksum for the dialect in use).
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Reset discards any buffered content, keeping the underlying storage.
func (b *Buffer) Reset() {
	b.n = 0
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer's total capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the filled portion of the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Append writes one byte, folding it into acc if non-nil. Returns
// false if the buffer is full.
func (b *Buffer) Append(c byte, acc checksum.Accumulator) bool {
	if b.n >= len(b.data) {
		return false
	}
	b.data[b.n] = c
	b.n++
	if acc != nil {
		acc.Single(c)
	}
	return true
}

// AppendSpan writes a span of bytes, folding each into acc if
// non-nil. Returns the number of bytes actually written (less than
// len(span) if the buffer fills up first).
func (b *Buffer) AppendSpan(span []byte, acc checksum.Accumulator) int {
	written := 0
	for _, c := range span {
		if !b.Append(c, acc) {
			break
		}
		written++
	}
	return written
}

// Space reports how many more bytes can be appended before Cap is hit.
func (b *Buffer) Space() int {
	return len(b.data) - b.n
}
