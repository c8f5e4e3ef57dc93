// Package buffer implements the growable byte buffer and streaming
// protocol stow's storage layer is built on.
//
// It is grounded on original_source/src/buffer.c's fsl_buffer type:
// reserve/resize/append/seek/swap/take, minus the trailing NUL byte the
// C implementation keeps for C-string interop (Go slices don't need it
// — a deliberate, documented deviation).
package buffer

import (
	"fmt"

	"github.com/cuemby/stow/pkg/errs"
)

// Whence selects the origin for Seek, mirroring io.Seeker's constants
// without importing them (Buffer is not an io.Seeker: Seek here moves
// a logical read cursor over in-memory bytes, not a file offset).
type Whence int

const (
	SeekStart Whence = iota
	SeekCurrent
	SeekEnd
)

// Buffer is a growable byte vector with a read cursor for streaming
// consumption. The zero value is an empty, ready-to-use Buffer.
type Buffer struct {
	mem    []byte
	cursor int
}

// Len returns the number of used bytes.
func (b *Buffer) Len() int { return len(b.mem) }

// Bytes returns the buffer's used bytes. The caller must not retain the
// slice past the next mutating call.
func (b *Buffer) Bytes() []byte { return b.mem }

// Cap returns the buffer's current capacity.
func (b *Buffer) Cap() int { return cap(b.mem) }

// Reserve ensures capacity for at least n bytes without changing Len.
func (b *Buffer) Reserve(n int) {
	if n <= cap(b.mem) {
		return
	}
	grown := make([]byte, len(b.mem), n)
	copy(grown, b.mem)
	b.mem = grown
}

// Resize sets Len to n, zero-filling any newly exposed bytes and
// truncating the read cursor if it now lies past the end.
func (b *Buffer) Resize(n int) {
	if n <= len(b.mem) {
		b.mem = b.mem[:n]
	} else {
		b.Reserve(n)
		old := len(b.mem)
		b.mem = b.mem[:n]
		for i := old; i < n; i++ {
			b.mem[i] = 0
		}
	}
	if b.cursor > n {
		b.cursor = n
	}
}

// AppendBytes appends p to the buffer.
func (b *Buffer) AppendBytes(p []byte) {
	b.mem = append(b.mem, p...)
}

// AppendFormatted appends a printf-formatted string to the buffer.
func (b *Buffer) AppendFormatted(format string, args ...any) {
	b.mem = append(b.mem, fmt.Sprintf(format, args...)...)
}

// Reset empties the buffer but keeps its capacity, resetting the cursor.
func (b *Buffer) Reset() {
	b.mem = b.mem[:0]
	b.cursor = 0
}

// Swap exchanges the contents of b and other.
func (b *Buffer) Swap(other *Buffer) {
	b.mem, other.mem = other.mem, b.mem
	b.cursor, other.cursor = other.cursor, b.cursor
}

// Take transfers ownership of the buffer's bytes to the caller and
// resets b to empty, mirroring fsl_buffer_reset's "steal the memory"
// mode used by buffer.c's callers that want to hand bytes off without
// copying.
func (b *Buffer) Take() []byte {
	mem := b.mem
	b.mem = nil
	b.cursor = 0
	return mem
}

// Tell returns the current read-cursor position.
func (b *Buffer) Tell() int { return b.cursor }

// Rewind resets the read cursor to the start of the buffer.
func (b *Buffer) Rewind() { b.cursor = 0 }

// Seek moves the read cursor. The resulting position is always clamped
// to [0, Len()] — per the buffer-seek-bounds property, Seek never
// fails and never leaves the cursor out of range.
func (b *Buffer) Seek(offset int, whence Whence) int {
	var base int
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = b.cursor
	case SeekEnd:
		base = len(b.mem)
	}
	pos := base + offset
	if pos < 0 {
		pos = 0
	}
	if pos > len(b.mem) {
		pos = len(b.mem)
	}
	b.cursor = pos
	return pos
}

// Sink writes exactly len(p) bytes or fails. It is the write half of
// the streaming protocol (original_source/src/io.c's fsl_output_f).
type Sink func(p []byte) error

// Source reads up to len(p) bytes into p, returning how many were
// actually read. Returning (0, nil) means EOF. It is the read half of
// the streaming protocol (fsl_input_f).
type Source func(p []byte) (n int, err error)

// FillFromStream reads src to EOF and appends everything read.
func (b *Buffer) FillFromStream(src Source) error {
	chunk := make([]byte, 64*1024)
	for {
		n, err := src(chunk)
		if n > 0 {
			b.AppendBytes(chunk[:n])
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// WriteTo streams the buffer's used bytes to sink in one call.
func (b *Buffer) WriteTo(sink Sink) error {
	return sink(b.mem)
}

// StreamCompare compares lhs and rhs bytewise, without requiring either
// to already be a Buffer. It returns 0 when they are identical, -1 when
// lhs sorts first, and 1 when rhs sorts first (a strict prefix sorts
// before the longer slice).
func StreamCompare(lhs, rhs []byte) int {
	n := len(lhs)
	if len(rhs) < n {
		n = len(rhs)
	}
	for i := 0; i < n; i++ {
		if lhs[i] != rhs[i] {
			if lhs[i] < rhs[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(lhs) == len(rhs):
		return 0
	case len(lhs) < len(rhs):
		return -1
	default:
		return 1
	}
}

// ErrMisuse is returned by operations given an obviously invalid
// argument (e.g. a nil Buffer pointer handled by a free function).
var ErrMisuse = errs.New(errs.KindMisuse, "misuse")
