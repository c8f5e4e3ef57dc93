package buffer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compress deflates src and prepends a 4-byte big-endian field holding
// its uncompressed length, exactly the wire shape original_source/src/buffer.c's
// fsl_buffer_compress produces.
func Compress(src []byte) ([]byte, error) {
	var body bytes.Buffer
	w := zlib.NewWriter(&body)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	out := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(out[:4], uint32(len(src)))
	copy(out[4:], body.Bytes())
	return out, nil
}

// Decompress reverses Compress: it reads the 4-byte length prefix,
// inflates the remainder, and returns exactly that many bytes.
func Decompress(src []byte) ([]byte, error) {
	if len(src) < 6 {
		return nil, fmt.Errorf("decompress: input too short to carry a size prefix")
	}
	size := binary.BigEndian.Uint32(src[:4])
	r, err := zlib.NewReader(bytes.NewReader(src[4:]))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer r.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// compressedHeaders is the exact set of 16-bit big-endian zlib headers
// original_source/src/buffer.c's fsl_data_is_compressed accepts for an
// 8 KiB compression window, across every allowed compression level and
// FLEVEL/FCHECK combination. The set must be preserved byte-for-byte:
// it is what lets fsl_data_is_compressed correctly classify the one
// historical artifact (tcl commit 5f37dcc3) whose header trips the
// naive two-byte ('x', 0234) check.
var compressedHeaders = map[uint16]bool{
	0x083c: true, 0x087a: true, 0x08b8: true, 0x08f6: true,
	0x1838: true, 0x1876: true, 0x18b4: true, 0x1872: true,
	0x2834: true, 0x2872: true, 0x28b0: true, 0x28ee: true,
	0x3830: true, 0x386e: true, 0x38ac: true, 0x38ea: true,
	0x482c: true, 0x486a: true, 0x48a8: true, 0x48e6: true,
	0x5828: true, 0x5866: true, 0x58a4: true, 0x58e2: true,
	0x6824: true, 0x6862: true, 0x68bf: true, 0x68fd: true,
	0x7801: true, 0x785e: true, 0x789c: true, 0x78da: true,
}

// IsCompressed reports whether b looks like stow's compressed wire
// format: a 4-byte big-endian length prefix followed by a recognized
// zlib header at bytes [4:6].
func IsCompressed(b []byte) bool {
	if len(b) < 6 {
		return false
	}
	head := uint16(b[4])<<8 | uint16(b[5])
	return compressedHeaders[head]
}

// UncompressedSize returns the declared uncompressed size carried in
// b's 4-byte prefix, or -1 if b is not recognized as compressed.
func UncompressedSize(b []byte) int64 {
	if !IsCompressed(b) {
		return -1
	}
	return int64(binary.BigEndian.Uint32(b[:4]))
}
