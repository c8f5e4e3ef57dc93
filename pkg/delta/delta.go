// Package delta implements stow's binary delta codec: given a source
// and a target byte slice, Create produces a compact delta that Apply
// can later replay against the same source to reproduce the target.
//
// It is a direct port of original_source/src/delta.c's fsl_delta_create2/
// fsl_delta_apply2 (in turn Fossil SCM's delta format, itself derived
// from xdelta). The wire format is intentionally unchanged: the
// target size, a newline, then a sequence of
//
//	N:literal bytes     -- insert N bytes of literal text
//	N@M,                -- copy N bytes from source offset M
//	N;                  -- terminator, N is a checksum over the target
//
// where every integer is base-64 encoded using the digit alphabet
// "0-9A-Z_a-z~". Preserving this format lets stow deltas interoperate
// byte-for-byte with the original project's.
package delta

import (
	"github.com/cuemby/stow/pkg/errs"
)

const hashWindow = 16 // NHASH

const digitAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz~"

// digitValue maps an ASCII byte to its base-64 digit value, or -1 if it
// is not a digit in the delta integer alphabet.
var digitValue [128]int8

func init() {
	for i := range digitValue {
		digitValue[i] = -1
	}
	for v, c := range []byte(digitAlphabet) {
		digitValue[c] = int8(v)
	}
}

// putInt appends the base-64 encoding of v to dst and returns the
// extended slice.
func putInt(dst []byte, v uint32) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var buf [16]byte
	i := 0
	for ; v > 0; v >>= 6 {
		buf[i] = digitAlphabet[v&0x3f]
		i++
	}
	for j := i - 1; j >= 0; j-- {
		dst = append(dst, buf[j])
	}
	return dst
}

// getInt reads a base-64 integer from the front of z, returning its
// value and the number of bytes consumed.
func getInt(z []byte) (v uint64, n int) {
	for n < len(z) {
		c := z[n]
		if c >= 128 || digitValue[c] < 0 {
			break
		}
		v = (v << 6) + uint64(digitValue[c])
		n++
	}
	return v, n
}

func digitCount(v int) int {
	n := 1
	x := 64
	for v >= x {
		n++
		x <<= 6
	}
	return n
}

// checksum computes the 32-bit additive checksum original_source/src/delta.c's
// fsl_delta_checksum uses to validate a delta's target bytes.
func checksum(z []byte) uint32 {
	var s0, s1, s2, s3 uint32
	n := len(z)
	i := 0
	for n-i >= 16 {
		s0 += uint32(z[i]) + uint32(z[i+4]) + uint32(z[i+8]) + uint32(z[i+12])
		s1 += uint32(z[i+1]) + uint32(z[i+5]) + uint32(z[i+9]) + uint32(z[i+13])
		s2 += uint32(z[i+2]) + uint32(z[i+6]) + uint32(z[i+10]) + uint32(z[i+14])
		s3 += uint32(z[i+3]) + uint32(z[i+7]) + uint32(z[i+11]) + uint32(z[i+15])
		i += 16
	}
	for n-i >= 4 {
		s0 += uint32(z[i])
		s1 += uint32(z[i+1])
		s2 += uint32(z[i+2])
		s3 += uint32(z[i+3])
		i += 4
	}
	s3 += (s2 << 8) + (s1 << 16) + (s0 << 24)
	switch n - i {
	case 3:
		s3 += uint32(z[i+2]) << 8
		fallthrough
	case 2:
		s3 += uint32(z[i+1]) << 16
		fallthrough
	case 1:
		s3 += uint32(z[i]) << 24
	}
	return s3
}

// rollingHash is the NHASH-byte sliding window hash Create uses to
// locate candidate matches between the target and the source.
type rollingHash struct {
	a, b uint16
	i    uint16
	z    [hashWindow]byte
}

func (h *rollingHash) init(z []byte) {
	var a, b uint16
	for i := 0; i < hashWindow; i++ {
		a += uint16(z[i])
		b += a
	}
	copy(h.z[:], z[:hashWindow])
	h.a, h.b, h.i = a, b, 0
}

func (h *rollingHash) next(c byte) {
	old := h.z[h.i]
	h.z[h.i] = c
	h.i = (h.i + 1) & (hashWindow - 1)
	h.a = h.a - uint16(old) + uint16(c)
	h.b = h.b - hashWindow*uint16(old) + h.a
}

func (h *rollingHash) value32() uint32 {
	return uint32(h.a) | uint32(h.b)<<16
}

func hashOnce(z []byte) uint32 {
	var a, b uint16
	for i := 0; i < hashWindow; i++ {
		a += uint16(z[i])
		b += a
	}
	return uint32(a) | uint32(b)<<16
}

// Create produces a delta that Apply(src, result) reproduces as out.
func Create(src, out []byte) []byte {
	delta := make([]byte, 0, len(out)/2+32)
	delta = putInt(delta, uint32(len(out)))
	delta = append(delta, '\n')

	if len(src) <= hashWindow {
		delta = putInt(delta, uint32(len(out)))
		delta = append(delta, ':')
		delta = append(delta, out...)
		delta = putInt(delta, checksum(out))
		delta = append(delta, ';')
		return delta
	}

	lenSrc := len(src)
	lenOut := len(out)
	nHash := lenSrc / hashWindow
	landmark := make([]int32, nHash)
	collide := make([]int32, nHash)
	for i := range landmark {
		landmark[i] = -1
		collide[i] = -1
	}
	for i := 0; i < lenSrc-hashWindow; i += hashWindow {
		hv := hashOnce(src[i:i+hashWindow]) % uint32(nHash)
		collide[i/hashWindow] = landmark[hv]
		landmark[hv] = int32(i / hashWindow)
	}

	base := 0
	var h rollingHash

	for base+hashWindow < lenOut {
		h.init(out[base:])
		i := 0
		bestCnt := 0
		bestOfst := 0
		bestLitsz := 0

		for {
			hv := h.value32() % uint32(nHash)
			iBlock := int(landmark[hv])
			limit := 250
			for iBlock >= 0 && limit > 0 {
				limit--
				iSrc := iBlock * hashWindow
				y := base + i
				limitX := lenSrc
				if lenSrc-iSrc > lenOut-y {
					limitX = iSrc + lenOut - y
				}
				x := iSrc
				for x < limitX && src[x] == out[y] {
					x++
					y++
				}
				j := x - iSrc - 1

				k := 1
				for k < iSrc && k <= i && src[iSrc-k] == out[base+i-k] {
					k++
				}
				k--

				ofst := iSrc - k
				cnt := j + k + 1
				litsz := i - k
				sz := digitCount(i-k) + digitCount(cnt) + digitCount(ofst) + 3
				if cnt >= sz && cnt > bestCnt {
					bestCnt = cnt
					bestOfst = ofst
					bestLitsz = litsz
				}
				iBlock = int(collide[iBlock])
			}

			if bestCnt > 0 {
				if bestLitsz > 0 {
					delta = putInt(delta, uint32(bestLitsz))
					delta = append(delta, ':')
					delta = append(delta, out[base:base+bestLitsz]...)
					base += bestLitsz
				}
				base += bestCnt
				delta = putInt(delta, uint32(bestCnt))
				delta = append(delta, '@')
				delta = putInt(delta, uint32(bestOfst))
				delta = append(delta, ',')
				break
			}

			if base+i+hashWindow >= lenOut {
				delta = putInt(delta, uint32(lenOut-base))
				delta = append(delta, ':')
				delta = append(delta, out[base:lenOut]...)
				base = lenOut
				break
			}

			h.next(out[base+i+hashWindow])
			i++
		}
	}

	if base < lenOut {
		delta = putInt(delta, uint32(lenOut-base))
		delta = append(delta, ':')
		delta = append(delta, out[base:lenOut]...)
	}

	delta = putInt(delta, checksum(out))
	delta = append(delta, ';')
	return delta
}

// AppliedSize returns the target size a delta claims to produce,
// without applying it.
func AppliedSize(dl []byte) (int64, error) {
	if len(dl) < 2 {
		return 0, errs.New(errs.KindMisuse, "delta: too short to carry a size prefix")
	}
	size, n := getInt(dl)
	if n >= len(dl) || dl[n] != '\n' {
		return 0, errs.New(errs.KindDeltaInvalidTerminator, "delta: size integer not terminated by newline")
	}
	return int64(size), nil
}

// Apply replays delta against src, returning the reconstructed target.
// It validates the trailing checksum command; ApplyUnchecked skips that
// check.
func Apply(src, dl []byte) ([]byte, error) {
	return apply(src, dl, true)
}

// ApplyUnchecked replays delta against src like Apply, but skips the
// trailing checksum comparison. Config.VerifyDeltaChecksum gates which
// of the two a content.Store calls; see its doc comment.
func ApplyUnchecked(src, dl []byte) ([]byte, error) {
	return apply(src, dl, false)
}

func apply(src, dl []byte, verifyChecksum bool) ([]byte, error) {
	limit, n := getInt(dl)
	if n >= len(dl) || dl[n] != '\n' {
		return nil, errs.New(errs.KindDeltaInvalidTerminator, "delta: size integer not terminated by newline")
	}
	dl = dl[n+1:]

	out := make([]byte, 0, limit)
	var total uint64

	for len(dl) > 0 {
		cnt, n := getInt(dl)
		if n == 0 {
			return nil, errs.New(errs.KindDeltaInvalidOp, "delta: expected an integer operand")
		}
		dl = dl[n:]
		if len(dl) == 0 {
			break
		}
		switch dl[0] {
		case '@':
			dl = dl[1:]
			ofst, n := getInt(dl)
			dl = dl[n:]
			if len(dl) > 0 && dl[0] != ',' {
				return nil, errs.New(errs.KindDeltaInvalidTerminator, "delta: copy command not terminated by ','")
			}
			dl = dl[1:]
			total += cnt
			if total > limit {
				return nil, errs.New(errs.KindRange, "delta: copy exceeds output file size")
			}
			if ofst+cnt > uint64(len(src)) {
				return nil, errs.New(errs.KindRange, "delta: copy extends past end of input")
			}
			out = append(out, src[ofst:ofst+cnt]...)

		case ':':
			dl = dl[1:]
			total += cnt
			if total > limit {
				return nil, errs.New(errs.KindRange, "delta: insert command gives an output larger than predicted")
			}
			if cnt > uint64(len(dl)) {
				return nil, errs.New(errs.KindRange, "delta: insert count exceeds size of delta")
			}
			out = append(out, dl[:cnt]...)
			dl = dl[cnt:]

		case ';':
			if verifyChecksum && uint32(cnt) != checksum(out) {
				return nil, errs.New(errs.KindChecksumMismatch, "delta: bad checksum")
			}
			if total != limit {
				return nil, errs.New(errs.KindSizeMismatch, "delta: generated size does not match predicted size")
			}
			return out, nil

		default:
			return nil, errs.New(errs.KindDeltaInvalidOp, "delta: unknown delta operator %q", string(dl[0]))
		}
	}
	return nil, errs.New(errs.KindDeltaInvalidTerminator, "delta: unterminated delta")
}

// IsDelta reports whether b looks like a well-formed delta header: a
// base-64 size integer followed by a newline.
func IsDelta(b []byte) bool {
	_, n := getInt(b)
	return n > 0 && n < len(b) && b[n] == '\n'
}
