package deck

import (
	"encoding/hex"

	"github.com/cuemby/stow/pkg/errs"
)

// Fossilize escapes bytes that are not legal inside an unquoted card
// field: NUL, space, tab, LF, CR, VT, FF, and the backslash itself
// each become a two-byte `\x` sequence. Ported from
// original_source/src/encode.c's fsl_bytes_fossilize.
func Fossilize(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, c := range in {
		switch c {
		case 0:
			out = append(out, '\\', '0')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case ' ':
			out = append(out, '\\', 's')
		case '\t':
			out = append(out, '\\', 't')
		case '\r':
			out = append(out, '\\', 'r')
		case '\v':
			out = append(out, '\\', 'v')
		case '\f':
			out = append(out, '\\', 'f')
		default:
			out = append(out, c)
		}
	}
	return out
}

// Defossilize reverses Fossilize. An escape byte not in the known set
// passes through literally, matching fsl_bytes_defossilize's default
// case.
func Defossilize(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != '\\' || i+1 >= len(in) {
			out = append(out, c)
			continue
		}
		i++
		switch in[i] {
		case 'n':
			out = append(out, '\n')
		case 's':
			out = append(out, ' ')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'v':
			out = append(out, '\v')
		case 'f':
			out = append(out, '\f')
		case '0':
			out = append(out, 0)
		case '\\':
			out = append(out, '\\')
		default:
			out = append(out, in[i])
		}
	}
	return out
}

// EncodeHex16 lowercases-hex-encodes b, the form every card hash field
// uses (fsl_bytes_fossilize's sibling, fsl_encode16, in
// original_source/src/encode.c).
func EncodeHex16(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex16 is the inverse of EncodeHex16.
func DecodeHex16(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.KindRange, err, "decode hex16 %q", s)
	}
	return b, nil
}

// validHash reports whether s is a well-formed artifact hash: 40 hex
// digits (SHA1-length) or 64 hex digits (SHA3-256-length), all
// lowercase, per the parse contract's hash well-formedness check.
func validHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
