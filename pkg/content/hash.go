package content

import "golang.org/x/crypto/sha3"

// Hash returns an artifact's content hash: SHA3-256, hex-encoded,
// matching original_source/src/sha3.c's role as fossil's modern
// artifact hash (the 64-hex-char form pkg/deck's hash validation
// accepts alongside the legacy 40-char SHA1 form).
func Hash(data []byte) string {
	sum := sha3.Sum256(data)
	const digits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, c := range sum {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
