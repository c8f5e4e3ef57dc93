package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFossilizeEscapesReservedBytes(t *testing.T) {
	in := []byte("hello world\tend\n\\x\x00done")
	out := Fossilize(in)
	assert.Equal(t, `hello\sworld\tend\n\\x\0done`, string(out))
}

func TestDefossilizeReversesFossilize(t *testing.T) {
	in := []byte("a b\tc\nd\\e\x00f\r\v\f")
	roundtrip := Defossilize(Fossilize(in))
	assert.Equal(t, in, roundtrip)
}

func TestDefossilizeUnknownEscapePassesThrough(t *testing.T) {
	assert.Equal(t, []byte("aQb"), Defossilize([]byte(`a\Qb`)))
}

func TestValidHashAcceptsSha1AndSha3Lengths(t *testing.T) {
	sha1 := "0123456789abcdef0123456789abcdef01234567"
	sha3 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"
	assert.True(t, validHash(sha1))
	assert.True(t, validHash(sha3))
	assert.False(t, validHash("tooshort"))
	assert.False(t, validHash("0123456789ABCDEF0123456789abcdef01234567"))
}
