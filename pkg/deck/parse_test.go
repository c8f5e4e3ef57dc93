package deck

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/cuemby/stow/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hash1(b byte) string {
	return strings.Repeat(string(rune('a'+int(b)%6)), 39) + "0"
}

func TestUnshuffleThenParseRoundTrips(t *testing.T) {
	d := &Deck{Kind: KindCheckin}
	d.D = 2460000.5
	d.HasC = true
	d.C = "a comment with spaces"
	d.HasU = true
	d.U = "alice"
	d.P = []string{hash1(1)}
	d.F = []FCard{
		{Name: "b.txt", Hash: hash1(2)},
		{Name: "a.txt", Hash: hash1(3)},
	}
	d.T = []TCard{
		{Prefix: "*", Name: "branch", Target: "", Value: "dev"},
	}

	raw := d.Unshuffle()

	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindCheckin, got.Kind)
	assert.Equal(t, "a comment with spaces", got.C)
	assert.Equal(t, "alice", got.U)
	require.Len(t, got.F, 2)
	assert.Equal(t, "a.txt", got.F[0].Name) // sorted ascending by Unshuffle
	assert.Equal(t, "b.txt", got.F[1].Name)
	require.Len(t, got.P, 1)
	assert.Equal(t, hash1(1), got.P[0])
	require.Len(t, got.T, 1)
	assert.Equal(t, "branch", got.T[0].Name)
}

func TestParseRejectsOutOfOrderCards(t *testing.T) {
	raw := []byte("D 123.0\nC hello\nZ " + strings.Repeat("0", 32) + "\n")
	_, err := Parse(raw)
	assert.Error(t, err)
}

func TestParseDetectsZCardMismatch(t *testing.T) {
	raw := []byte("D 123.0\nZ " + strings.Repeat("0", 32) + "\n")
	_, err := Parse(raw)
	assert.Error(t, err)
}

func TestParseWCardReadsRawBody(t *testing.T) {
	d := &Deck{Kind: KindWiki}
	d.D = 1.0
	d.L = "HomePage"
	d.HasW = true
	d.W = []byte("wiki body\nwith a newline")

	raw := d.Unshuffle()
	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "HomePage", got.L)
	assert.Equal(t, []byte("wiki body\nwith a newline"), got.W)
}

func TestParseCatchesOutOfOrderTCardsWithEmptyName(t *testing.T) {
	// Both T-cards have an empty name (a legitimate value, not a
	// "no T-card seen yet" sentinel); the second's target sorts before
	// the first's, so this must be rejected as out of ascending order.
	body := "D 1.0\nT + bbbb\nT + aaaa\n"
	sum := md5.Sum([]byte(body))
	raw := []byte(body + "Z " + hex.EncodeToString(sum[:]) + "\n")

	_, err := Parse(raw)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindMalformedArtifact))
}

func TestParseAllowsSecondTCardWithEmptyNameInOrder(t *testing.T) {
	body := "D 1.0\nT + aaaa\nT + bbbb\n"
	sum := md5.Sum([]byte(body))
	raw := []byte(body + "Z " + hex.EncodeToString(sum[:]) + "\n")

	got, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, got.T, 2)
	assert.Equal(t, "aaaa", got.T[0].Target)
	assert.Equal(t, "bbbb", got.T[1].Target)
}

func TestParseRejectsForbiddenCardForKind(t *testing.T) {
	// A cluster artifact (M-cards only) carrying a D-card, which the
	// matrix forbids for KindCluster. The Z-card MD5 is computed over
	// the body itself so the cardinality check, not the checksum, is
	// what trips.
	body := "D 1.0\nM " + hash1(1) + "\n"
	sum := md5.Sum([]byte(body))
	raw := []byte(body + "Z " + hex.EncodeToString(sum[:]) + "\n")

	_, err := Parse(raw)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindMalformedArtifact))
}
