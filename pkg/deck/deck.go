// Package deck implements stow's structural artifact format: the
// card-grammar encoding that sits on top of raw content-addressed
// blobs (pkg/content) and gives checkins, tags, wiki pages, tickets,
// technotes, forum posts, attachments, and clusters their typed shape.
//
// There is no single original_source/src file this package ports —
// Fossil's deck/manifest logic lives scattered across its control-flow
// C files rather than in one card.c. This package is grounded on the
// card grammar described in the specification itself plus
// original_source/src/encode.c for the fossilize/defossilize and hex
// encoding primitives every field uses, and on the card-lifecycle
// fragments in original_source/src/tag.c for how T-cards are built and
// read.
package deck

import "fmt"

// Kind identifies one of the eight structural artifact subtypes. The
// cardinality matrix (matrix.go) is keyed on Kind.
type Kind int

const (
	KindCheckin Kind = iota
	KindControl      // tag-change / control artifact
	KindWiki
	KindTicket
	KindAttachment
	KindCluster
	KindEvent // technote
	KindForum
)

func (k Kind) String() string {
	switch k {
	case KindCheckin:
		return "checkin"
	case KindControl:
		return "control"
	case KindWiki:
		return "wiki"
	case KindTicket:
		return "ticket"
	case KindAttachment:
		return "attachment"
	case KindCluster:
		return "cluster"
	case KindEvent:
		return "event"
	case KindForum:
		return "forum"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FCard is one F-card: a file's name, its content hash (empty means
// the file was removed by this manifest), its permission bits, and
// the prior name if the file was renamed.
type FCard struct {
	Name      string
	Hash      string
	Perm      string
	PriorName string
}

// TCard is one T-card: a tag applied or cancelled by this artifact.
// Prefix is "+" (add), "-" (cancel), or "*" (propagating), mirroring
// the tag-card prefix fossil's control artifacts use.
type TCard struct {
	Prefix string
	Name   string
	Target string // hash of the artifact the tag applies to; empty means self
	Value  string
}

// JCard is one J-card: a single ticket field change.
type JCard struct {
	Remove bool // true when field-name is prefixed with '-'
	Field  string
	Value  string
}

// QCard is one Q-card: a cherrypick merge record.
type QCard struct {
	Backout bool // true for "-", false for "+"
	Target  string
	Baseline string
}

// Deck is a fully parsed (or not-yet-saved) structural artifact. Only
// the fields relevant to Kind are populated; Save and Parse both
// enforce that via the cardinality matrix.
type Deck struct {
	Kind Kind
	RID  int64 // set by the caller when known, to skip a lookup on save

	A struct {
		Filename string
		Target   string
		SrcHash  string
	}
	B struct {
		BaselineHash string
		HasB         bool
	}
	C       string // comment, already defossilized
	HasC    bool
	D       float64 // julian day mtime
	E struct {
		Timestamp float64
		UUID      string
	}
	F []FCard
	G string // forum thread-root hash
	H string // forum title
	HasH bool
	I    string // forum in-reply-to hash
	HasI bool
	J []JCard
	K    string // ticket uuid
	L    string // wiki page name
	M    []string
	N    string // MIME type
	HasN bool
	P    []string // parent hashes, first is primary
	Q    []QCard
	R    string // md5 over file contents, R-card form
	HasR bool
	T    []TCard
	U    string // user, defossilized
	HasU bool
	W    []byte // wiki/tech/forum body
	HasW bool
}

// cardCounts tallies how many of each lettered card the deck
// currently holds, for the same cardinality check Parse runs against
// an incoming byte stream, applied here before Save serializes one.
func (d *Deck) cardCounts() map[byte]int {
	counts := map[byte]int{}
	if d.A.Filename != "" {
		counts['A'] = 1
	}
	if d.B.HasB {
		counts['B'] = 1
	}
	if d.HasC {
		counts['C'] = 1
	}
	if d.Kind != KindCluster {
		counts['D'] = 1
	}
	if d.E.UUID != "" {
		counts['E'] = 1
	}
	counts['F'] = len(d.F)
	if d.G != "" {
		counts['G'] = 1
	}
	if d.HasH {
		counts['H'] = 1
	}
	if d.HasI {
		counts['I'] = 1
	}
	counts['J'] = len(d.J)
	if d.K != "" {
		counts['K'] = 1
	}
	if d.L != "" {
		counts['L'] = 1
	}
	counts['M'] = len(d.M)
	if d.HasN {
		counts['N'] = 1
	}
	counts['P'] = len(d.P)
	counts['Q'] = len(d.Q)
	if d.HasR {
		counts['R'] = 1
	}
	counts['T'] = len(d.T)
	if d.HasU {
		counts['U'] = 1
	}
	if d.HasW {
		counts['W'] = 1
	}
	counts['Z'] = 1 // Unshuffle always appends exactly one Z-card
	return counts
}

// IsDeltaManifest reports whether the deck is a checkin manifest
// expressed as a delta against a baseline (B-card present).
func (d *Deck) IsDeltaManifest() bool {
	return d.Kind == KindCheckin && d.B.HasB
}
