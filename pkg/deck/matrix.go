package deck

// presence classifies whether a card letter may appear on a given
// artifact Kind, and how many times.
type presence int

const (
	forbidden presence = iota
	optional           // 0 or 1
	required           // exactly 1
	optionalMulti      // 0..n
)

// matrix is the static {required, optional, forbidden} table the
// parser and the save path both check against. It is a judgment call
// built from the card inventory table in the specification, since no
// original_source file enumerates it directly; see DESIGN.md.
var matrix = map[Kind]map[byte]presence{
	KindCheckin: {
		'B': optional, 'C': optional, 'D': required, 'F': optionalMulti,
		'N': forbidden, 'P': optionalMulti, 'Q': optionalMulti, 'R': optional,
		'T': optionalMulti, 'U': optional, 'Z': required,
	},
	KindControl: {
		'D': required, 'P': optionalMulti, 'T': optionalMulti, 'U': optional,
		'Z': required,
	},
	KindWiki: {
		'C': optional, 'D': required, 'L': required, 'N': optional,
		'P': optionalMulti, 'U': optional, 'W': required, 'Z': required,
	},
	KindTicket: {
		'D': required, 'J': optionalMulti, 'K': required, 'U': optional,
		'Z': required,
	},
	KindAttachment: {
		'A': required, 'D': required, 'N': optional, 'P': optionalMulti,
		'U': optional, 'Z': required,
	},
	KindCluster: {
		'M': optionalMulti, 'Z': required,
	},
	KindEvent: {
		'C': optional, 'D': required, 'E': required, 'N': optional,
		'P': optionalMulti, 'T': optionalMulti, 'U': optional, 'W': required,
		'Z': required,
	},
	KindForum: {
		'C': optional, 'D': required, 'G': required, 'H': optional,
		'I': optional, 'N': optional, 'P': optionalMulti, 'U': optional,
		'W': required, 'Z': required,
	},
}

// allowedLetters is the fixed ascending-order alphabet the parser
// walks. Letters not in this list (O, S, V, X, Y, ...) never appear in
// a card stream.
var allowedLetters = []byte("ABCDEFGHIJKLMNPQRTUWZ")

func presenceFor(kind Kind, letter byte) presence {
	row, ok := matrix[kind]
	if !ok {
		return forbidden
	}
	p, ok := row[letter]
	if !ok {
		return forbidden
	}
	return p
}
