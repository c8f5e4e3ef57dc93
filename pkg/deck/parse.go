package deck

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cuemby/stow/pkg/errs"
)

// Parse reads a byte buffer as a structural artifact: single-pass,
// left-to-right, one card at a time, per the parse contract. It
// enforces ascending card-letter order, per-card cardinality, hash
// well-formedness, F-card/T-card sort order, and the trailing Z-card
// MD5. A Z-card mismatch means the buffer is not a structural
// artifact at all (errs.KindChecksumMismatch); the caller may still
// keep it as opaque content.
func Parse(data []byte) (*Deck, error) {
	d := &Deck{}
	seen := map[byte]int{}

	pos := 0
	var lastLetter byte
	var lastFName string
	var seenF bool
	var lastTName, lastTTarget string
	var seenT bool
	zLineStart := -1

	for pos < len(data) {
		lineEnd := bytes.IndexByte(data[pos:], '\n')
		if lineEnd < 0 {
			return nil, errs.New(errs.KindMalformedArtifact, "unterminated card at offset %d", pos)
		}
		lineEnd += pos
		line := data[pos:lineEnd]
		if len(line) < 1 {
			return nil, errs.New(errs.KindMalformedArtifact, "empty card line at offset %d", pos)
		}
		letter := line[0]

		if letter == 'Z' {
			zLineStart = pos
		}

		if bytes.IndexByte(allowedLetters, letter) < 0 {
			return nil, errs.New(errs.KindMalformedArtifact, "unknown card letter %q", string(letter))
		}
		if letter < lastLetter {
			return nil, errs.New(errs.KindMalformedArtifact, "card %q out of order after %q", string(letter), string(lastLetter))
		}
		if letter == lastLetter && !isMultiCard(letter) {
			return nil, errs.New(errs.KindMalformedArtifact, "card %q may appear at most once", string(letter))
		}
		seen[letter]++
		lastLetter = letter

		var fields []string
		if len(line) > 1 {
			if line[1] != ' ' {
				return nil, errs.New(errs.KindMalformedArtifact, "card %q missing field separator", string(letter))
			}
			fields = strings.Split(string(line[2:]), " ")
		}

		switch letter {
		case 'A':
			if len(fields) < 2 {
				return nil, errs.New(errs.KindMalformedArtifact, "A-card needs filename and target")
			}
			d.A.Filename = string(Defossilize([]byte(fields[0])))
			d.A.Target = fields[1]
			if len(fields) > 2 {
				d.A.SrcHash = fields[2]
				if !validHash(d.A.SrcHash) {
					return nil, errs.New(errs.KindMalformedArtifact, "A-card src hash malformed")
				}
			}
		case 'B':
			if len(fields) < 1 || !validHash(fields[0]) {
				return nil, errs.New(errs.KindMalformedArtifact, "B-card hash malformed")
			}
			d.B.BaselineHash = fields[0]
			d.B.HasB = true
		case 'C':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "C-card missing comment")
			}
			d.C = string(Defossilize([]byte(fields[0])))
			d.HasC = true
		case 'D':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "D-card missing mtime")
			}
			v, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, errs.Wrap(errs.KindMalformedArtifact, err, "D-card mtime")
			}
			d.D = v
		case 'E':
			if len(fields) < 2 {
				return nil, errs.New(errs.KindMalformedArtifact, "E-card needs timestamp and uuid")
			}
			v, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, errs.Wrap(errs.KindMalformedArtifact, err, "E-card timestamp")
			}
			d.E.Timestamp = v
			d.E.UUID = fields[1]
		case 'F':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "F-card missing name")
			}
			name := string(Defossilize([]byte(fields[0])))
			if seenF && name <= lastFName {
				return nil, errs.New(errs.KindMalformedArtifact, "F-cards not in ascending order: %q after %q", name, lastFName)
			}
			lastFName = name
			seenF = true
			fc := FCard{Name: name}
			if len(fields) > 1 {
				fc.Hash = fields[1]
				if fc.Hash != "" && !validHash(fc.Hash) {
					return nil, errs.New(errs.KindMalformedArtifact, "F-card hash malformed")
				}
			}
			if len(fields) > 2 {
				fc.Perm = fields[2]
			}
			if len(fields) > 3 {
				fc.PriorName = string(Defossilize([]byte(fields[3])))
			}
			d.F = append(d.F, fc)
		case 'G':
			if len(fields) < 1 || !validHash(fields[0]) {
				return nil, errs.New(errs.KindMalformedArtifact, "G-card hash malformed")
			}
			d.G = fields[0]
		case 'H':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "H-card missing title")
			}
			d.H = string(Defossilize([]byte(fields[0])))
			d.HasH = true
		case 'I':
			if len(fields) < 1 || !validHash(fields[0]) {
				return nil, errs.New(errs.KindMalformedArtifact, "I-card hash malformed")
			}
			d.I = fields[0]
			d.HasI = true
		case 'J':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "J-card missing field name")
			}
			jc := JCard{Field: fields[0]}
			if strings.HasPrefix(jc.Field, "-") {
				jc.Remove = true
				jc.Field = jc.Field[1:]
			} else if strings.HasPrefix(jc.Field, "+") {
				jc.Field = jc.Field[1:]
			}
			if len(fields) > 1 {
				jc.Value = string(Defossilize([]byte(fields[1])))
			}
			d.J = append(d.J, jc)
		case 'K':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "K-card missing ticket uuid")
			}
			d.K = fields[0]
		case 'L':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "L-card missing page name")
			}
			d.L = string(Defossilize([]byte(fields[0])))
		case 'M':
			if len(fields) < 1 || !validHash(fields[0]) {
				return nil, errs.New(errs.KindMalformedArtifact, "M-card hash malformed")
			}
			d.M = append(d.M, fields[0])
		case 'N':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "N-card missing mimetype")
			}
			d.N = string(Defossilize([]byte(fields[0])))
			d.HasN = true
		case 'P':
			for _, f := range fields {
				if !validHash(f) {
					return nil, errs.New(errs.KindMalformedArtifact, "P-card hash malformed")
				}
				d.P = append(d.P, f)
			}
		case 'Q':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "Q-card missing target")
			}
			qc := QCard{Target: fields[0]}
			if strings.HasPrefix(qc.Target, "-") {
				qc.Backout = true
				qc.Target = qc.Target[1:]
			} else if strings.HasPrefix(qc.Target, "+") {
				qc.Target = qc.Target[1:]
			}
			if !validHash(qc.Target) {
				return nil, errs.New(errs.KindMalformedArtifact, "Q-card target malformed")
			}
			if len(fields) > 1 {
				qc.Baseline = fields[1]
			}
			d.Q = append(d.Q, qc)
		case 'R':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "R-card missing md5")
			}
			d.R = fields[0]
			d.HasR = true
		case 'T':
			if len(fields) < 2 {
				return nil, errs.New(errs.KindMalformedArtifact, "T-card needs prefix+name and target")
			}
			raw := fields[0]
			tc := TCard{Target: fields[1]}
			switch raw[0] {
			case '+', '-', '*':
				tc.Prefix = string(raw[0])
				tc.Name = string(Defossilize([]byte(raw[1:])))
			default:
				return nil, errs.New(errs.KindMalformedArtifact, "T-card missing +/-/* prefix")
			}
			if len(fields) > 2 {
				tc.Value = string(Defossilize([]byte(fields[2])))
			}
			if seenT && (tc.Name < lastTName || (tc.Name == lastTName && tc.Target < lastTTarget)) {
				return nil, errs.New(errs.KindMalformedArtifact, "T-cards not in ascending (name,target) order")
			}
			lastTName, lastTTarget = tc.Name, tc.Target
			seenT = true
			d.T = append(d.T, tc)
		case 'U':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "U-card missing user")
			}
			d.U = string(Defossilize([]byte(fields[0])))
			d.HasU = true
		case 'W':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "W-card missing length")
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 0 {
				return nil, errs.New(errs.KindMalformedArtifact, "W-card length malformed")
			}
			bodyStart := lineEnd + 1
			if bodyStart+n > len(data) {
				return nil, errs.New(errs.KindMalformedArtifact, "W-card body truncated")
			}
			d.W = data[bodyStart : bodyStart+n]
			d.HasW = true
			if bodyStart+n >= len(data) || data[bodyStart+n] != '\n' {
				return nil, errs.New(errs.KindMalformedArtifact, "W-card body missing trailing newline")
			}
			pos = bodyStart + n + 1
			continue
		case 'Z':
			if len(fields) < 1 {
				return nil, errs.New(errs.KindMalformedArtifact, "Z-card missing md5")
			}
			sum, err := hex.DecodeString(fields[0])
			if err != nil || len(sum) != 16 {
				return nil, errs.New(errs.KindMalformedArtifact, "Z-card md5 malformed")
			}
			got := md5.Sum(data[:zLineStart])
			if !bytes.Equal(got[:], sum) {
				return nil, errs.New(errs.KindChecksumMismatch, "Z-card md5 mismatch: not a structural artifact")
			}
		}

		pos = lineEnd + 1
	}

	if lastLetter != 'Z' {
		return nil, errs.New(errs.KindMalformedArtifact, "artifact missing trailing Z-card")
	}

	d.Kind = inferKind(d)
	if err := validateCardinality(d, seen); err != nil {
		return nil, err
	}
	return d, nil
}

func isMultiCard(letter byte) bool {
	switch letter {
	case 'F', 'J', 'M', 'P', 'Q', 'T':
		return true
	}
	return false
}

// inferKind guesses the artifact kind from which distinguishing cards
// are present. Real fossil repositories usually know the expected
// kind ahead of the parse (e.g. "this rid is a checkin"); this
// fallback exists for generic card-stream inspection (parse_test,
// cmd/stow's deck-parse subcommand) where no such hint is available.
func inferKind(d *Deck) Kind {
	switch {
	case d.A.Filename != "":
		return KindAttachment
	case d.G != "":
		return KindForum
	case d.K != "":
		return KindTicket
	case d.L != "":
		return KindWiki
	case d.E.UUID != "":
		return KindEvent
	case len(d.M) > 0:
		return KindCluster
	case len(d.F) > 0 || d.B.HasB || d.HasR || len(d.Q) > 0:
		return KindCheckin
	default:
		return KindControl
	}
}

func validateCardinality(d *Deck, seen map[byte]int) error {
	for _, letter := range allowedLetters {
		count := seen[letter]
		switch presenceFor(d.Kind, letter) {
		case forbidden:
			if count > 0 {
				return errs.New(errs.KindMalformedArtifact, "card %q forbidden on %s artifact", string(letter), d.Kind)
			}
		case required:
			if count != 1 {
				return errs.New(errs.KindMalformedArtifact, "card %q required exactly once on %s artifact, got %d", string(letter), d.Kind, count)
			}
		case optional:
			if count > 1 {
				return errs.New(errs.KindMalformedArtifact, "card %q allowed at most once on %s artifact, got %d", string(letter), d.Kind, count)
			}
		case optionalMulti:
			// any count, including 0, is fine
		}
	}
	return nil
}
