// Package diff computes and renders line-level differences between two
// byte buffers: the same divide-and-conquer, hash-assisted longest
// common subsequence algorithm stow's teacher corpus does not itself
// need, ported here from original_source/src/diff.c (break_into_lines,
// longestCommonSequence, optimalLCS, diff_step, diff_all).
package diff

import "bytes"

const (
	lengthMaskBits = 13
	lengthMask     = (1 << lengthMaskBits) - 1
)

// Line is one line of input text, including its trailing newline (if
// any) so the original bytes can be reconstructed exactly.
type Line struct {
	Text []byte
}

// dLine is a Line plus the bookkeeping the matching algorithm needs: a
// combined hash/length value and a same-hash bucket chain, exactly as
// DLine carries in the original.
type dLine struct {
	text   []byte
	n      int // comparison length, line bytes 0:n
	hash   uint32
	iNext  int // 1+index of next line in this hash's chain, 0 = end
	iHash  int // 1+index of first line in this bucket's chain, 0 = empty
}

// SplitLines breaks data into lines, keeping line terminators attached
// to each line so concatenating every Line.Text reproduces data.
func SplitLines(data []byte) []Line {
	if len(data) == 0 {
		return nil
	}
	var out []Line
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			out = append(out, Line{Text: data[start : i+1]})
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, Line{Text: data[start:]})
	}
	return out
}

func buildDLines(lines []Line) []dLine {
	n := len(lines)
	a := make([]dLine, n)
	for i, l := range lines {
		text := l.Text
		cmpLen := len(text)
		if cmpLen > 0 && text[cmpLen-1] == '\n' {
			cmpLen--
		}
		var h uint32
		for x := 0; x < cmpLen; x++ {
			h = h ^ (h << 2) ^ uint32(text[x])
		}
		cappedLen := cmpLen
		if cappedLen > lengthMask {
			cappedLen = lengthMask
		}
		h = (h << lengthMaskBits) | uint32(cappedLen)
		a[i] = dLine{text: text, n: cmpLen, hash: h}
		if n > 0 {
			h2 := int(h) % n
			a[i].iNext = a[h2].iHash
			a[h2].iHash = i + 1
		}
	}
	return a
}

func sameDLine(a, b *dLine) bool {
	if a.hash != b.hash {
		return false
	}
	n := int(a.hash & lengthMask)
	if n > len(a.text) || n > len(b.text) {
		n = minInt(len(a.text), len(b.text))
	}
	return bytes.Equal(a.text[:n], b.text[:n])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Triple is one copy/delete/insert edit step, same semantics as a
// triple in the original's flat aEdit[] array: copy Copy lines
// unchanged, then drop Delete lines from the left side, then insert
// Insert lines from the right side.
type Triple struct {
	Copy, Delete, Insert int
}

// context mirrors DContext: the two line arrays under comparison plus
// the edit script being accumulated.
type context struct {
	from, to []dLine
	edits    []int
}

func (c *context) appendTriple(cpy, del, ins int) {
	n := len(c.edits)
	if n >= 3 {
		if c.edits[n-1] == 0 {
			if c.edits[n-2] == 0 {
				c.edits[n-3] += cpy
				c.edits[n-2] += del
				c.edits[n-1] += ins
				return
			}
			if cpy == 0 {
				c.edits[n-2] += del
				c.edits[n-1] += ins
				return
			}
		}
		if cpy == 0 && del == 0 {
			c.edits[n-1] += ins
			return
		}
	}
	c.edits = append(c.edits, cpy, del, ins)
}

// optimalLCS finds the longest exact common subsequence in the given
// ranges via brute force; only used as a fallback for small inputs
// where the hashing heuristic below failed to find anything.
func optimalLCS(c *context, is1, ie1, is2, ie2 int) (sx, ex, sy, ey int) {
	mx := 0
	sxb, syb := is1, is2
	for i := is1; i < ie1-mx; i++ {
		for j := is2; j < ie2-mx; j++ {
			if !sameDLine(&c.from[i], &c.to[j]) {
				continue
			}
			if mx != 0 && !sameDLine(&c.from[i+mx], &c.to[j+mx]) {
				continue
			}
			k := 1
			for i+k < ie1 && j+k < ie2 && sameDLine(&c.from[i+k], &c.to[j+k]) {
				k++
			}
			if k > mx {
				sxb, syb, mx = i, j, k
			}
		}
	}
	return sxb, sxb + mx, syb, syb + mx
}

// longestCommonSequence locates a run of identical lines in both
// ranges using an O(n) hash-chain heuristic, falling back to the exact
// optimalLCS for small ranges when the heuristic finds nothing.
func longestCommonSequence(c *context, is1, ie1, is2, ie2 int) (sx, ex, sy, ey int) {
	span := (ie1 - is1) + (ie2 - is2)
	bestScore := int64(-10000)
	sxb, exb, syb, eyb := is1, is1, is2, is2
	sxp, exp_, syp, eyp := is1, is1, is2, is2
	mid := (ie1 + is1) / 2
	nTo := len(c.to)

	for i := is1; i < ie1; i++ {
		if nTo == 0 {
			break
		}
		j := c.to[int(c.from[i].hash)%nTo].iHash
		limit := 0
		for j > 0 && (j-1 < is2 || j >= ie2 || !sameDLine(&c.from[i], &c.to[j-1])) {
			if limit > 10 {
				j = 0
				break
			}
			limit++
			j = c.to[j-1].iNext
		}
		if j == 0 {
			continue
		}
		sX := i
		sY := j - 1
		if i < exb && sY >= syb && sY < eyb {
			continue
		}
		if i < exp_ && sY >= syp && sY < eyp {
			continue
		}

		n := minInt(sX-is1, sY-is2)
		k := 0
		for k < n && sameDLine(&c.from[sX-1-k], &c.to[sY-1-k]) {
			k++
		}
		sX -= k
		sY -= k

		eX := i + 1
		eY := j
		n = minInt(ie1-eX, ie2-eY)
		k = 0
		for k < n && sameDLine(&c.from[eX+k], &c.to[eY+k]) {
			k++
		}
		eX += k
		eY += k

		skew := (sX - is1) - (sY - is2)
		if skew < 0 {
			skew = -skew
		}
		dist := (sX+eX)/2 - mid
		if dist < 0 {
			dist = -dist
		}
		score := int64(eX-sX)*int64(span) - int64(skew+dist)
		if score > bestScore {
			bestScore = score
			sxb, syb, exb, eyb = sX, sY, eX, eY
		} else if eX > exp_ {
			sxp, syp, exp_, eyp = sX, sY, eX, eY
		}
	}

	if sxb == exb && int64(ie1-is1)*int64(ie2-is2) < 400 {
		return optimalLCS(c, is1, ie1, is2, ie2)
	}
	return sxb, exb, syb, eyb
}

func diffStep(c *context, is1, ie1, is2, ie2 int) {
	if ie1 <= is1 {
		if ie2 > is2 {
			c.appendTriple(0, 0, ie2-is2)
		}
		return
	}
	if ie2 <= is2 {
		c.appendTriple(0, ie1-is1, 0)
		return
	}

	sx, ex, sy, ey := longestCommonSequence(c, is1, ie1, is2, ie2)
	if ex > sx {
		diffStep(c, is1, sx, is2, sy)
		c.appendTriple(ex-sx, 0, 0)
		diffStep(c, ex, ie1, ey, ie2)
	} else {
		c.appendTriple(0, ie1-is1, ie2-is2)
	}
}

func diffAll(c *context) {
	ie1, ie2 := len(c.from), len(c.to)
	for ie1 > 0 && ie2 > 0 && sameDLine(&c.from[ie1-1], &c.to[ie2-1]) {
		ie1--
		ie2--
	}
	mnE := minInt(ie1, ie2)
	is := 0
	for is < mnE && sameDLine(&c.from[is], &c.to[is]) {
		is++
	}

	if is > 0 {
		c.appendTriple(is, 0, 0)
	}
	diffStep(c, is, ie1, is, ie2)
	if ie1 < len(c.from) {
		c.appendTriple(len(c.from)-ie1, 0, 0)
	}
	c.edits = append(c.edits, 0, 0, 0)
}

// EditScript computes the copy/delete/insert edit script that turns a
// into b.
func EditScript(a, b []Line) []Triple {
	c := &context{from: buildDLines(a), to: buildDLines(b)}
	diffAll(c)
	var out []Triple
	for i := 0; i+2 < len(c.edits); i += 3 {
		cpy, del, ins := c.edits[i], c.edits[i+1], c.edits[i+2]
		if cpy == 0 && del == 0 && ins == 0 {
			break
		}
		out = append(out, Triple{Copy: cpy, Delete: del, Insert: ins})
	}
	return out
}
