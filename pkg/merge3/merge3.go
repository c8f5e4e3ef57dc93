// Package merge3 implements a three-way text merge: given a common
// ancestor and two edited copies, combine both sets of edits into one
// result, marking any region where the two copies touched the same
// lines differently as a conflict.
//
// Ported from original_source/src/merge3.c's fsl_buffer_merge3, which
// computes pivot->v1 and pivot->v2 edit scripts (via the diff engine)
// and walks both simultaneously, emitting whichever side changed a
// region, or both sides bracketed by conflict markers when they
// disagree.
package merge3

import (
	"bytes"

	"github.com/cuemby/stow/pkg/diff"
)

// Markers are the four fixed conflict boundary lines. These match
// Fossil's own markers verbatim and must never change, since tooling
// and muscle memory both depend on the exact text.
var Markers = [4]string{
	"<<<<<<< BEGIN MERGE CONFLICT: local copy shown first <<<<<<<<<<<<<<<",
	"||||||| COMMON ANCESTOR content follows ||||||||||||||||||||||||||||",
	"======= MERGED IN content follows ==================================",
	">>>>>>> END MERGE CONFLICT >>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>",
}

// cursor walks a line slice n lines at a time, same role as the
// original's fsl_buffer cursor.
type cursor struct {
	lines []diff.Line
	pos   int
}

func (c *cursor) copyLines(out *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		if out != nil {
			out.Write(c.lines[c.pos+i].Text)
		}
	}
	c.pos += n
}

func (c *cursor) sameLines(other *cursor, n int) bool {
	for i := 0; i < n; i++ {
		if !bytes.Equal(c.lines[c.pos+i].Text, other.lines[other.pos+i].Text) {
			return false
		}
	}
	return true
}

func toFlat(edits []diff.Triple) []int {
	flat := make([]int, 0, len(edits)*3+3)
	for _, t := range edits {
		flat = append(flat, t.Copy, t.Delete, t.Insert)
	}
	return append(flat, 0, 0, 0)
}

func endsAtCopy(ac []int, i, sz int) bool {
	for sz > 0 && (ac[i] > 0 || ac[i+1] > 0 || ac[i+2] > 0) {
		if ac[i] >= sz {
			return true
		}
		sz -= ac[i]
		if ac[i+1] > sz {
			return false
		}
		sz -= ac[i+1]
		i += 3
	}
	return true
}

func outputOneSide(out *bytes.Buffer, src *cursor, ac []int, i, sz int) int {
	for sz > 0 {
		if ac[i] == 0 && ac[i+1] == 0 && ac[i+2] == 0 {
			break
		}
		if ac[i] >= sz {
			src.copyLines(out, sz)
			ac[i] -= sz
			break
		}
		src.copyLines(out, ac[i])
		src.copyLines(out, ac[i+2])
		sz -= ac[i] + ac[i+1]
		i += 3
	}
	return i
}

func sameEdit(ac1, ac2 []int, i1, i2 int, v1, v2 *cursor) bool {
	if ac1[i1] != ac2[i2] || ac1[i1+1] != ac2[i2+1] || ac1[i1+2] != ac2[i2+2] {
		return false
	}
	return v1.sameLines(v2, ac1[i1+2])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Merge combines pivot->v1 and pivot->v2 edits into one result. It
// returns the merged bytes and the number of conflicting regions
// found (0 means a clean merge).
func Merge(pivot, v1, v2 []byte) ([]byte, int) {
	pivotLines := diff.SplitLines(pivot)
	v1Lines := diff.SplitLines(v1)
	v2Lines := diff.SplitLines(v2)

	ac1 := toFlat(diff.EditScript(pivotLines, v1Lines))
	ac2 := toFlat(diff.EditScript(pivotLines, v2Lines))

	limit1 := len(ac1) - 3
	limit2 := len(ac2) - 3

	cPivot := &cursor{lines: pivotLines}
	cV1 := &cursor{lines: v1Lines}
	cV2 := &cursor{lines: v2Lines}

	var out bytes.Buffer
	conflicts := 0
	i1, i2 := 0, 0

	for i1 < limit1 && i2 < limit2 {
		switch {
		case ac1[i1] > 0 && ac2[i2] > 0:
			nCpy := minInt(ac1[i1], ac2[i2])
			cPivot.copyLines(&out, nCpy)
			cV1.copyLines(nil, nCpy)
			cV2.copyLines(nil, nCpy)
			ac1[i1] -= nCpy
			ac2[i2] -= nCpy

		case ac1[i1] >= ac2[i2+1] && ac1[i1] > 0 && ac2[i2+1]+ac2[i2+2] > 0:
			nDel, nIns := ac2[i2+1], ac2[i2+2]
			cPivot.copyLines(nil, nDel)
			cV1.copyLines(nil, nDel)
			cV2.copyLines(&out, nIns)
			ac1[i1] -= nDel
			i2 += 3

		case ac2[i2] >= ac1[i1+1] && ac2[i2] > 0 && ac1[i1+1]+ac1[i1+2] > 0:
			nDel, nIns := ac1[i1+1], ac1[i1+2]
			cPivot.copyLines(nil, nDel)
			cV2.copyLines(nil, nDel)
			cV1.copyLines(&out, nIns)
			ac2[i2] -= nDel
			i1 += 3

		case sameEdit(ac1, ac2, i1, i2, cV1, cV2):
			nDel, nIns := ac1[i1+1], ac1[i1+2]
			cPivot.copyLines(nil, nDel)
			cV1.copyLines(&out, nIns)
			cV2.copyLines(nil, nIns)
			i1 += 3
			i2 += 3

		default:
			sz := 1
			for !endsAtCopy(ac1, i1, sz) || !endsAtCopy(ac2, i2, sz) {
				sz++
			}
			conflicts++
			writeMarker(&out, 0)
			i1 = outputOneSide(&out, cV1, ac1, i1, sz)
			writeMarker(&out, 1)
			cPivot.copyLines(&out, sz)
			writeMarker(&out, 2)
			i2 = outputOneSide(&out, cV2, ac2, i2, sz)
			writeMarker(&out, 3)
		}

		if i1 < limit1 && ac1[i1] == 0 && ac1[i1+1] == 0 && ac1[i1+2] == 0 {
			i1 += 3
		}
		if i2 < limit2 && ac2[i2] == 0 && ac2[i2+1] == 0 && ac2[i2+2] == 0 {
			i2 += 3
		}
	}

	if i1 < limit1 && ac1[i1+2] > 0 {
		cV1.copyLines(&out, ac1[i1+2])
	} else if i2 < limit2 && ac2[i2+2] > 0 {
		cV2.copyLines(&out, ac2[i2+2])
	}

	return out.Bytes(), conflicts
}

func writeMarker(out *bytes.Buffer, idx int) {
	if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
		out.WriteByte('\n')
	}
	out.WriteString(Markers[idx])
	out.WriteByte('\n')
}

// ContainsConflictMarker reports whether text carries one of the four
// conflict boundary lines on a line by itself.
func ContainsConflictMarker(text []byte) bool {
	for _, line := range diff.SplitLines(text) {
		trimmed := bytes.TrimRight(line.Text, "\r\n")
		for _, m := range Markers {
			if string(trimmed) == m {
				return true
			}
		}
	}
	return false
}
