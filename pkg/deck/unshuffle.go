package deck

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"sort"
)

// Unshuffle assembles the deck's canonical card-stream bytes: cards in
// ascending letter order, F-cards sorted by name, T-cards sorted by
// (name, target), fields fossilized, and a trailing Z-card carrying
// the MD5 of everything before it. This is the save pipeline's first
// step.
func (d *Deck) Unshuffle() []byte {
	var buf bytes.Buffer

	if d.A.Filename != "" {
		fmt.Fprintf(&buf, "A %s %s", Fossilize([]byte(d.A.Filename)), d.A.Target)
		if d.A.SrcHash != "" {
			fmt.Fprintf(&buf, " %s", d.A.SrcHash)
		}
		buf.WriteByte('\n')
	}
	if d.B.HasB {
		fmt.Fprintf(&buf, "B %s\n", d.B.BaselineHash)
	}
	if d.HasC {
		fmt.Fprintf(&buf, "C %s\n", Fossilize([]byte(d.C)))
	}
	if d.Kind != KindCluster {
		fmt.Fprintf(&buf, "D %s\n", formatFloat(d.D))
	}
	if d.E.UUID != "" {
		fmt.Fprintf(&buf, "E %s %s\n", formatFloat(d.E.Timestamp), d.E.UUID)
	}

	sortedF := append([]FCard(nil), d.F...)
	sort.Slice(sortedF, func(i, j int) bool { return sortedF[i].Name < sortedF[j].Name })
	for _, fc := range sortedF {
		fmt.Fprintf(&buf, "F %s", Fossilize([]byte(fc.Name)))
		if fc.Hash != "" || fc.Perm != "" || fc.PriorName != "" {
			fmt.Fprintf(&buf, " %s", fc.Hash)
		}
		if fc.Perm != "" || fc.PriorName != "" {
			fmt.Fprintf(&buf, " %s", fc.Perm)
		}
		if fc.PriorName != "" {
			fmt.Fprintf(&buf, " %s", Fossilize([]byte(fc.PriorName)))
		}
		buf.WriteByte('\n')
	}

	if d.G != "" {
		fmt.Fprintf(&buf, "G %s\n", d.G)
	}
	if d.HasH {
		fmt.Fprintf(&buf, "H %s\n", Fossilize([]byte(d.H)))
	}
	if d.HasI {
		fmt.Fprintf(&buf, "I %s\n", d.I)
	}
	for _, jc := range d.J {
		name := jc.Field
		if jc.Remove {
			name = "-" + name
		} else {
			name = "+" + name
		}
		if jc.Value != "" {
			fmt.Fprintf(&buf, "J %s %s\n", name, Fossilize([]byte(jc.Value)))
		} else {
			fmt.Fprintf(&buf, "J %s\n", name)
		}
	}
	if d.K != "" {
		fmt.Fprintf(&buf, "K %s\n", d.K)
	}
	if d.L != "" {
		fmt.Fprintf(&buf, "L %s\n", Fossilize([]byte(d.L)))
	}
	for _, m := range d.M {
		fmt.Fprintf(&buf, "M %s\n", m)
	}
	if d.HasN {
		fmt.Fprintf(&buf, "N %s\n", Fossilize([]byte(d.N)))
	}
	for _, p := range d.P {
		fmt.Fprintf(&buf, "P %s\n", p)
	}
	for _, qc := range d.Q {
		sign := "+"
		if qc.Backout {
			sign = "-"
		}
		if qc.Baseline != "" {
			fmt.Fprintf(&buf, "Q %s%s %s\n", sign, qc.Target, qc.Baseline)
		} else {
			fmt.Fprintf(&buf, "Q %s%s\n", sign, qc.Target)
		}
	}
	if d.HasR {
		fmt.Fprintf(&buf, "R %s\n", d.R)
	}

	sortedT := append([]TCard(nil), d.T...)
	sort.Slice(sortedT, func(i, j int) bool {
		if sortedT[i].Name != sortedT[j].Name {
			return sortedT[i].Name < sortedT[j].Name
		}
		return sortedT[i].Target < sortedT[j].Target
	})
	for _, tc := range sortedT {
		fmt.Fprintf(&buf, "T %s%s %s", tc.Prefix, Fossilize([]byte(tc.Name)), tc.Target)
		if tc.Value != "" {
			fmt.Fprintf(&buf, " %s", Fossilize([]byte(tc.Value)))
		}
		buf.WriteByte('\n')
	}

	if d.HasU {
		fmt.Fprintf(&buf, "U %s\n", Fossilize([]byte(d.U)))
	}
	if d.HasW {
		fmt.Fprintf(&buf, "W %d\n", len(d.W))
		buf.Write(d.W)
		buf.WriteByte('\n')
	}

	sum := md5.Sum(buf.Bytes())
	fmt.Fprintf(&buf, "Z %s\n", hexLower(sum[:]))
	return buf.Bytes()
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

func hexLower(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
