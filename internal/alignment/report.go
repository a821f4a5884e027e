package alignment

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// Highlighter decorates hit definition lines. Nil leaves them plain.
type Highlighter func(string) string

// WriteHit writes a BLAST-style pairwise section for h: the definition line,
// then a score summary and the rendered alignment for every HSP.
// HSPs without a stored alignment are rendered on the fly.
func WriteHit(w io.Writer, h *blast.Hit, hl Highlighter) error {
	var b strings.Builder

	def := ">" + strings.TrimSpace(h.ID+" "+h.Definition)
	if hl != nil {
		def = hl(def)
	}
	b.WriteString(def)
	b.WriteByte('\n')
	if h.Length > 0 {
		fmt.Fprintf(&b, "Length=%d\n", h.Length)
	}

	for i := range h.HSPs {
		hsp := &h.HSPs[i]
		b.WriteByte('\n')
		if line := scoreLine(hsp); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if line := identityLine(hsp); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if hsp.ReverseStrand() {
			b.WriteString(" Strand=Plus/Minus\n")
		}
		b.WriteByte('\n')

		text := hsp.Alignment
		if text == "" {
			text = RenderHSP(hsp)
		}
		b.WriteString(text)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func scoreLine(h *blast.HSP) string {
	var parts []string
	if h.BitScore != nil {
		s := " Score = " + strconv.FormatFloat(*h.BitScore, 'f', 1, 64) + " bits"
		if h.Score != nil {
			s += " (" + strconv.FormatFloat(*h.Score, 'f', -1, 64) + ")"
		}
		parts = append(parts, s)
	}
	if h.EValue != nil {
		parts = append(parts, "  Expect = "+strconv.FormatFloat(*h.EValue, 'g', 2, 64))
	}
	return strings.Join(parts, ",")
}

func identityLine(h *blast.HSP) string {
	if h.AlignLen == nil || *h.AlignLen == 0 {
		return ""
	}
	n := *h.AlignLen
	var parts []string
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"Identities", h.Identity},
		{"Positives", h.Positive},
		{"Gaps", h.Gaps},
	} {
		if f.v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = %d/%d (%d%%)", f.name, *f.v, n, *f.v*100/n))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, ", ")
}
