// Package alignment regenerates BLAST's fixed-width pairwise alignment text
// from the raw qseq/midline/hseq tracks of an HSP.
package alignment

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// LineWidth is the number of alignment columns per block.
const LineWidth = 52

const gap = '-'

// Tracks is the renderer input: three equal-length tracks plus the starting
// coordinates. HitReverse selects decrementing hit coordinates.
type Tracks struct {
	Query      string
	Midline    string
	Hit        string
	QueryFrom  int
	HitFrom    int
	HitReverse bool
}

// FromHSP extracts renderer input from a built HSP. Missing coordinates count as 0.
func FromHSP(h *blast.HSP) Tracks {
	return Tracks{
		Query:      h.QSeq,
		Midline:    h.Midline,
		Hit:        h.HSeq,
		QueryFrom:  deref(h.QueryFrom),
		HitFrom:    deref(h.HitFrom),
		HitReverse: h.ReverseStrand(),
	}
}

// RenderHSP renders the alignment block of h.
func RenderHSP(h *blast.HSP) string {
	return Render(FromHSP(h))
}

// counter tracks the running coordinate of one track across chunks.
type counter struct {
	pos  int
	step int
}

// advance consumes chunk and returns the displayed start and end coordinates.
// The end is inclusive of the last residue, so it sits one step back from the
// new position.
func (c *counter) advance(chunk string) (start, end int) {
	start = c.pos
	c.pos += c.step * residues(chunk)
	return start, c.pos - c.step
}

type row struct {
	query  string
	mid    string
	hit    string
	qStart string
	qEnd   string
	hStart string
	hEnd   string
}

// Render produces query/midline/hit lines in blocks of LineWidth columns,
// blocks separated by a blank line. An empty alignment renders as "".
func Render(t Tracks) string {
	queryChunks := split(t.Query)
	midChunks := split(t.Midline)
	hitChunks := split(t.Hit)
	if len(queryChunks) == 0 {
		return ""
	}

	q := counter{pos: t.QueryFrom, step: 1}
	h := counter{pos: t.HitFrom, step: 1}
	if t.HitReverse {
		h.step = -1
	}

	rows := make([]row, len(queryChunks))
	width := 0
	for i, qc := range queryChunks {
		hc := chunkAt(hitChunks, i)
		qs, qe := q.advance(qc)
		hs, he := h.advance(hc)
		r := row{
			query:  qc,
			mid:    chunkAt(midChunks, i),
			hit:    hc,
			qStart: strconv.Itoa(qs),
			qEnd:   strconv.Itoa(qe),
			hStart: strconv.Itoa(hs),
			hEnd:   strconv.Itoa(he),
		}
		width = max(width, len(r.qStart), len(r.qEnd), len(r.hStart), len(r.hEnd))
		rows[i] = r
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeLine(&b, width, r.qStart, r.query, r.qEnd)
		writeLine(&b, width, "", r.mid, "")
		writeLine(&b, width, r.hStart, r.hit, r.hEnd)
	}
	return b.String()
}

func writeLine(b *strings.Builder, width int, start, chunk, end string) {
	b.WriteString(start)
	b.WriteString(strings.Repeat(" ", width-len(start)+2))
	b.WriteString(chunk)
	b.WriteString("  ")
	b.WriteString(end)
	b.WriteByte('\n')
}

// split cuts s into consecutive chunks of at most LineWidth bytes.
func split(s string) []string {
	if s == "" {
		return nil
	}
	chunks := make([]string, 0, (len(s)+LineWidth-1)/LineWidth)
	for off := 0; off < len(s); off += LineWidth {
		chunks = append(chunks, s[off:min(off+LineWidth, len(s))])
	}
	return chunks
}

func chunkAt(chunks []string, i int) string {
	if i < len(chunks) {
		return chunks[i]
	}
	return ""
}

// residues counts non-gap characters.
func residues(chunk string) int {
	return len(chunk) - strings.Count(chunk, string(gap))
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
