package blastxml

import (
	"io"

	"github.com/kailas-cloud/blastxml/internal/alignment"
	iblastxml "github.com/kailas-cloud/blastxml/internal/blastxml"
	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// Report model.
type (
	Report     = blast.Report
	Summary    = blast.Summary
	Header     = blast.Header
	Parameters = blast.Parameters
	Iteration  = blast.Iteration
	Statistics = blast.Statistics
	Hit        = blast.Hit
	HSP        = blast.HSP
	Criterion  = blast.Criterion
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMalformedInput  = domain.ErrMalformedInput
	ErrFieldCoercion   = domain.ErrFieldCoercion
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrToolFailure     = domain.ErrToolFailure
	ErrReportNotFound  = domain.ErrReportNotFound
	ErrQueryNotFound   = domain.ErrQueryNotFound
	ErrHitNotFound     = domain.ErrHitNotFound
)

// ByEValue keeps hits with an HSP whose e-value is at most threshold.
func ByEValue(threshold float64) Criterion { return blast.ByEValue(threshold) }

// ByBitScore keeps hits with an HSP whose bit score is at least threshold.
func ByBitScore(threshold float64) Criterion { return blast.ByBitScore(threshold) }

// Parse reads a whole report from r, keeping only the hits that pass c.
// A zero Criterion keeps every hit.
func Parse(r io.Reader, c Criterion) ([]Iteration, error) {
	rep, err := iblastxml.ReadReport(r, c)
	if err != nil {
		return nil, err
	}
	return rep.Iterations, nil
}

// ParseReport is Parse plus the report header.
func ParseReport(r io.Reader, c Criterion) (Report, error) {
	return iblastxml.ReadReport(r, c)
}

// Render returns the alignment blocks of h.
func Render(h *HSP) string {
	return alignment.RenderHSP(h)
}

// WriteHit writes the pairwise section of h: definition line, score summary
// and the alignment of every HSP.
func WriteHit(w io.Writer, h *Hit) error {
	return alignment.WriteHit(w, h, nil)
}
