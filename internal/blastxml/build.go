package blastxml

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/kailas-cloud/blastxml/internal/alignment"
	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// fieldReader coerces child fields of one node, keeping the first error.
type fieldReader struct {
	n   *Node
	err error
}

func (f *fieldReader) text(tag string) string {
	s, _ := Field(f.n, tag)
	return s
}

func (f *fieldReader) optInt(tag string) *int {
	s, ok := Field(f.n, tag)
	if !ok || s == "" || f.err != nil {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f.err = domain.NewFieldCoercion(tag, s, err)
		return nil
	}
	return &v
}

func (f *fieldReader) optFloat(tag string) *float64 {
	s, ok := Field(f.n, tag)
	if !ok || s == "" || f.err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.err = domain.NewFieldCoercion(tag, s, err)
		return nil
	}
	return &v
}

func (f *fieldReader) plainInt(tag string) int {
	if p := f.optInt(tag); p != nil {
		return *p
	}
	return 0
}

// BuildHeader converts the walker's header node.
func BuildHeader(n *Node) (blast.Header, error) {
	f := &fieldReader{n: n}
	h := blast.Header{
		Program:   f.text(tagProgram),
		Version:   f.text(tagVersion),
		Reference: f.text(tagReference),
		DB:        f.text(tagDB),
		QueryID:   f.text(tagQueryID),
		QueryDef:  f.text(tagQueryDef),
		QueryLen:  f.plainInt(tagQueryLen),
	}
	p := &fieldReader{n: n.Child(tagParam).Child(tagParams)}
	h.Params = blast.Parameters{
		Matrix:    p.text(tagParamMatrix),
		Expect:    p.optFloat(tagParamExpect),
		GapOpen:   p.optInt(tagParamGapOpen),
		GapExtend: p.optInt(tagParamGapExtend),
		Filter:    p.text(tagParamFilter),
	}
	if err := errors.Join(f.err, p.err); err != nil {
		return blast.Header{}, fmt.Errorf("build header: %w", err)
	}
	return h, nil
}

// BuildIteration converts an iteration and every hit below it.
func BuildIteration(n IterationNode) (blast.Iteration, error) {
	f := &fieldReader{n: n.Node()}
	it := blast.Iteration{
		Number:         f.plainInt(tagIterNum),
		QueryID:        f.text(tagIterQueryID),
		QueryAccession: n.QueryAccession(),
		QueryDef:       n.QueryDef(),
		QueryLen:       f.plainInt(tagIterQueryLen),
		Message:        f.text(tagIterMessage),
	}
	if f.err != nil {
		return blast.Iteration{}, fmt.Errorf("build iteration: %w", f.err)
	}

	stat, err := buildStatistics(n.Statistics())
	if err != nil {
		return blast.Iteration{}, fmt.Errorf("build iteration %d: %w", it.Number, err)
	}
	it.Stat = stat

	hitNodes := n.Hits()
	it.Hits = make([]blast.Hit, 0, len(hitNodes))
	for _, hn := range hitNodes {
		hit, err := BuildHit(hn)
		if err != nil {
			return blast.Iteration{}, fmt.Errorf("build iteration %d: %w", it.Number, err)
		}
		it.Hits = append(it.Hits, hit)
	}
	return it, nil
}

func buildStatistics(n *Node) (blast.Statistics, error) {
	if n == nil {
		return blast.Statistics{}, nil
	}
	f := &fieldReader{n: n}
	s := blast.Statistics{
		DBNum:    f.optInt(tagStatDBNum),
		DBLen:    f.optInt(tagStatDBLen),
		HSPLen:   f.optInt(tagStatHSPLen),
		EffSpace: f.optFloat(tagStatEffSpace),
		Kappa:    f.optFloat(tagStatKappa),
		Lambda:   f.optFloat(tagStatLambda),
		Entropy:  f.optFloat(tagStatEntropy),
	}
	if f.err != nil {
		return blast.Statistics{}, fmt.Errorf("statistics: %w", f.err)
	}
	return s, nil
}

// BuildHit converts a hit and its HSPs, keeping report order.
func BuildHit(n HitNode) (blast.Hit, error) {
	f := &fieldReader{n: n.Node()}
	hit := blast.Hit{
		ID:             f.text(tagHitID),
		Length:         f.plainInt(tagHitLen),
		Accession:      f.text(tagHitAccession),
		Definition:     f.text(tagHitDef),
		Number:         f.plainInt(tagHitNum),
		QueryAccession: n.QueryAccession(),
	}
	if f.err != nil {
		return blast.Hit{}, fmt.Errorf("build hit: %w", f.err)
	}

	hspNodes := n.HSPs()
	hit.HSPs = make([]blast.HSP, 0, len(hspNodes))
	for _, hn := range hspNodes {
		hsp, err := BuildHSP(hn)
		if err != nil {
			return blast.Hit{}, fmt.Errorf("build hit %d: %w", hit.Number, err)
		}
		hit.HSPs = append(hit.HSPs, hsp)
	}
	return hit, nil
}

// BuildHSP converts one HSP and attaches its rendered alignment.
func BuildHSP(n HSPNode) (blast.HSP, error) {
	f := &fieldReader{n: n.Node()}
	h := blast.HSP{
		BitScore:    f.optFloat(tagHSPBitScore),
		Score:       f.optFloat(tagHSPScore),
		EValue:      f.optFloat(tagHSPEValue),
		QueryFrom:   f.optInt(tagHSPQueryFrom),
		QueryTo:     f.optInt(tagHSPQueryTo),
		HitFrom:     f.optInt(tagHSPHitFrom),
		HitTo:       f.optInt(tagHSPHitTo),
		QueryFrame:  f.optInt(tagHSPQueryFrame),
		HitFrame:    f.optInt(tagHSPHitFrame),
		Identity:    f.optInt(tagHSPIdentity),
		Positive:    f.optInt(tagHSPPositive),
		Gaps:        f.optInt(tagHSPGaps),
		AlignLen:    f.optInt(tagHSPAlignLen),
		Density:     f.optInt(tagHSPDensity),
		PatternFrom: f.optInt(tagHSPPatternFrom),
		PatternTo:   f.optInt(tagHSPPatternTo),
		Num:         f.optInt(tagHSPNum),
		QSeq:        f.text(tagHSPQSeq),
		HSeq:        f.text(tagHSPHSeq),
	}
	if f.err != nil {
		return blast.HSP{}, fmt.Errorf("build hsp: %w", f.err)
	}
	h.Midline, _ = n.Midline()
	h.Alignment = alignment.RenderHSP(&h)
	return h, nil
}

// ReadReport walks r to the end, building every iteration and pruning hits
// with c. The criterion is validated before any input is read.
func ReadReport(r io.Reader, c blast.Criterion) (blast.Report, error) {
	if err := c.Validate(); err != nil {
		return blast.Report{}, err
	}

	w := NewWalker(r)
	var rep blast.Report
	for itNode, err := range w.All() {
		if err != nil {
			return blast.Report{}, err
		}
		it, err := BuildIteration(itNode)
		if err != nil {
			return blast.Report{}, err
		}
		it.Hits, err = blast.Filter(it.Hits, c)
		if err != nil {
			return blast.Report{}, err
		}
		rep.Iterations = append(rep.Iterations, it)
	}

	header, err := BuildHeader(w.Header())
	if err != nil {
		return blast.Report{}, err
	}
	rep.Header = header
	return rep, nil
}
