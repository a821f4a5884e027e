package blastxml

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

const hspTemplate = `<BlastOutput><BlastOutput_iterations><Iteration>
<Iteration_iter-num>1</Iteration_iter-num>
<Iteration_query-def>q1 test query</Iteration_query-def>
<Iteration_hits><Hit><Hit_num>1</Hit_num><Hit_id>h1</Hit_id><Hit_len>100</Hit_len>
<Hit_hsps><Hsp>%s</Hsp></Hit_hsps></Hit></Iteration_hits>
</Iteration></BlastOutput_iterations></BlastOutput>`

func singleIteration(t *testing.T, hspBody string) IterationNode {
	t.Helper()
	w := NewWalker(strings.NewReader(strings.Replace(hspTemplate, "%s", hspBody, 1)))
	it, err := w.Next()
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return it
}

func TestReadReport(t *testing.T) {
	rep, err := ReadReport(openReport(t), blast.Criterion{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.Header.Program != "blastp" || rep.Header.DB != "uniprot_sprot" || rep.Header.QueryLen != 232 {
		t.Errorf("unexpected header: %+v", rep.Header)
	}
	if rep.Header.Params.Matrix != "BLOSUM62" || rep.Header.Params.GapOpen == nil || *rep.Header.Params.GapOpen != 11 {
		t.Errorf("unexpected params: %+v", rep.Header.Params)
	}
	if len(rep.Iterations) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(rep.Iterations))
	}

	it := rep.Iterations[0]
	if it.Number != 1 || it.QueryLen != 232 || it.QueryID != "Query_1" {
		t.Errorf("unexpected iteration: %+v", it)
	}
	if it.Stat.DBNum == nil || *it.Stat.DBNum != 570830 {
		t.Errorf("unexpected statistics: %+v", it.Stat)
	}
	if len(it.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(it.Hits))
	}

	hit := it.Hits[0]
	if hit.ID != "gnl|BL_ORD_ID|118" || hit.Accession != "118" || hit.Length != 378 || hit.Number != 1 {
		t.Errorf("unexpected hit: %+v", hit)
	}
	if hit.Definition != "sp|Q9XSR2|SPB6_BOVIN Serpin B6" {
		t.Errorf("definition = %q", hit.Definition)
	}
	if hit.QueryAccession != "sp|P01013|OVAX_CHICK" {
		t.Errorf("query accession = %q", hit.QueryAccession)
	}
	if len(hit.HSPs) != 2 || *hit.HSPs[0].Num != 1 || *hit.HSPs[1].Num != 2 {
		t.Fatalf("HSPs out of report order: %+v", hit.HSPs)
	}

	hsp := hit.HSPs[1]
	if hsp.Midline != " KT YIAKQ+" {
		t.Errorf("midline lost whitespace: %q", hsp.Midline)
	}
	wantAlignment := "1   MKTAYIAKQR  10\n" +
		"     KT YIAKQ+  \n" +
		"5   MKT-YIAKQR  13\n"
	if hsp.Alignment != wantAlignment {
		t.Errorf("alignment:\ngot:  %q\nwant: %q", hsp.Alignment, wantAlignment)
	}

	empty := rep.Iterations[1]
	if empty.Message != "No hits found" || len(empty.Hits) != 0 || empty.QueryAccession != "lcl|orphan1" {
		t.Errorf("unexpected empty iteration: %+v", empty)
	}
}

func TestReadReport_FiltersHits(t *testing.T) {
	rep, err := ReadReport(openReport(t), blast.ByEValue(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hits := rep.Iterations[0].Hits
	if len(hits) != 1 || hits[0].Number != 1 {
		t.Fatalf("expected only hit 1 to survive, got %+v", hits)
	}
	if rep.TotalHits() != 1 {
		t.Errorf("TotalHits = %d", rep.TotalHits())
	}
}

func TestReadReport_InvalidCriterion(t *testing.T) {
	ev, bs := 1.0, 10.0
	_, err := ReadReport(strings.NewReader("not even xml"), blast.Criterion{MaxEValue: &ev, MinBitScore: &bs})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBuildHSP_AbsentFieldsAreNil(t *testing.T) {
	it := singleIteration(t, `<Hsp_num>1</Hsp_num><Hsp_evalue>1e-5</Hsp_evalue>
<Hsp_query-from>1</Hsp_query-from><Hsp_hit-from>1</Hsp_hit-from>
<Hsp_qseq>AC</Hsp_qseq><Hsp_hseq>AC</Hsp_hseq><Hsp_midline>||</Hsp_midline>`)

	h, err := BuildHSP(it.Hits()[0].HSPs()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.BitScore != nil || h.Density != nil || h.PatternFrom != nil || h.QueryFrame != nil {
		t.Errorf("absent fields must be nil: %+v", h)
	}
	if h.EValue == nil || *h.EValue != 1e-5 {
		t.Errorf("evalue = %v", h.EValue)
	}
	if h.Alignment == "" {
		t.Error("expected rendered alignment")
	}
}

func TestBuildHSP_MalformedNumber(t *testing.T) {
	it := singleIteration(t, `<Hsp_num>1</Hsp_num><Hsp_bit-score>high</Hsp_bit-score>`)

	_, err := BuildHSP(it.Hits()[0].HSPs()[0])
	if !errors.Is(err, domain.ErrFieldCoercion) {
		t.Fatalf("expected ErrFieldCoercion, got %v", err)
	}
	var fe *domain.FieldCoercionError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FieldCoercionError, got %T", err)
	}
	if fe.Field != "Hsp_bit-score" || fe.Value != "high" {
		t.Errorf("unexpected coercion error: field=%q value=%q", fe.Field, fe.Value)
	}
}

func TestBuildIteration_PropagatesCoercionError(t *testing.T) {
	it := singleIteration(t, `<Hsp_query-from>one</Hsp_query-from>`)
	_, err := BuildIteration(it)
	if !errors.Is(err, domain.ErrFieldCoercion) {
		t.Fatalf("expected ErrFieldCoercion, got %v", err)
	}
	if !strings.Contains(err.Error(), "Hsp_query-from") {
		t.Errorf("error does not name the field: %v", err)
	}
}

func TestBuildHit_MalformedLength(t *testing.T) {
	w := NewWalker(strings.NewReader(`<BlastOutput><BlastOutput_iterations><Iteration>
<Iteration_query-def>q</Iteration_query-def>
<Iteration_hits><Hit><Hit_len>12x</Hit_len></Hit></Iteration_hits>
</Iteration></BlastOutput_iterations></BlastOutput>`))
	it, err := w.Next()
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if _, err := BuildHit(it.Hits()[0]); !errors.Is(err, domain.ErrFieldCoercion) {
		t.Fatalf("expected ErrFieldCoercion, got %v", err)
	}
}

func TestBuildHSP_EmptyNumericIsAbsent(t *testing.T) {
	it := singleIteration(t, `<Hsp_density></Hsp_density><Hsp_gaps> </Hsp_gaps>`)
	h, err := BuildHSP(it.Hits()[0].HSPs()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Density != nil || h.Gaps != nil {
		t.Errorf("empty numerics must be nil: density=%v gaps=%v", h.Density, h.Gaps)
	}
}
