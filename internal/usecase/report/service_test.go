package report

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// --- Mocks ---

type key struct {
	id  string
	num int
}

type mockRepo struct {
	summaries  map[string]blast.Summary
	iterations map[key]blast.Iteration
	deleted    []string

	saveIterErr error
	deleteErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		summaries:  map[string]blast.Summary{},
		iterations: map[key]blast.Iteration{},
	}
}

func (m *mockRepo) SaveIteration(_ context.Context, id string, it *blast.Iteration) error {
	if m.saveIterErr != nil {
		return m.saveIterErr
	}
	m.iterations[key{id, it.Number}] = *it
	return nil
}

// find resolves query the way the repository does: query-ID or accession,
// then iteration number.
func (m *mockRepo) find(id, query string) (blast.Iteration, bool) {
	for k, it := range m.iterations {
		if k.id == id && (it.QueryID == query || it.QueryAccession == query) {
			return it, true
		}
	}
	if n, err := strconv.Atoi(query); err == nil {
		it, ok := m.iterations[key{id, n}]
		return it, ok
	}
	return blast.Iteration{}, false
}

func (m *mockRepo) SaveSummary(_ context.Context, s *blast.Summary) error {
	m.summaries[s.ID] = *s
	return nil
}

func (m *mockRepo) Summary(_ context.Context, id string) (blast.Summary, error) {
	s, ok := m.summaries[id]
	if !ok {
		return blast.Summary{}, domain.ErrReportNotFound
	}
	return s, nil
}

func (m *mockRepo) Iterations(_ context.Context, id string) ([]blast.Iteration, error) {
	if _, ok := m.summaries[id]; !ok {
		return nil, domain.ErrReportNotFound
	}
	var out []blast.Iteration
	for k, it := range m.iterations {
		if k.id == id {
			it.Hits = nil
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockRepo) Hits(_ context.Context, id, query string) ([]blast.Hit, error) {
	it, ok := m.find(id, query)
	if !ok {
		return nil, domain.ErrQueryNotFound
	}
	return it.Hits, nil
}

func (m *mockRepo) Hit(_ context.Context, id, query string, num int) (blast.Hit, error) {
	it, _ := m.find(id, query)
	for _, h := range it.Hits {
		if h.Number == num {
			return h, nil
		}
	}
	return blast.Hit{}, domain.ErrHitNotFound
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	found := false
	if _, ok := m.summaries[id]; ok {
		delete(m.summaries, id)
		found = true
	}
	for k := range m.iterations {
		if k.id == id {
			delete(m.iterations, k)
			found = true
		}
	}
	if !found {
		return domain.ErrReportNotFound
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func openReport(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open("../../blastxml/testdata/report.xml")
	if err != nil {
		t.Fatalf("open testdata: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

const ovax = "sp|P01013|OVAX_CHICK"

func newTestService(repo *mockRepo) *Service {
	svc := New(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestIngest_StoresEveryIteration(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	sum, err := svc.Ingest(context.Background(), "run-1", openReport(t), blast.Criterion{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sum.Iterations != 2 || sum.Hits != 2 {
		t.Errorf("summary counts = %d iterations, %d hits", sum.Iterations, sum.Hits)
	}
	if sum.Header.Program != "blastp" {
		t.Errorf("program = %q", sum.Header.Program)
	}
	if !sum.IngestedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ingested_at = %v", sum.IngestedAt)
	}
	if _, ok := repo.summaries["run-1"]; !ok {
		t.Error("summary not saved")
	}
	it := repo.iterations[key{"run-1", 1}]
	if it.QueryAccession != ovax || len(it.Hits) != 2 || it.Hits[0].HSPs[0].Alignment == "" {
		t.Errorf("hits not stored with alignments: %+v", it.Hits)
	}
	if orphan := repo.iterations[key{"run-1", 2}]; orphan.Message != "No hits found" {
		t.Errorf("orphan iteration = %+v", orphan)
	}
}

func TestIngest_AppliesCriterion(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	sum, err := svc.Ingest(context.Background(), "run-1", openReport(t), blast.ByEValue(1))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sum.Hits != 1 {
		t.Fatalf("expected 1 significant hit, got %d", sum.Hits)
	}
	if got := repo.iterations[key{"run-1", 1}].Hits[0].Number; got != 1 {
		t.Errorf("kept hit %d, want 1", got)
	}
}

func TestIngest_ReplacesExisting(t *testing.T) {
	repo := newMockRepo()
	repo.summaries["run-1"] = blast.Summary{ID: "run-1", Iterations: 9}
	repo.iterations[key{"run-1", 7}] = blast.Iteration{Number: 7, QueryAccession: "stale"}
	svc := newTestService(repo)

	if _, err := svc.Ingest(context.Background(), "run-1", openReport(t), blast.Criterion{}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, ok := repo.iterations[key{"run-1", 7}]; ok {
		t.Error("stale iteration survived re-ingest")
	}
	if repo.summaries["run-1"].Iterations != 2 {
		t.Errorf("summary not replaced: %+v", repo.summaries["run-1"])
	}
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name string
		id   string
		c    blast.Criterion
	}{
		{"empty id", "", blast.Criterion{}},
		{"id with braces", "run{1}", blast.Criterion{}},
		{"id with glob", "run*", blast.Criterion{}},
		{"both criteria", "run-1", blast.Criterion{MaxEValue: ptr(1.0), MinBitScore: ptr(30.0)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepo()
			_, err := newTestService(repo).Ingest(context.Background(), tc.id, strings.NewReader("<x/>"), tc.c)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if len(repo.deleted) != 0 {
				t.Error("nothing must be touched on invalid input")
			}
		})
	}
}

func TestIngest_MalformedCleansUp(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	data, err := os.ReadFile("../../blastxml/testdata/report.xml")
	if err != nil {
		t.Fatal(err)
	}
	// cut after the first iteration so it is stored before the error surfaces
	cut := strings.Index(string(data), "</Iteration>") + len("</Iteration>")
	_, err = svc.Ingest(context.Background(), "run-1", strings.NewReader(string(data[:cut])), blast.Criterion{})
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	if len(repo.iterations) != 0 || len(repo.summaries) != 0 {
		t.Errorf("partial report left behind: %d iterations", len(repo.iterations))
	}
}

func TestIngest_CoercionError(t *testing.T) {
	data, err := os.ReadFile("../../blastxml/testdata/report.xml")
	if err != nil {
		t.Fatal(err)
	}
	bad := strings.Replace(string(data), "<Hsp_evalue>50</Hsp_evalue>", "<Hsp_evalue>lots</Hsp_evalue>", 1)

	_, err = newTestService(newMockRepo()).Ingest(context.Background(), "run-1", strings.NewReader(bad), blast.Criterion{})
	var fce *domain.FieldCoercionError
	if !errors.As(err, &fce) || fce.Field != "Hsp_evalue" {
		t.Fatalf("expected FieldCoercionError on Hsp_evalue, got %v", err)
	}
}

const twoUnnamedQueries = `<?xml version="1.0"?>
<BlastOutput>
  <BlastOutput_program>blastp</BlastOutput_program>
  <BlastOutput_iterations>
    <Iteration>
      <Iteration_iter-num>1</Iteration_iter-num>
      <Iteration_query-ID>Query_1</Iteration_query-ID>
      <Iteration_query-def>No definition line</Iteration_query-def>
      <Iteration_query-len>10</Iteration_query-len>
      <Iteration_hits>
        <Hit><Hit_num>1</Hit_num><Hit_id>A</Hit_id><Hit_len>10</Hit_len></Hit>
      </Iteration_hits>
    </Iteration>
    <Iteration>
      <Iteration_iter-num>2</Iteration_iter-num>
      <Iteration_query-ID>Query_2</Iteration_query-ID>
      <Iteration_query-def>No definition line</Iteration_query-def>
      <Iteration_query-len>12</Iteration_query-len>
      <Iteration_hits>
        <Hit><Hit_num>1</Hit_num><Hit_id>B</Hit_id><Hit_len>12</Hit_len></Hit>
      </Iteration_hits>
    </Iteration>
  </BlastOutput_iterations>
</BlastOutput>`

func TestIngest_SharedQueryDefKeepsBothIterations(t *testing.T) {
	repo := newMockRepo()
	sum, err := newTestService(repo).Ingest(context.Background(), "run-1", strings.NewReader(twoUnnamedQueries), blast.Criterion{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sum.Iterations != 2 || len(repo.iterations) != 2 {
		t.Fatalf("stored %d of %d iterations", len(repo.iterations), sum.Iterations)
	}
	if got := repo.iterations[key{"run-1", 1}].Hits[0].ID; got != "A" {
		t.Errorf("iteration 1 hit = %q", got)
	}
	if got := repo.iterations[key{"run-1", 2}].Hits[0].ID; got != "B" {
		t.Errorf("iteration 2 hit = %q", got)
	}
}

func TestIngest_IterationNumbers(t *testing.T) {
	t.Run("missing numbers follow position", func(t *testing.T) {
		repo := newMockRepo()
		doc := strings.ReplaceAll(twoUnnamedQueries, "<Iteration_iter-num>1</Iteration_iter-num>", "")
		doc = strings.ReplaceAll(doc, "<Iteration_iter-num>2</Iteration_iter-num>", "")
		if _, err := newTestService(repo).Ingest(context.Background(), "run-1", strings.NewReader(doc), blast.Criterion{}); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if repo.iterations[key{"run-1", 2}].QueryID != "Query_2" {
			t.Errorf("iterations = %+v", repo.iterations)
		}
	})
	t.Run("repeated number rejected", func(t *testing.T) {
		repo := newMockRepo()
		doc := strings.ReplaceAll(twoUnnamedQueries, "<Iteration_iter-num>2</Iteration_iter-num>", "<Iteration_iter-num>1</Iteration_iter-num>")
		_, err := newTestService(repo).Ingest(context.Background(), "run-1", strings.NewReader(doc), blast.Criterion{})
		if !errors.Is(err, domain.ErrMalformedInput) {
			t.Fatalf("expected ErrMalformedInput, got %v", err)
		}
		if len(repo.iterations) != 0 {
			t.Error("partial report left behind")
		}
	})
}

func TestIngest_StorageError(t *testing.T) {
	repo := newMockRepo()
	repo.saveIterErr = context.DeadlineExceeded

	_, err := newTestService(repo).Ingest(context.Background(), "run-1", openReport(t), blast.Criterion{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestIngest_ReplaceFails(t *testing.T) {
	repo := newMockRepo()
	repo.deleteErr = errors.New("connection refused")

	if _, err := newTestService(repo).Ingest(context.Background(), "run-1", openReport(t), blast.Criterion{}); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.iterations) != 0 {
		t.Error("nothing must be written when the old report cannot be removed")
	}
}

func TestHits_NarrowsByCriterion(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	if _, err := svc.Ingest(context.Background(), "run-1", openReport(t), blast.Criterion{}); err != nil {
		t.Fatal(err)
	}

	all, err := svc.Hits(context.Background(), "run-1", ovax, blast.Criterion{})
	if err != nil || len(all) != 2 {
		t.Fatalf("all hits: %d, %v", len(all), err)
	}
	sig, err := svc.Hits(context.Background(), "run-1", ovax, blast.ByEValue(0.01))
	if err != nil || len(sig) != 1 {
		t.Fatalf("significant hits: %d, %v", len(sig), err)
	}
	if _, err := svc.Hits(context.Background(), "run-1", "nope", blast.Criterion{}); !errors.Is(err, domain.ErrQueryNotFound) {
		t.Errorf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestReadPaths_WrapRepositoryErrors(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Summary(ctx, "x"); !errors.Is(err, domain.ErrReportNotFound) {
		t.Errorf("Summary: %v", err)
	}
	if _, err := svc.Iterations(ctx, "x"); !errors.Is(err, domain.ErrReportNotFound) {
		t.Errorf("Iterations: %v", err)
	}
	if _, err := svc.Hit(ctx, "x", "q", 1); !errors.Is(err, domain.ErrHitNotFound) {
		t.Errorf("Hit: %v", err)
	}
	if err := svc.Delete(ctx, "x"); !errors.Is(err, domain.ErrReportNotFound) {
		t.Errorf("Delete: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
