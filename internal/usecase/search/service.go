package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	"github.com/kailas-cloud/blastxml/internal/fasta"
	"github.com/kailas-cloud/blastxml/internal/toolbridge"
)

// Request is one search-and-ingest run.
type Request struct {
	ReportID  string
	Program   string
	DB        string // falls back to the service default
	Queries   []fasta.Record
	Flags     map[string]string
	Criterion blast.Criterion
}

// Service runs BLAST and ingests the XML it produces.
type Service struct {
	searcher  Searcher
	ingester  Ingester
	logger    *zap.Logger
	tmpDir    string
	defaultDB string
}

// New creates a search service.
func New(searcher Searcher, ingester Ingester, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, ingester: ingester, logger: logger}
}

// WithTempDir sets where BLAST output is written before ingestion.
func (s *Service) WithTempDir(dir string) *Service {
	s.tmpDir = dir
	return s
}

// WithDefaultDB sets the database used when a request names none.
func (s *Service) WithDefaultDB(db string) *Service {
	s.defaultDB = db
	return s
}

// Run searches req.Queries and ingests the results. A search that fits in a
// single batch is stored as req.ReportID; otherwise batch n is stored as
// "<ReportID>.<n>". Output files are removed once ingested.
func (s *Service) Run(ctx context.Context, req Request) ([]blast.Summary, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(s.tmpDir, "blastxml-search-")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(dir)

	outs, err := s.searcher.SearchParallel(ctx, toolbridge.ParallelRequest{
		Program: req.Program,
		DB:      req.DB,
		Records: req.Queries,
		Out:     filepath.Join(dir, "result.xml"),
		Flags:   req.Flags,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", req.Program, err)
	}

	sums := make([]blast.Summary, 0, len(outs))
	for i, out := range outs {
		id := req.ReportID
		if len(outs) > 1 {
			id = fmt.Sprintf("%s.%d", req.ReportID, i)
		}
		sum, err := s.ingestFile(ctx, id, out, req.Criterion)
		if err != nil {
			return nil, err
		}
		sums = append(sums, sum)
	}

	s.logger.Info("search ingested",
		zap.String("report", req.ReportID),
		zap.String("program", req.Program),
		zap.Int("queries", len(req.Queries)),
		zap.Int("reports", len(sums)),
	)
	return sums, nil
}

func (s *Service) validate(req *Request) error {
	if req.DB == "" {
		req.DB = s.defaultDB
	}
	if err := blast.ValidateReportID(req.ReportID); err != nil {
		return err
	}
	if err := req.Criterion.Validate(); err != nil {
		return err
	}
	if len(req.Queries) == 0 {
		return fmt.Errorf("%w: no query sequences", domain.ErrInvalidArgument)
	}
	if v, ok := req.Flags["outfmt"]; ok && v != "5" {
		return fmt.Errorf("%w: outfmt must be 5 (XML) to ingest, got %q", domain.ErrInvalidArgument, v)
	}
	return nil
}

func (s *Service) ingestFile(ctx context.Context, id, path string, c blast.Criterion) (blast.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return blast.Summary{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sum, err := s.ingester.Ingest(ctx, id, f, c)
	if err != nil {
		return blast.Summary{}, fmt.Errorf("ingest %s: %w", id, err)
	}
	return sum, nil
}
