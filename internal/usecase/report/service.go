package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/blastxml"
	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	logpkg "github.com/kailas-cloud/blastxml/internal/logger"
	"github.com/kailas-cloud/blastxml/internal/metrics"
)

// Service ingests BLAST XML reports and serves the stored records.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// New creates a report service.
func New(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Ingest parses the report streamed from r, keeps the hits that pass c and
// stores the result under id, replacing any previous report with that id.
// On a parse or storage failure nothing of the new report is left behind.
func (s *Service) Ingest(ctx context.Context, id string, r io.Reader, c blast.Criterion) (blast.Summary, error) {
	if err := blast.ValidateReportID(id); err != nil {
		return blast.Summary{}, err
	}
	if err := c.Validate(); err != nil {
		return blast.Summary{}, err
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrReportNotFound) {
		return blast.Summary{}, fmt.Errorf("replace report: %w", err)
	}

	log := logpkg.FromContextOr(ctx, s.logger)
	sum, err := s.ingest(ctx, id, r, c)
	if err != nil {
		metrics.ReportsIngestedTotal.WithLabelValues("error").Inc()
		if derr := s.repo.Delete(ctx, id); derr != nil && !errors.Is(derr, domain.ErrReportNotFound) {
			log.Warn("cleanup after failed ingest", zap.String("report", id), zap.Error(derr))
		}
		return blast.Summary{}, err
	}

	metrics.ReportsIngestedTotal.WithLabelValues("ok").Inc()
	log.Info("report ingested",
		zap.String("report", id),
		zap.String("program", sum.Header.Program),
		zap.Int("iterations", sum.Iterations),
		zap.Int("hits", sum.Hits),
	)
	return sum, nil
}

func (s *Service) ingest(ctx context.Context, id string, r io.Reader, c blast.Criterion) (blast.Summary, error) {
	sum := blast.Summary{ID: id}
	w := blastxml.NewWalker(r)
	seen := make(map[int]struct{})

	for node, err := range w.All() {
		if err != nil {
			return blast.Summary{}, err
		}
		if err := ctx.Err(); err != nil {
			return blast.Summary{}, err
		}

		it, err := blastxml.BuildIteration(node)
		if err != nil {
			return blast.Summary{}, fmt.Errorf("iteration %d: %w", sum.Iterations+1, err)
		}
		// iterations are stored by number; reports without Iteration_iter-num
		// fall back to their position
		if it.Number <= 0 {
			it.Number = sum.Iterations + 1
		}
		if _, dup := seen[it.Number]; dup {
			return blast.Summary{}, fmt.Errorf("iteration number %d repeated: %w", it.Number, domain.ErrMalformedInput)
		}
		seen[it.Number] = struct{}{}

		total := len(it.Hits)
		if it.Hits, err = blast.Filter(it.Hits, c); err != nil {
			return blast.Summary{}, err
		}
		metrics.HitsIngestedTotal.WithLabelValues("kept").Add(float64(len(it.Hits)))
		metrics.HitsIngestedTotal.WithLabelValues("filtered").Add(float64(total - len(it.Hits)))

		if err := s.repo.SaveIteration(ctx, id, &it); err != nil {
			return blast.Summary{}, fmt.Errorf("save iteration %d: %w", it.Number, err)
		}
		sum.Iterations++
		sum.Hits += len(it.Hits)
	}

	header, err := blastxml.BuildHeader(w.Header())
	if err != nil {
		return blast.Summary{}, err
	}
	sum.Header = header
	sum.IngestedAt = s.now().UTC()

	if err := s.repo.SaveSummary(ctx, &sum); err != nil {
		return blast.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	return sum, nil
}

// Summary returns a stored report summary.
func (s *Service) Summary(ctx context.Context, id string) (blast.Summary, error) {
	sum, err := s.repo.Summary(ctx, id)
	if err != nil {
		return blast.Summary{}, fmt.Errorf("get report: %w", err)
	}
	return sum, nil
}

// Iterations lists the queries of a stored report.
func (s *Service) Iterations(ctx context.Context, id string) ([]blast.Iteration, error) {
	its, err := s.repo.Iterations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	return its, nil
}

// Hits returns a query's stored hits, optionally narrowed further by c.
func (s *Service) Hits(ctx context.Context, id, query string, c blast.Criterion) ([]blast.Hit, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hits, err := s.repo.Hits(ctx, id, query)
	if err != nil {
		return nil, fmt.Errorf("list hits: %w", err)
	}
	return blast.Filter(hits, c)
}

// Hit returns one stored hit.
func (s *Service) Hit(ctx context.Context, id, query string, num int) (blast.Hit, error) {
	h, err := s.repo.Hit(ctx, id, query, num)
	if err != nil {
		return blast.Hit{}, fmt.Errorf("get hit: %w", err)
	}
	return h, nil
}

// Delete removes a stored report.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}
