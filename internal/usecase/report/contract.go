package report

import (
	"context"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// Repository defines the storage contract for parsed reports.
type Repository interface {
	SaveIteration(ctx context.Context, id string, it *blast.Iteration) error
	SaveSummary(ctx context.Context, s *blast.Summary) error
	Summary(ctx context.Context, id string) (blast.Summary, error)
	Iterations(ctx context.Context, id string) ([]blast.Iteration, error)
	Hits(ctx context.Context, id, query string) ([]blast.Hit, error)
	Hit(ctx context.Context, id, query string, num int) (blast.Hit, error)
	Delete(ctx context.Context, id string) error
}
