package search

import (
	"context"
	"io"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	"github.com/kailas-cloud/blastxml/internal/toolbridge"
)

// Searcher runs BLAST over batches of query records.
type Searcher interface {
	SearchParallel(ctx context.Context, req toolbridge.ParallelRequest) ([]string, error)
}

// Ingester stores a BLAST XML report.
type Ingester interface {
	Ingest(ctx context.Context, id string, r io.Reader, c blast.Criterion) (blast.Summary, error)
}
