package blastxml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/blastxml/internal/db"
	dbRedis "github.com/kailas-cloud/blastxml/internal/db/redis"
	reportrepo "github.com/kailas-cloud/blastxml/internal/repository/report"
	reportuc "github.com/kailas-cloud/blastxml/internal/usecase/report"
)

const defaultReadinessTimeout = 10 * time.Second

// reportUseCase is the slice of the report service the client drives.
type reportUseCase interface {
	Ingest(ctx context.Context, id string, r io.Reader, c Criterion) (Summary, error)
	Summary(ctx context.Context, id string) (Summary, error)
	Iterations(ctx context.Context, id string) ([]Iteration, error)
	Hits(ctx context.Context, id, query string, c Criterion) ([]Hit, error)
	Hit(ctx context.Context, id, query string, num int) (Hit, error)
	Delete(ctx context.Context, id string) error
}

// Client stores parsed reports in Redis or Valkey and reads them back.
type Client struct {
	store     db.Store
	ownsStore bool
	reports   reportUseCase
	obs       *observer
}

// New creates a Client and waits for the database to answer.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: reportrepo.DefaultPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, owns, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		if owns {
			store.Close()
		}
		return nil, fmt.Errorf("blastxml: database not ready: %w", err)
	}

	repo := reportrepo.New(store, cfg.keyPrefix, cfg.ttl)
	return &Client{
		store:     store,
		ownsStore: owns,
		reports:   reportuc.New(repo, nil),
		obs:       obs,
	}, nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, bool, error) {
	if cfg.client != nil {
		return dbRedis.NewStoreFromClient(cfg.client), false, nil
	}
	if len(cfg.addrs) == 0 {
		return nil, false, errors.New("blastxml: database address required (use WithRedis, WithValkey or WithRedisClient)")
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.addrs,
		Password:   cfg.password,
		Standalone: cfg.standalone,
	})
	if err != nil {
		return nil, false, fmt.Errorf("blastxml: create store: %w", err)
	}
	return s, true, nil
}

// Close releases the connection unless it was supplied by WithRedisClient.
func (c *Client) Close() {
	if c.store != nil && c.ownsStore {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest parses the report read from r and stores the hits that pass crit
// under id, replacing any report already stored there.
func (c *Client) Ingest(ctx context.Context, id string, r io.Reader, crit Criterion) (Summary, error) {
	start := time.Now()
	sum, err := c.reports.Ingest(ctx, id, r, crit)
	c.obs.observe("ingest", start, err)
	return sum, err
}

// Summary returns the header and counts of a stored report.
func (c *Client) Summary(ctx context.Context, id string) (Summary, error) {
	start := time.Now()
	sum, err := c.reports.Summary(ctx, id)
	c.obs.observe("summary", start, err)
	return sum, err
}

// Iterations lists the queries of a stored report without their hits.
func (c *Client) Iterations(ctx context.Context, id string) ([]Iteration, error) {
	start := time.Now()
	its, err := c.reports.Iterations(ctx, id)
	c.obs.observe("iterations", start, err)
	return its, err
}

// Hits returns the stored hits of one query, narrowed by crit.
func (c *Client) Hits(ctx context.Context, id, query string, crit Criterion) ([]Hit, error) {
	start := time.Now()
	hits, err := c.reports.Hits(ctx, id, query, crit)
	c.obs.observe("hits", start, err)
	return hits, err
}

// Hit returns one stored hit by its number within the query.
func (c *Client) Hit(ctx context.Context, id, query string, num int) (Hit, error) {
	start := time.Now()
	h, err := c.reports.Hit(ctx, id, query, num)
	c.obs.observe("hit", start, err)
	return h, err
}

// Delete removes a stored report.
func (c *Client) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := c.reports.Delete(ctx, id)
	c.obs.observe("delete", start, err)
	return err
}
