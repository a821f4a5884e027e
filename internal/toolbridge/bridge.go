package toolbridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/fasta"
)

const (
	// DefaultBatchSize is the number of FASTA records per parallel search batch.
	DefaultBatchSize = 10000
	// DefaultMaxInline is the largest accession list passed as a -entry argument.
	DefaultMaxInline = 1000

	oidNotFound = "OID not found"
)

// Database types accepted by makeblastdb and blastdbcmd.
const (
	DBTypeProtein    = "prot"
	DBTypeNucleotide = "nucl"
)

var searchPrograms = map[string]bool{
	"blastn": true, "blastp": true, "blastx": true, "tblastn": true, "tblastx": true,
}

// flags the bridge always sets itself
var reservedFlags = map[string]bool{"db": true, "query": true, "out": true}

// DefaultFlags returns the flag set applied to every search before overrides.
func DefaultFlags() map[string]string {
	return map[string]string{
		"evalue":          "10",
		"outfmt":          "5",
		"max_target_seqs": "3",
	}
}

// SearchRequest describes one search subprocess.
type SearchRequest struct {
	Program string
	DB      string
	Query   string // FASTA path
	Out     string
	// Flags override the defaults; an empty value emits the flag alone.
	Flags map[string]string
}

// ParallelRequest describes a batched search over in-memory records.
type ParallelRequest struct {
	Program string
	DB      string
	Records []fasta.Record
	Out     string // outputs are written to Out.0, Out.1, ...
	Flags   map[string]string
}

// MakeDBRequest describes a makeblastdb run.
type MakeDBRequest struct {
	In          string
	DBType      string
	Out         string
	Title       string
	ParseSeqIDs bool
}

// RetrieveRequest describes a blastdbcmd lookup.
type RetrieveRequest struct {
	DB         string
	DBType     string
	Accessions []string
}

// Bridge builds BLAST+ command lines and hands them to a Runner.
type Bridge struct {
	runner    Runner
	logger    *zap.Logger
	tmpDir    string
	defaults  map[string]string
	batchSize int
	workers   int
	maxInline int
}

// New creates a bridge with the stock defaults.
func New(runner Runner, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		runner:    runner,
		logger:    logger,
		defaults:  DefaultFlags(),
		batchSize: DefaultBatchSize,
		workers:   1,
		maxInline: DefaultMaxInline,
	}
}

// WithTempDir sets where batch files are written (os.TempDir when empty).
func (b *Bridge) WithTempDir(dir string) *Bridge {
	b.tmpDir = dir
	return b
}

// WithDefaults merges flags over the stock defaults.
func (b *Bridge) WithDefaults(flags map[string]string) *Bridge {
	maps.Copy(b.defaults, flags)
	return b
}

// WithBatchSize sets the number of records per parallel batch.
func (b *Bridge) WithBatchSize(n int) *Bridge {
	if n > 0 {
		b.batchSize = n
	}
	return b
}

// WithWorkers sets the number of concurrent search subprocesses.
func (b *Bridge) WithWorkers(n int) *Bridge {
	if n > 0 {
		b.workers = n
	}
	return b
}

// WithMaxInline sets the accession count above which a batch file is used.
func (b *Bridge) WithMaxInline(n int) *Bridge {
	if n > 0 {
		b.maxInline = n
	}
	return b
}

// Search runs one search program and returns the output path.
func (b *Bridge) Search(ctx context.Context, req SearchRequest) (string, error) {
	args, err := b.searchArgs(req)
	if err != nil {
		return "", err
	}
	if err := b.runner.Run(ctx, Command{Name: req.Program, Args: args}); err != nil {
		return "", err
	}
	return req.Out, nil
}

func (b *Bridge) searchArgs(req SearchRequest) ([]string, error) {
	if !searchPrograms[req.Program] {
		return nil, fmt.Errorf("%w: unknown search program %q", domain.ErrInvalidArgument, req.Program)
	}
	if req.DB == "" || req.Query == "" || req.Out == "" {
		return nil, fmt.Errorf("%w: db, query and out are required", domain.ErrInvalidArgument)
	}

	flags := maps.Clone(b.defaults)
	for k, v := range req.Flags {
		k = strings.TrimLeft(k, "-")
		if reservedFlags[k] {
			return nil, fmt.Errorf("%w: flag %q is set by the bridge", domain.ErrInvalidArgument, k)
		}
		flags[k] = v
	}

	args := []string{"-db", req.DB, "-query", req.Query, "-out", req.Out}
	for _, k := range slices.Sorted(maps.Keys(flags)) {
		args = append(args, "-"+k)
		if v := flags[k]; v != "" {
			args = append(args, v)
		}
	}
	return args, nil
}

// SearchParallel splits records into batches, runs one search per batch on a
// bounded pool and returns the output paths in batch order. The first failure
// cancels the remaining batches.
func (b *Bridge) SearchParallel(ctx context.Context, req ParallelRequest) ([]string, error) {
	if len(req.Records) == 0 {
		return nil, nil
	}
	// validate before writing any batch file
	if _, err := b.searchArgs(SearchRequest{
		Program: req.Program, DB: req.DB, Query: "-", Out: req.Out, Flags: req.Flags,
	}); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(b.tmpDir, "blastxml-batch-")
	if err != nil {
		return nil, fmt.Errorf("create batch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	batches := fasta.Batch(req.Records, b.batchSize)
	inputs := make([]string, len(batches))
	for i, batch := range batches {
		path := filepath.Join(dir, fmt.Sprintf("batch-%d.fasta", i))
		if err := writeFASTA(path, batch); err != nil {
			return nil, err
		}
		inputs[i] = path
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs := make([]string, len(batches))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	workers := min(b.workers, len(batches))
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				out, err := b.Search(ctx, SearchRequest{
					Program: req.Program,
					DB:      req.DB,
					Query:   inputs[i],
					Out:     fmt.Sprintf("%s.%d", req.Out, i),
					Flags:   req.Flags,
				})
				if err != nil {
					once.Do(func() {
						firstErr = fmt.Errorf("batch %d: %w", i, err)
						cancel()
					})
					continue
				}
				outputs[i] = out
			}
		}()
	}

feed:
	for i := range batches {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.logger.Info("parallel search finished",
		zap.String("program", req.Program),
		zap.Int("records", len(req.Records)),
		zap.Int("batches", len(batches)),
	)
	return outputs, nil
}

// MakeDB builds a BLAST database and returns its path prefix.
func (b *Bridge) MakeDB(ctx context.Context, req MakeDBRequest) (string, error) {
	if err := validateDBType(req.DBType); err != nil {
		return "", err
	}
	if req.In == "" || req.Out == "" {
		return "", fmt.Errorf("%w: in and out are required", domain.ErrInvalidArgument)
	}
	args := []string{"-in", req.In, "-dbtype", req.DBType, "-out", req.Out}
	if req.Title != "" {
		args = append(args, "-title", req.Title)
	}
	if req.ParseSeqIDs {
		args = append(args, "-parse_seqids")
	}
	if err := b.runner.Run(ctx, Command{Name: "makeblastdb", Args: args}); err != nil {
		return "", err
	}
	return req.Out, nil
}

// Retrieve fetches FASTA records for the given accessions. Accessions missing
// from the database are skipped rather than reported as an error.
func (b *Bridge) Retrieve(ctx context.Context, req RetrieveRequest) ([]fasta.Record, error) {
	if err := validateDBType(req.DBType); err != nil {
		return nil, err
	}
	if req.DB == "" {
		return nil, fmt.Errorf("%w: db is required", domain.ErrInvalidArgument)
	}
	if len(req.Accessions) == 0 {
		return nil, nil
	}

	args := []string{"-db", req.DB, "-dbtype", req.DBType}
	if len(req.Accessions) <= b.maxInline {
		args = append(args, "-entry", strings.Join(req.Accessions, ","))
	} else {
		f, err := os.CreateTemp(b.tmpDir, "blastxml-entries-*.txt")
		if err != nil {
			return nil, fmt.Errorf("create entry batch: %w", err)
		}
		defer os.Remove(f.Name())
		_, werr := f.WriteString(strings.Join(req.Accessions, "\n") + "\n")
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return nil, fmt.Errorf("write entry batch: %w", werr)
		}
		args = append(args, "-entry_batch", f.Name())
	}

	var stdout bytes.Buffer
	err := b.runner.Run(ctx, Command{Name: "blastdbcmd", Args: args, Stdout: &stdout})
	if err != nil {
		var te *domain.ToolError
		if !errors.As(err, &te) || !strings.Contains(te.Stderr, oidNotFound) {
			return nil, err
		}
		b.logger.Warn("some accessions not found", zap.String("db", req.DB), zap.Int("requested", len(req.Accessions)))
	}

	recs, err := fasta.NewReader(&stdout).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse blastdbcmd output: %w", err)
	}
	return recs, nil
}

func validateDBType(t string) error {
	switch t {
	case DBTypeProtein, DBTypeNucleotide:
		return nil
	default:
		return fmt.Errorf("%w: dbtype must be %q or %q, got %q",
			domain.ErrInvalidArgument, DBTypeProtein, DBTypeNucleotide, t)
	}
}

func writeFASTA(path string, recs []fasta.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fasta.Write(f, recs...); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
