package report

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/blastxml/internal/db"
	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// DefaultPrefix namespaces every key written by the repository.
const DefaultPrefix = "blastxml:"

// store is the consumer interface for reports (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.KVSetItem, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements usecase/report.Repository.
//
// Key layout (all keys of one report share the {id} hash tag):
//
//	<prefix>report:{id}                 hash  summary
//	<prefix>report:{id}:queries         hash  query-ID / accession -> iteration number
//	<prefix>report:{id}:iter:<iter>     hash  iteration without hits
//	<prefix>report:{id}:hit:<iter>:<n>  JSON  hit with HSPs
//
// Iterations are keyed by number, so queries sharing an accession never
// overwrite each other. An accession carried by several iterations resolves
// to the last one saved.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a report repository. A zero ttl keeps reports forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// SaveIteration stores one iteration and its hits. it.Number must be positive
// and unique within the report.
func (r *Repo) SaveIteration(ctx context.Context, id string, it *blast.Iteration) error {
	if it.Number <= 0 {
		return fmt.Errorf("iteration number %d: %w", it.Number, domain.ErrInvalidArgument)
	}

	items := make([]db.KVSetItem, 0, len(it.Hits))
	for i := range it.Hits {
		h := &it.Hits[i]
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("marshal hit %d: %w", h.Number, err)
		}
		items = append(items, db.KVSetItem{Key: r.hitKey(id, it.Number, h.Number), Value: data})
	}
	if err := r.store.SetMulti(ctx, items, r.ttl); err != nil {
		return fmt.Errorf("save hits %s/%d: %w", id, it.Number, err)
	}

	fields, err := iterationFields(it)
	if err != nil {
		return err
	}
	key := r.iterKey(id, it.Number)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.expire(ctx, key); err != nil {
		return err
	}

	names := make(map[string]string, 2)
	num := strconv.Itoa(it.Number)
	for _, name := range []string{it.QueryAccession, it.QueryID} {
		if name != "" {
			names[name] = num
		}
	}
	if len(names) == 0 {
		return nil
	}
	idx := r.queriesKey(id)
	if err := r.store.HSet(ctx, idx, names); err != nil {
		return fmt.Errorf("hset %s: %w", idx, err)
	}
	return r.expire(ctx, idx)
}

// SaveSummary stores the report summary. It is written last so a report
// only becomes visible once every iteration is stored.
func (r *Repo) SaveSummary(ctx context.Context, s *blast.Summary) error {
	fields, err := summaryFields(s)
	if err != nil {
		return err
	}
	key := r.reportKey(s.ID)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return r.expire(ctx, key)
}

// Summary returns the stored report summary.
func (r *Repo) Summary(ctx context.Context, id string) (blast.Summary, error) {
	key := r.reportKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return blast.Summary{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return blast.Summary{}, domain.ErrReportNotFound
	}
	return parseSummary(id, m)
}

// Iterations returns every stored iteration of a report, without hits, in report order.
func (r *Repo) Iterations(ctx context.Context, id string) ([]blast.Iteration, error) {
	if err := r.mustExist(ctx, id); err != nil {
		return nil, err
	}

	keys, err := r.store.Scan(ctx, escapeGlob(r.reportKey(id))+":iter:*")
	if err != nil {
		return nil, fmt.Errorf("scan iterations %s: %w", id, err)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load iterations %s: %w", id, err)
	}

	its := make([]blast.Iteration, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		it, err := parseIteration(m)
		if err != nil {
			return nil, err
		}
		its = append(its, it)
	}
	slices.SortFunc(its, func(a, b blast.Iteration) int { return cmp.Compare(a.Number, b.Number) })
	return its, nil
}

// Hits returns the stored hits of one query in report order. query is a
// query-ID, a query accession or an iteration number.
func (r *Repo) Hits(ctx context.Context, id, query string) ([]blast.Hit, error) {
	num, err := r.resolveQuery(ctx, id, query)
	if err != nil {
		return nil, err
	}
	key := r.iterKey(id, num)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		if err := r.mustExist(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrQueryNotFound
	}

	nums, err := parseNumbers(m[fieldHitNumbers])
	if err != nil {
		return nil, fmt.Errorf("iteration %s: %w", key, err)
	}
	if len(nums) == 0 {
		return []blast.Hit{}, nil
	}

	keys := make([]string, len(nums))
	for i, n := range nums {
		keys[i] = r.hitKey(id, num, n)
	}
	raws, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load hits %s/%s: %w", id, query, err)
	}

	hits := make([]blast.Hit, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var h blast.Hit
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", keys[i], err)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Hit returns one stored hit.
func (r *Repo) Hit(ctx context.Context, id, query string, num int) (blast.Hit, error) {
	iter, err := r.resolveQuery(ctx, id, query)
	if err != nil {
		return blast.Hit{}, err
	}
	key := r.hitKey(id, iter, num)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return blast.Hit{}, domain.ErrHitNotFound
		}
		return blast.Hit{}, fmt.Errorf("get %s: %w", key, err)
	}
	var h blast.Hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return blast.Hit{}, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return h, nil
}

// Delete removes a report and everything stored under it.
func (r *Repo) Delete(ctx context.Context, id string) error {
	keys, err := r.store.Scan(ctx, escapeGlob(r.reportKey(id))+"*")
	if err != nil {
		return fmt.Errorf("scan %s: %w", id, err)
	}
	if len(keys) == 0 {
		return domain.ErrReportNotFound
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// resolveQuery maps a query name to its iteration number. Indexed names
// win over a bare number, since accessions can be numeric.
func (r *Repo) resolveQuery(ctx context.Context, id, query string) (int, error) {
	idx := r.queriesKey(id)
	raw, err := r.store.HGet(ctx, idx, query)
	switch {
	case err == nil:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("index %s field %s: %w", idx, query, err)
		}
		return n, nil
	case !errors.Is(err, db.ErrKeyNotFound):
		return 0, fmt.Errorf("hget %s: %w", idx, err)
	}

	if n, err := strconv.Atoi(query); err == nil && n > 0 {
		return n, nil
	}
	if err := r.mustExist(ctx, id); err != nil {
		return 0, err
	}
	return 0, domain.ErrQueryNotFound
}

func (r *Repo) mustExist(ctx context.Context, id string) error {
	ok, err := r.store.Exists(ctx, r.reportKey(id))
	if err != nil {
		return fmt.Errorf("check exists %s: %w", id, err)
	}
	if !ok {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *Repo) expire(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (r *Repo) reportKey(id string) string {
	return r.prefix + "report:{" + id + "}"
}

func (r *Repo) queriesKey(id string) string {
	return r.reportKey(id) + ":queries"
}

func (r *Repo) iterKey(id string, iter int) string {
	return r.reportKey(id) + ":iter:" + strconv.Itoa(iter)
}

func (r *Repo) hitKey(id string, iter, num int) string {
	return r.reportKey(id) + ":hit:" + strconv.Itoa(iter) + ":" + strconv.Itoa(num)
}

// escapeGlob quotes the SCAN MATCH metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
