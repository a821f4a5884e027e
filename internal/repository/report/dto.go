package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// Hash field names.
const (
	fieldHeader         = "header"
	fieldIterations     = "iterations"
	fieldHits           = "hits"
	fieldIngestedAt     = "ingested_at"
	fieldNumber         = "number"
	fieldQueryID        = "query_id"
	fieldQueryAccession = "query_accession"
	fieldQueryDef       = "query_def"
	fieldQueryLen       = "query_len"
	fieldMessage        = "message"
	fieldStat           = "stat"
	fieldHitNumbers     = "hit_numbers"
)

func summaryFields(s *blast.Summary) (map[string]string, error) {
	header, err := json.Marshal(s.Header)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	return map[string]string{
		fieldHeader:     string(header),
		fieldIterations: strconv.Itoa(s.Iterations),
		fieldHits:       strconv.Itoa(s.Hits),
		fieldIngestedAt: s.IngestedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func parseSummary(id string, m map[string]string) (blast.Summary, error) {
	s := blast.Summary{ID: id}
	if raw := m[fieldHeader]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Header); err != nil {
			return blast.Summary{}, fmt.Errorf("report %s: unmarshal header: %w", id, err)
		}
	}
	s.Iterations, _ = strconv.Atoi(m[fieldIterations])
	s.Hits, _ = strconv.Atoi(m[fieldHits])
	if ts := m[fieldIngestedAt]; ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return blast.Summary{}, fmt.Errorf("report %s: ingested_at: %w", id, err)
		}
		s.IngestedAt = t
	}
	return s, nil
}

func iterationFields(it *blast.Iteration) (map[string]string, error) {
	stat, err := json.Marshal(it.Stat)
	if err != nil {
		return nil, fmt.Errorf("marshal statistics: %w", err)
	}
	nums := make([]string, len(it.Hits))
	for i := range it.Hits {
		nums[i] = strconv.Itoa(it.Hits[i].Number)
	}
	return map[string]string{
		fieldNumber:         strconv.Itoa(it.Number),
		fieldQueryID:        it.QueryID,
		fieldQueryAccession: it.QueryAccession,
		fieldQueryDef:       it.QueryDef,
		fieldQueryLen:       strconv.Itoa(it.QueryLen),
		fieldMessage:        it.Message,
		fieldStat:           string(stat),
		fieldHitNumbers:     strings.Join(nums, ","),
	}, nil
}

func parseIteration(m map[string]string) (blast.Iteration, error) {
	it := blast.Iteration{
		QueryID:        m[fieldQueryID],
		QueryAccession: m[fieldQueryAccession],
		QueryDef:       m[fieldQueryDef],
		Message:        m[fieldMessage],
	}
	it.Number, _ = strconv.Atoi(m[fieldNumber])
	it.QueryLen, _ = strconv.Atoi(m[fieldQueryLen])
	if raw := m[fieldStat]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &it.Stat); err != nil {
			return blast.Iteration{}, fmt.Errorf("iteration %s: unmarshal statistics: %w", it.QueryAccession, err)
		}
	}
	return it, nil
}

func parseNumbers(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("hit number %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}
