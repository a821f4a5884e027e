package blast

import (
	"fmt"

	"github.com/kailas-cloud/blastxml/internal/domain"
)

// Criterion selects hits by significance. At most one threshold may be set;
// an empty Criterion keeps every hit.
type Criterion struct {
	MaxEValue   *float64
	MinBitScore *float64
}

// ByEValue keeps hits with at least one HSP whose e-value is <= threshold.
func ByEValue(threshold float64) Criterion {
	return Criterion{MaxEValue: &threshold}
}

// ByBitScore keeps hits with at least one HSP whose bit-score is >= threshold.
func ByBitScore(threshold float64) Criterion {
	return Criterion{MinBitScore: &threshold}
}

// Validate rejects criteria that set both thresholds.
func (c Criterion) Validate() error {
	if c.MaxEValue != nil && c.MinBitScore != nil {
		return fmt.Errorf("e-value and bit-score thresholds are mutually exclusive: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// IsZero reports whether no threshold is set.
func (c Criterion) IsZero() bool {
	return c.MaxEValue == nil && c.MinBitScore == nil
}

// IsSignificant reports whether any HSP of hit meets the criterion.
// An empty criterion accepts every hit.
func IsSignificant(hit *Hit, c Criterion) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	return c.anyHSP(hit), nil
}

// Filter returns the hits meeting c, preserving order. The input is not modified.
func Filter(hits []Hit, c Criterion) ([]Hit, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.IsZero() {
		return hits, nil
	}
	out := make([]Hit, 0, len(hits))
	for i := range hits {
		if c.anyHSP(&hits[i]) {
			out = append(out, hits[i])
		}
	}
	return out, nil
}

// anyHSP reports whether some HSP of hit passes c. c must be valid.
func (c Criterion) anyHSP(hit *Hit) bool {
	if c.IsZero() {
		return true
	}
	for i := range hit.HSPs {
		if c.accepts(&hit.HSPs[i]) {
			return true
		}
	}
	return false
}

func (c Criterion) accepts(h *HSP) bool {
	switch {
	case c.MaxEValue != nil:
		return h.EValue != nil && *h.EValue <= *c.MaxEValue
	case c.MinBitScore != nil:
		return h.BitScore != nil && *h.BitScore >= *c.MinBitScore
	default:
		return true
	}
}
