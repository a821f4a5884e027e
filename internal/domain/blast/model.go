// Package blast holds the read-only record model built from a BLAST XML report.
package blast

import "time"

// Report is a fully materialized report: header plus every iteration in report order.
type Report struct {
	Header     Header      `json:"header"`
	Iterations []Iteration `json:"iterations"`
}

// Summary describes a stored report without its iterations.
type Summary struct {
	ID         string    `json:"id"`
	Header     Header    `json:"header"`
	Iterations int       `json:"iterations"`
	Hits       int       `json:"hits"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Header carries the BlastOutput_* fields that precede the iterations container.
type Header struct {
	Program   string     `json:"program,omitempty"`
	Version   string     `json:"version,omitempty"`
	Reference string     `json:"reference,omitempty"`
	DB        string     `json:"db,omitempty"`
	QueryID   string     `json:"query_id,omitempty"`
	QueryDef  string     `json:"query_def,omitempty"`
	QueryLen  int        `json:"query_len,omitempty"`
	Params    Parameters `json:"params"`
}

// Parameters are the search parameters echoed in BlastOutput_param.
type Parameters struct {
	Matrix    string   `json:"matrix,omitempty"`
	Expect    *float64 `json:"expect,omitempty"`
	GapOpen   *int     `json:"gap_open,omitempty"`
	GapExtend *int     `json:"gap_extend,omitempty"`
	Filter    string   `json:"filter,omitempty"`
}

// Iteration is one query's search result.
type Iteration struct {
	Number         int        `json:"number"`
	QueryID        string     `json:"query_id,omitempty"`
	QueryAccession string     `json:"query_accession"`
	QueryDef       string     `json:"query_def"`
	QueryLen       int        `json:"query_len"`
	Message        string     `json:"message,omitempty"`
	Stat           Statistics `json:"stat"`
	Hits           []Hit      `json:"hits"`
}

// Statistics mirrors Iteration_stat/Statistics. Every field is optional.
type Statistics struct {
	DBNum    *int     `json:"db_num,omitempty"`
	DBLen    *int     `json:"db_len,omitempty"`
	HSPLen   *int     `json:"hsp_len,omitempty"`
	EffSpace *float64 `json:"eff_space,omitempty"`
	Kappa    *float64 `json:"kappa,omitempty"`
	Lambda   *float64 `json:"lambda,omitempty"`
	Entropy  *float64 `json:"entropy,omitempty"`
}

// Hit is one database sequence matched by a query.
type Hit struct {
	ID             string `json:"id"`
	Length         int    `json:"length"`
	Accession      string `json:"accession"`
	Definition     string `json:"definition"`
	Number         int    `json:"number"`
	QueryAccession string `json:"query_accession"`
	HSPs           []HSP  `json:"hsps"`
}

// HSP is one local alignment between query and hit.
// Absent numeric fields are nil, never zero.
type HSP struct {
	BitScore    *float64 `json:"bit_score"`
	Score       *float64 `json:"score"`
	EValue      *float64 `json:"evalue"`
	QueryFrom   *int     `json:"query_from"`
	QueryTo     *int     `json:"query_to"`
	HitFrom     *int     `json:"hit_from"`
	HitTo       *int     `json:"hit_to"`
	QueryFrame  *int     `json:"query_frame"`
	HitFrame    *int     `json:"hit_frame"`
	Identity    *int     `json:"identity"`
	Positive    *int     `json:"positive"`
	Gaps        *int     `json:"gaps"`
	AlignLen    *int     `json:"align_len"`
	Density     *int     `json:"density"`
	PatternFrom *int     `json:"pattern_from"`
	PatternTo   *int     `json:"pattern_to"`
	Num         *int     `json:"num"`
	QSeq        string   `json:"qseq"`
	HSeq        string   `json:"hseq"`
	Midline     string   `json:"midline"`
	Alignment   string   `json:"alignment"`
}

// ReverseStrand reports whether the hit coordinates run from high to low.
func (h *HSP) ReverseStrand() bool {
	return h.HitFrom != nil && h.HitTo != nil && *h.HitTo < *h.HitFrom
}

// TotalHits counts hits across all iterations.
func (r *Report) TotalHits() int {
	n := 0
	for i := range r.Iterations {
		n += len(r.Iterations[i].Hits)
	}
	return n
}
