package chi

import (
	"time"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

// errorCode is the machine-readable error code returned to clients.
type errorCode string

const (
	codeBadRequest      errorCode = "bad_request"
	codeUnauthorized    errorCode = "unauthorized"
	codeMalformedInput  errorCode = "malformed_input"
	codeFieldCoercion   errorCode = "field_coercion"
	codeInvalidArgument errorCode = "invalid_argument"
	codeReportNotFound  errorCode = "report_not_found"
	codeQueryNotFound   errorCode = "query_not_found"
	codeHitNotFound     errorCode = "hit_not_found"
	codeToolFailure     errorCode = "tool_failure"
	codeTooLarge        errorCode = "payload_too_large"
	codeSearchDisabled  errorCode = "search_disabled"
	codeInternalError   errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type summaryResponse struct {
	ID         string       `json:"id"`
	Header     blast.Header `json:"header"`
	Iterations int          `json:"iterations"`
	Hits       int          `json:"hits"`
	IngestedAt time.Time    `json:"ingested_at"`
}

type queryResponse struct {
	Number         int              `json:"number"`
	QueryID        string           `json:"query_id,omitempty"`
	QueryAccession string           `json:"query_accession"`
	QueryDef       string           `json:"query_def"`
	QueryLen       int              `json:"query_len"`
	Message        string           `json:"message,omitempty"`
	Stat           blast.Statistics `json:"stat"`
}

type reportResponse struct {
	summaryResponse
	Queries []queryResponse `json:"queries"`
}

type hitListResponse struct {
	Report string      `json:"report"`
	Query  string      `json:"query"`
	Items  []blast.Hit `json:"items"`
}

type searchRequest struct {
	ReportID string            `json:"report_id"`
	Program  string            `json:"program"`
	DB       string            `json:"db,omitempty"`
	Queries  string            `json:"queries"` // FASTA text
	Flags    map[string]string `json:"flags,omitempty"`
	EValue   *float64          `json:"evalue,omitempty"`
	BitScore *float64          `json:"bitscore,omitempty"`
}

type searchResponse struct {
	Reports []summaryResponse `json:"reports"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func summaryToDTO(s *blast.Summary) summaryResponse {
	return summaryResponse{
		ID:         s.ID,
		Header:     s.Header,
		Iterations: s.Iterations,
		Hits:       s.Hits,
		IngestedAt: s.IngestedAt,
	}
}

func queryToDTO(it *blast.Iteration) queryResponse {
	return queryResponse{
		Number:         it.Number,
		QueryID:        it.QueryID,
		QueryAccession: it.QueryAccession,
		QueryDef:       it.QueryDef,
		QueryLen:       it.QueryLen,
		Message:        it.Message,
		Stat:           it.Stat,
	}
}
