package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/blastxml/internal/domain"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	healthuc "github.com/kailas-cloud/blastxml/internal/usecase/health"
	searchuc "github.com/kailas-cloud/blastxml/internal/usecase/search"
)

// DefaultMaxBodyBytes caps uploaded reports.
const DefaultMaxBodyBytes = 256 << 20

// ReportService is the report use case as seen by the transport.
type ReportService interface {
	Ingest(ctx context.Context, id string, r io.Reader, c blast.Criterion) (blast.Summary, error)
	Summary(ctx context.Context, id string) (blast.Summary, error)
	Iterations(ctx context.Context, id string) ([]blast.Iteration, error)
	Hits(ctx context.Context, id, query string, c blast.Criterion) ([]blast.Hit, error)
	Hit(ctx context.Context, id, query string, num int) (blast.Hit, error)
	Delete(ctx context.Context, id string) error
}

// SearchService runs BLAST and ingests its output.
type SearchService interface {
	Run(ctx context.Context, req searchuc.Request) ([]blast.Summary, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the report HTTP API.
type Server struct {
	reports       ReportService
	search        SearchService
	health        HealthChecker
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. search may be nil to disable POST /searches.
func NewServer(reports ReportService, search SearchService, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		reports:      reports,
		search:       search,
		health:       health,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		bodyTooLargeHandler,
		coercionHandler,
		sentinelHandler(domain.ErrMalformedInput, http.StatusBadRequest, codeMalformedInput),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeInvalidArgument),
		sentinelHandler(domain.ErrReportNotFound, http.StatusNotFound, codeReportNotFound),
		sentinelHandler(domain.ErrQueryNotFound, http.StatusNotFound, codeQueryNotFound),
		sentinelHandler(domain.ErrHitNotFound, http.StatusNotFound, codeHitNotFound),
		toolFailureHandler,
	}
	return s
}

// WithMaxBodyBytes caps request bodies.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/reports/{report}", func(r chi.Router) {
		r.Post("/", s.IngestReport)
		r.Get("/", s.GetReport)
		r.Delete("/", s.DeleteReport)
		r.Get("/queries/{query}/hits", s.ListHits)
		r.Get("/queries/{query}/hits/{num}", s.GetHit)
		r.Get("/queries/{query}/hits/{num}/alignment", s.GetAlignment)
	})
	r.Post("/searches", s.RunSearch)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	var fce *domain.FieldCoercionError
	if errors.As(err, &fce) {
		return fce.Error()
	}
	var te *domain.ToolError
	if errors.As(err, &te) {
		if line, _, _ := strings.Cut(te.Stderr, "\n"); line != "" {
			return domain.ErrToolFailure.Error() + ": " + line
		}
		return domain.ErrToolFailure.Error()
	}
	if errors.Is(err, domain.ErrMalformedInput) || errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrReportNotFound,
		domain.ErrQueryNotFound,
		domain.ErrHitNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func coercionHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrFieldCoercion) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeFieldCoercion, msg)
	return true
}

func toolFailureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrToolFailure) {
		return false
	}
	writeError(w, http.StatusBadGateway, codeToolFailure, msg)
	return true
}

func bodyTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
