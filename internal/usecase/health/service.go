package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates stored reports are served but searches cannot run.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report is the aggregated status plus per-component results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service checks the database and the BLAST toolchain.
type Service struct {
	db       DBPinger
	tools    ToolLocator
	programs []string
}

// New creates a Service. tools can be nil when the search endpoint is disabled.
func New(db DBPinger, tools ToolLocator, programs ...string) *Service {
	return &Service{db: db, tools: tools, programs: programs}
}

// Check pings the database and resolves each configured BLAST program.
// A missing binary degrades the service; an unreachable database fails it.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: map[string]CheckResult{"database": CheckOK}}

	if err := s.db.Ping(ctx); err != nil {
		r.Checks["database"] = CheckError
		r.Status = Unhealthy
	}
	if s.tools == nil {
		return r
	}

	r.Checks["blast"] = s.lookupPrograms()
	if r.Checks["blast"] == CheckError && r.Status == Healthy {
		r.Status = Degraded
	}
	return r
}

func (s *Service) lookupPrograms() CheckResult {
	for _, p := range s.programs {
		if _, err := s.tools.LookPath(p); err != nil {
			return CheckError
		}
	}
	return CheckOK
}
