package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ToolLocator resolves a BLAST binary by name.
type ToolLocator interface {
	LookPath(name string) (string, error)
}
