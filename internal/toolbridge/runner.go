// Package toolbridge runs NCBI BLAST+ binaries (search, makeblastdb, blastdbcmd)
// as subprocesses and surfaces their failures as domain.ToolError.
package toolbridge

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/domain"
)

// Command is one subprocess invocation.
type Command struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes a Command and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// BinDir, when set, is prepended to every command name.
	BinDir string
	logger *zap.Logger
}

// NewExecRunner creates a runner resolving binaries from binDir (or PATH when empty).
func NewExecRunner(binDir string, logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{BinDir: binDir, logger: logger}
}

// Run starts the command and waits for it. A non-zero exit or launch failure
// is returned as *domain.ToolError carrying the captured stderr.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	name := r.resolve(c.Name)
	cmd := exec.CommandContext(ctx, name, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("exec", zap.String("cmd", c.String()))
	if err := cmd.Run(); err != nil {
		return &domain.ToolError{
			Command: c.String(),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return nil
}

// LookPath reports whether the named binary can be found.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(r.resolve(name))
	if err != nil {
		return "", &domain.ToolError{Command: name, Err: err}
	}
	return path, nil
}

func (r *ExecRunner) resolve(name string) string {
	if r.BinDir == "" {
		return name
	}
	return filepath.Join(r.BinDir, name)
}
