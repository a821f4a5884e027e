package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	logpkg "github.com/kailas-cloud/blastxml/internal/logger"
	"github.com/kailas-cloud/blastxml/internal/toolbridge"
	"github.com/kailas-cloud/blastxml/internal/version"
)

// newRunner builds the subprocess runner; tests swap it for a fake.
var newRunner = func(binDir string, logger *zap.Logger) toolbridge.Runner {
	return toolbridge.NewExecRunner(binDir, logger)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blastview",
		Short: "Inspect BLAST XML reports and run BLAST+ tools",
		Long: `Inspect BLAST XML reports and run BLAST+ tools

Reports and FASTA inputs may be plain or compressed (gzip, xz, zstd, bzip2);
use "-" to read from stdin.
`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "print debug logs to stderr")
	root.PersistentFlags().String("bin-dir", "", "directory holding the BLAST+ binaries (default: $PATH)")

	root.AddCommand(
		newShowCmd(),
		newHitsCmd(),
		newSearchCmd(),
		newMakeDBCmd(),
		newFetchCmd(),
	)
	return root
}

func getLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level := ""
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logpkg.NewLogger("cli", level)
}

func getBridge(cmd *cobra.Command) (*toolbridge.Bridge, *zap.Logger, error) {
	logger, err := getLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	binDir, _ := cmd.Flags().GetString("bin-dir")
	return toolbridge.New(newRunner(binDir, logger), logger), logger, nil
}

// addCriterionFlags registers the mutually exclusive significance thresholds.
func addCriterionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64P("evalue", "e", 0, "keep hits with an HSP whose e-value is at most this")
	cmd.Flags().Float64P("bitscore", "b", 0, "keep hits with an HSP whose bit score is at least this")
	cmd.MarkFlagsMutuallyExclusive("evalue", "bitscore")
}

func getCriterion(cmd *cobra.Command) (blast.Criterion, error) {
	var c blast.Criterion
	if cmd.Flags().Changed("evalue") {
		v, err := cmd.Flags().GetFloat64("evalue")
		if err != nil {
			return c, fmt.Errorf("evalue: %w", err)
		}
		c = blast.ByEValue(v)
	}
	if cmd.Flags().Changed("bitscore") {
		v, err := cmd.Flags().GetFloat64("bitscore")
		if err != nil {
			return c, fmt.Errorf("bitscore: %w", err)
		}
		c.MinBitScore = &v
	}
	return c, c.Validate()
}
