package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/blastxml/internal/alignment"
	"github.com/kailas-cloud/blastxml/internal/blastxml"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <report.xml[.gz]>",
		Short: "Print pairwise alignments of a BLAST XML report",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	addCriterionFlags(cmd)
	cmd.Flags().StringP("query", "q", "", "only show this query (accession or query-ID)")
	cmd.Flags().Bool("no-color", false, "disable colored hit headers")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := getCriterion(cmd)
	if err != nil {
		return err
	}
	only, _ := cmd.Flags().GetString("query")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var hl alignment.Highlighter
	if !noColor {
		hl = highlighter(color.New(color.FgGreen, color.Bold))
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	return eachIteration(args[0], c, func(it *blast.Iteration) error {
		if only != "" && it.QueryAccession != only && it.QueryID != only {
			return nil
		}
		return writeIteration(out, it, hl)
	})
}

func highlighter(c *color.Color) alignment.Highlighter {
	return func(s string) string { return c.Sprint(s) }
}

func writeIteration(w io.Writer, it *blast.Iteration, hl alignment.Highlighter) error {
	if _, err := fmt.Fprintf(w, "Query= %s\nLength=%d\n\n", it.QueryDef, it.QueryLen); err != nil {
		return err
	}
	if len(it.Hits) == 0 {
		msg := it.Message
		if msg == "" {
			msg = "No hits found"
		}
		_, err := fmt.Fprintf(w, "***** %s *****\n\n", msg)
		return err
	}
	for i := range it.Hits {
		if err := alignment.WriteHit(w, &it.Hits[i], hl); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// eachIteration streams the report at path, building and filtering one
// iteration at a time.
func eachIteration(path string, c blast.Criterion, fn func(*blast.Iteration) error) error {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	for node, err := range blastxml.NewWalker(fh).All() {
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		it, err := blastxml.BuildIteration(node)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if it.Hits, err = blast.Filter(it.Hits, c); err != nil {
			return err
		}
		if err := fn(&it); err != nil {
			return err
		}
	}
	return nil
}
