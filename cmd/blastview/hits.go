package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/blastxml/internal/domain/blast"
)

var hitColumns = []string{
	"query", "hit", "id", "accession", "definition", "length",
	"hsps", "bit_score", "evalue", "identity", "align_len",
}

func newHitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hits <report.xml[.gz]>",
		Short: "Summarize hits as tab-delimited rows, one per hit",
		Long: `Summarize hits as tab-delimited rows, one per hit

Score columns describe the best HSP of each hit (highest bit score).
`,
		Args: cobra.ExactArgs(1),
		RunE: runHits,
	}
	addCriterionFlags(cmd)
	cmd.Flags().StringP("out-file", "o", "-", `out file ("-" for stdout, ".gz" suffix for gzipped output)`)
	cmd.Flags().Bool("no-header", false, "do not print the header row")
	return cmd
}

func runHits(cmd *cobra.Command, args []string) error {
	c, err := getCriterion(cmd)
	if err != nil {
		return err
	}
	outFile, _ := cmd.Flags().GetString("out-file")
	noHeader, _ := cmd.Flags().GetBool("no-header")

	var w io.Writer = cmd.OutOrStdout()
	if outFile != "-" {
		outfh, err := xopen.Wopen(outFile)
		if err != nil {
			return fmt.Errorf("create %s: %w", outFile, err)
		}
		defer outfh.Close()
		w = outfh
	}
	out := bufio.NewWriter(w)
	defer out.Flush()

	if !noHeader {
		fmt.Fprintln(out, strings.Join(hitColumns, "\t"))
	}
	return eachIteration(args[0], c, func(it *blast.Iteration) error {
		for i := range it.Hits {
			if _, err := fmt.Fprintln(out, strings.Join(hitRow(&it.Hits[i]), "\t")); err != nil {
				return err
			}
		}
		return nil
	})
}

func hitRow(h *blast.Hit) []string {
	row := []string{
		h.QueryAccession,
		strconv.Itoa(h.Number),
		h.ID,
		h.Accession,
		h.Definition,
		strconv.Itoa(h.Length),
		strconv.Itoa(len(h.HSPs)),
		"", "", "", "",
	}
	best := bestHSP(h)
	if best == nil {
		return row
	}
	row[7] = formatFloat(best.BitScore, 'f', 1)
	row[8] = formatFloat(best.EValue, 'g', 2)
	row[9] = formatInt(best.Identity)
	row[10] = formatInt(best.AlignLen)
	return row
}

func bestHSP(h *blast.Hit) *blast.HSP {
	var best *blast.HSP
	for i := range h.HSPs {
		hsp := &h.HSPs[i]
		if hsp.BitScore == nil {
			continue
		}
		if best == nil || *hsp.BitScore > *best.BitScore {
			best = hsp
		}
	}
	if best == nil && len(h.HSPs) > 0 {
		best = &h.HSPs[0]
	}
	return best
}

func formatFloat(v *float64, f byte, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, f, prec, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
