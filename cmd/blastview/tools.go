package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/blastxml/internal/fasta"
	"github.com/kailas-cloud/blastxml/internal/toolbridge"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a BLAST search in parallel batches",
		Long: `Run a BLAST search in parallel batches

Query records are split into batches; batch n is written to <out-file>.<n>.
Extra BLAST flags are passed with -F, e.g. -F evalue=1e-5 -F num_threads=4.
`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}
	cmd.Flags().StringP("program", "p", "blastp", "BLAST program (blastn, blastp, blastx, tblastn, tblastx)")
	cmd.Flags().StringP("db", "d", "", "BLAST database")
	cmd.Flags().StringP("query", "i", "-", `query FASTA file ("-" for stdin)`)
	cmd.Flags().StringP("out-file", "o", "", "output prefix")
	cmd.Flags().IntP("batch-size", "s", toolbridge.DefaultBatchSize, "query records per batch")
	cmd.Flags().IntP("workers", "j", 1, "batches searched concurrently")
	cmd.Flags().StringToStringP("flag", "F", nil, "extra BLAST flag as key=value")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("out-file")
	return cmd
}

func runSearch(cmd *cobra.Command, _ []string) error {
	bridge, _, err := getBridge(cmd)
	if err != nil {
		return err
	}
	program, _ := cmd.Flags().GetString("program")
	db, _ := cmd.Flags().GetString("db")
	query, _ := cmd.Flags().GetString("query")
	out, _ := cmd.Flags().GetString("out-file")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	workers, _ := cmd.Flags().GetInt("workers")
	flags, _ := cmd.Flags().GetStringToString("flag")

	recs, err := readFASTA(query)
	if err != nil {
		return err
	}

	outs, err := bridge.WithBatchSize(batchSize).WithWorkers(workers).SearchParallel(cmd.Context(),
		toolbridge.ParallelRequest{
			Program: program,
			DB:      db,
			Records: recs,
			Out:     out,
			Flags:   flags,
		})
	if err != nil {
		return err
	}
	for _, o := range outs {
		fmt.Fprintln(cmd.OutOrStdout(), o)
	}
	return nil
}

func newMakeDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "makedb",
		Short: "Build a BLAST database with makeblastdb",
		Args:  cobra.NoArgs,
		RunE:  runMakeDB,
	}
	cmd.Flags().StringP("in", "i", "", "input FASTA file")
	cmd.Flags().StringP("dbtype", "t", toolbridge.DBTypeProtein, `molecule type: "prot" or "nucl"`)
	cmd.Flags().StringP("out", "o", "", "database name")
	cmd.Flags().String("title", "", "database title")
	cmd.Flags().Bool("parse-seqids", false, "parse sequence ids so records can be fetched by accession")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runMakeDB(cmd *cobra.Command, _ []string) error {
	bridge, _, err := getBridge(cmd)
	if err != nil {
		return err
	}
	req := toolbridge.MakeDBRequest{}
	req.In, _ = cmd.Flags().GetString("in")
	req.DBType, _ = cmd.Flags().GetString("dbtype")
	req.Out, _ = cmd.Flags().GetString("out")
	req.Title, _ = cmd.Flags().GetString("title")
	req.ParseSeqIDs, _ = cmd.Flags().GetBool("parse-seqids")

	db, err := bridge.MakeDB(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), db)
	return nil
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [accession...]",
		Short: "Retrieve sequences from a BLAST database with blastdbcmd",
		Long: `Retrieve sequences from a BLAST database with blastdbcmd

Accessions come from the arguments and/or a file with one accession per line.
Accessions missing from the database are skipped with a warning.
`,
		RunE: runFetch,
	}
	cmd.Flags().StringP("db", "d", "", "BLAST database")
	cmd.Flags().StringP("dbtype", "t", toolbridge.DBTypeProtein, `molecule type: "prot" or "nucl"`)
	cmd.Flags().StringP("accession-file", "a", "", "file of accessions, one per line")
	cmd.Flags().Int("max-inline", toolbridge.DefaultMaxInline, "largest accession list passed on the command line")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	bridge, _, err := getBridge(cmd)
	if err != nil {
		return err
	}
	db, _ := cmd.Flags().GetString("db")
	dbType, _ := cmd.Flags().GetString("dbtype")
	accFile, _ := cmd.Flags().GetString("accession-file")
	maxInline, _ := cmd.Flags().GetInt("max-inline")

	accs := append([]string(nil), args...)
	if accFile != "" {
		more, err := readLines(accFile)
		if err != nil {
			return err
		}
		accs = append(accs, more...)
	}
	if len(accs) == 0 {
		return fmt.Errorf("no accessions given")
	}

	recs, err := bridge.WithMaxInline(maxInline).Retrieve(cmd.Context(), toolbridge.RetrieveRequest{
		DB:         db,
		DBType:     dbType,
		Accessions: accs,
	})
	if err != nil {
		return err
	}
	return fasta.Write(cmd.OutOrStdout(), recs...)
}

func readFASTA(path string) ([]fasta.Record, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	recs, err := fasta.NewReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

func readLines(path string) ([]string, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	var lines []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
