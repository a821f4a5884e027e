// Package fasta reads and writes FASTA records for the BLAST tool bridge.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultColumns is the sequence wrap width used by Write.
const DefaultColumns = 60

// Record is one FASTA entry: a single-line header (without '>') and its sequence.
type Record struct {
	Header string
	Seq    []byte
}

// Accession returns the first whitespace-delimited token of the header.
func (r Record) Accession() string {
	if i := strings.IndexAny(r.Header, " \t"); i >= 0 {
		return r.Header[:i]
	}
	return r.Header
}

// A Reader reads records from FASTA input. Blank lines and surrounding
// whitespace are ignored. It is not safe for concurrent use.
type Reader struct {
	buf        *bufio.Reader
	line       int
	nextHeader string
	pending    bool
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{buf: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF after the last one.
func (r *Reader) Read() (Record, error) {
	var rec Record
	seenHeader := false
	if r.pending {
		rec.Header = r.nextHeader
		r.pending = false
		seenHeader = true
	}

	for {
		line, err := r.buf.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("read fasta line %d: %w", r.line+1, err)
		}
		atEOF := err != nil
		if len(line) > 0 {
			r.line++
		}
		line = bytes.TrimSpace(line)

		switch {
		case len(line) == 0:
		case line[0] == '>':
			if seenHeader {
				r.nextHeader = string(bytes.TrimSpace(line[1:]))
				r.pending = true
				return rec, nil
			}
			rec.Header = string(bytes.TrimSpace(line[1:]))
			seenHeader = true
		case !seenHeader:
			return Record{}, fmt.Errorf("fasta line %d: expected '>', got %q", r.line, line[0])
		default:
			rec.Seq = append(rec.Seq, line...)
		}

		if atEOF {
			if !seenHeader {
				return Record{}, io.EOF
			}
			return rec, nil
		}
	}
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// Write writes recs to w, wrapping sequences at DefaultColumns.
func Write(w io.Writer, recs ...Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := fmt.Fprintf(bw, ">%s\n", rec.Header); err != nil {
			return fmt.Errorf("write fasta header: %w", err)
		}
		for off := 0; off < len(rec.Seq); off += DefaultColumns {
			end := min(off+DefaultColumns, len(rec.Seq))
			if _, err := bw.Write(rec.Seq[off:end]); err != nil {
				return fmt.Errorf("write fasta sequence: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("write fasta sequence: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush fasta: %w", err)
	}
	return nil
}

// Batch partitions recs into consecutive slices of at most size records.
// size <= 0 yields a single batch.
func Batch(recs []Record, size int) [][]Record {
	if len(recs) == 0 {
		return nil
	}
	if size <= 0 || size >= len(recs) {
		return [][]Record{recs}
	}
	batches := make([][]Record, 0, (len(recs)+size-1)/size)
	for off := 0; off < len(recs); off += size {
		batches = append(batches, recs[off:min(off+size, len(recs))])
	}
	return batches
}
