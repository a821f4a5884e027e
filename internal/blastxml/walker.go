// Package blastxml streams BLAST XML (format 1) reports and turns their
// Iteration, Hit and Hsp elements into typed records.
package blastxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/kailas-cloud/blastxml/internal/domain"
)

// Walker yields one IterationNode per query, in report order, decoding each
// Iteration sub-tree only when Next is called. A Walker is single-use and not
// safe for concurrent use.
type Walker struct {
	d      *xml.Decoder
	header *Node
	depth  int // 0 outside root, 1 inside BlastOutput, 2 inside BlastOutput_iterations
	seen   bool
	err    error
}

// NewWalker creates a Walker reading from r. The caller owns r.
func NewWalker(r io.Reader) *Walker {
	return &Walker{
		d:      xml.NewDecoder(r),
		header: &Node{Name: tagRoot},
	}
}

// Header returns the BlastOutput children read so far, excluding the
// iterations container. It is complete once the first iteration is yielded.
func (w *Walker) Header() *Node { return w.header }

// Next returns the next iteration. It returns io.EOF after the last one.
// Malformed XML or a report without BlastOutput_iterations yields an error
// wrapping domain.ErrMalformedInput; errors are sticky.
func (w *Walker) Next() (IterationNode, error) {
	if w.err != nil {
		return IterationNode{}, w.err
	}
	it, err := w.next()
	if err != nil {
		w.err = err
	}
	return it, err
}

// All exposes the walker as a sequence. Iteration stops after the first error.
func (w *Walker) All() iter.Seq2[IterationNode, error] {
	return func(yield func(IterationNode, error) bool) {
		for {
			it, err := w.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(it, err) || err != nil {
				return
			}
		}
	}
}

func (w *Walker) next() (IterationNode, error) {
	for {
		tok, err := w.d.Token()
		if errors.Is(err, io.EOF) {
			if !w.seen {
				return IterationNode{}, fmt.Errorf("missing %s container: %w", tagIterations, domain.ErrMalformedInput)
			}
			return IterationNode{}, io.EOF
		}
		if err != nil {
			return IterationNode{}, fmt.Errorf("read report: %w: %w", domain.ErrMalformedInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			it, ok, err := w.start(t)
			if err != nil {
				return IterationNode{}, err
			}
			if ok {
				return it, nil
			}
		case xml.EndElement:
			w.depth--
		}
	}
}

// start handles a start element at the current depth. Sub-trees below the
// iterations container are decoded whole.
func (w *Walker) start(t xml.StartElement) (IterationNode, bool, error) {
	switch w.depth {
	case 0:
		if t.Name.Local != tagRoot {
			return IterationNode{}, false, fmt.Errorf("unexpected root element %q: %w", t.Name.Local, domain.ErrMalformedInput)
		}
		w.depth++
	case 1:
		if t.Name.Local == tagIterations {
			w.seen = true
			w.depth++
			return IterationNode{}, false, nil
		}
		n, err := readNode(w.d, t)
		if err != nil {
			return IterationNode{}, false, fmt.Errorf("read %s: %w: %w", t.Name.Local, domain.ErrMalformedInput, err)
		}
		w.header.Children = append(w.header.Children, n)
	default:
		n, err := readNode(w.d, t)
		if err != nil {
			return IterationNode{}, false, fmt.Errorf("read %s: %w: %w", t.Name.Local, domain.ErrMalformedInput, err)
		}
		if n.Name == tagIteration {
			return IterationNode{node: n}, true, nil
		}
	}
	return IterationNode{}, false, nil
}
