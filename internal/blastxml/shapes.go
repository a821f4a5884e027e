package blastxml

import "strings"

// IterationNode is the navigable sub-tree of one Iteration element.
type IterationNode struct {
	node *Node
}

// Node returns the underlying element.
func (it IterationNode) Node() *Node { return it.node }

// Field returns the trimmed text of a direct Iteration_* child.
func (it IterationNode) Field(name string) (string, bool) { return Field(it.node, name) }

// QueryDef returns the full query definition line.
func (it IterationNode) QueryDef() string {
	s, _ := it.Field(tagIterQueryDef)
	return s
}

// QueryAccession returns the first whitespace-delimited token of the query definition line.
func (it IterationNode) QueryAccession() string {
	return firstToken(it.QueryDef())
}

// Hits returns the Hit children of Iteration_hits in report order.
func (it IterationNode) Hits() []HitNode {
	acc := it.QueryAccession()
	nodes := it.node.Child(tagIterHits).ChildrenNamed(tagHit)
	hits := make([]HitNode, len(nodes))
	for i, n := range nodes {
		hits[i] = HitNode{node: n, queryAccession: acc}
	}
	return hits
}

// Statistics returns the Iteration_stat/Statistics element, or nil.
func (it IterationNode) Statistics() *Node {
	return it.node.Child(tagIterStat).Child(tagStatistics)
}

// HitNode is the navigable sub-tree of one Hit element.
type HitNode struct {
	node           *Node
	queryAccession string
}

// Node returns the underlying element.
func (h HitNode) Node() *Node { return h.node }

// Field returns the trimmed text of a direct Hit_* child.
func (h HitNode) Field(name string) (string, bool) { return Field(h.node, name) }

// QueryAccession returns the accession of the owning iteration's query.
func (h HitNode) QueryAccession() string { return h.queryAccession }

// HSPs returns the Hsp children of Hit_hsps in report order.
func (h HitNode) HSPs() []HSPNode {
	nodes := h.node.Child(tagHitHSPs).ChildrenNamed(tagHSP)
	hsps := make([]HSPNode, len(nodes))
	for i, n := range nodes {
		hsps[i] = HSPNode{node: n}
	}
	return hsps
}

// HSPNode is the navigable sub-tree of one Hsp element.
type HSPNode struct {
	node *Node
}

// Node returns the underlying element.
func (h HSPNode) Node() *Node { return h.node }

// Field returns the trimmed text of a direct Hsp_* child.
func (h HSPNode) Field(name string) (string, bool) { return Field(h.node, name) }

// Midline returns Hsp_midline verbatim. Leading and trailing spaces mark
// mismatches and must survive, so the generic trimmed path is not used.
func (h HSPNode) Midline() (string, bool) { return RawField(h.node, tagHSPMidline) }

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
