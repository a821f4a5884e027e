// Package blastxml reads BLAST XML (-outfmt 5) reports.
//
// Parse streams a report and returns its iterations with hits that pass a
// significance criterion; Render draws the classic three-line alignment of an
// HSP. Client stores parsed reports in Redis or Valkey:
//
//	c, err := blastxml.New(blastxml.WithRedis("localhost:6379", ""))
//	if err != nil { ... }
//	defer c.Close()
//
//	sum, err := c.Ingest(ctx, "run1", f, blastxml.ByEValue(1e-5))
//	hits, err := c.Hits(ctx, "run1", "sp|P01013|OVAX_CHICK", blastxml.Criterion{})
package blastxml
