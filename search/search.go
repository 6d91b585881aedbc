// Package search provides an optional in-memory bleve term index used to
// accelerate the Term filter's wild mode over large
// candidate sets, grounded in terminology/bleve.go's document/index-mapping
// shape. It is an acceleration structure only: the filter package always has
// a correct, index-free fallback (a linear scan over backend.GetDescriptions)
// and behaves identically whether or not an Index is attached to the
// evaluator.
package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"

	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/identifier"
)

// document mirrors terminology/bleve.go's document: one row per description,
// identified by its description ID (so a match maps back to the owning
// concept via the index's descToConcept table).
type document struct {
	ID   string
	Term string
}

// Index is an in-memory bleve index over every description of every concept
// a backend knows about, built once (like closure.Cache) and safe for
// concurrent read-only queries thereafter.
type Index struct {
	bleve         bleve.Index
	descToConcept map[string]identifier.ConceptID
}

// Build indexes every description, active or not, returned by source.GetDescriptions
// across source.AllConceptIDs. Unlike terminology's NewBleveIndex, this index
// is always memory-only: persistence is explicitly out of this engine's
// scope, so there is no on-disk path to open or create.
func Build(ctx context.Context, source backend.Backend) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	mapping.AddDocumentMapping("document", docMapping)
	mapping.DefaultType = "document"

	termMapping := bleve.NewTextFieldMapping()
	termMapping.Analyzer = keyword.Name
	termMapping.Store = false
	docMapping.AddFieldMappingsAt("Term", termMapping)

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}

	out := &Index{bleve: idx, descToConcept: make(map[string]identifier.ConceptID)}
	ch, err := source.AllConceptIDs(ctx)
	if err != nil {
		return nil, err
	}
	batch := idx.NewBatch()
	for r := range ch {
		if r.Err != nil {
			return nil, r.Err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		descs, err := source.GetDescriptions(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range descs {
			key := strconv.FormatUint(uint64(d.ID), 10)
			out.descToConcept[key] = r.ID
			// The keyword analyzer keeps the term as one verbatim token, so
			// it is lower-cased here to match MatchConcepts' lower-cased pattern.
			if err := batch.Index(key, document{ID: key, Term: strings.ToLower(d.Term)}); err != nil {
				return nil, err
			}
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, err
	}
	return out, nil
}

// searchPageSize bounds each individual bleve request; MatchConcepts pages
// through req.From until every hit reported by res.Total has been visited,
// so a match set larger than one page can never be silently truncated.
const searchPageSize = 10000

// MatchConcepts runs a wildcard-style query (`*` as glob, case-insensitive)
// over the indexed terms and returns the distinct owning concept IDs of
// every description whose term matches pattern. Results are paged rather
// than capped at one request's Size, since the eval package's
// narrowByTermIndex drops every candidate absent from this result; a
// silently-truncated hit list would lose true positives for patterns
// matching more than one page of descriptions.
func (idx *Index) MatchConcepts(pattern string) ([]identifier.ConceptID, error) {
	q := bleve.NewWildcardQuery(strings.ToLower(pattern))
	q.SetField("Term")

	seen := make(map[identifier.ConceptID]bool)
	var out []identifier.ConceptID
	for from := 0; ; from += searchPageSize {
		req := bleve.NewSearchRequestOptions(q, searchPageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := idx.bleve.Search(req)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			cid, ok := idx.descToConcept[hit.ID]
			if !ok || seen[cid] {
				continue
			}
			seen[cid] = true
			out = append(out, cid)
		}
		if uint64(from+len(res.Hits)) >= res.Total || len(res.Hits) == 0 {
			break
		}
	}
	return out, nil
}
