// Package closure builds a precomputed transitive IS-A closure from a
// backend and exposes it through the same capability interface, so the
// evaluator can treat a live store and a cached closure identically. Once
// built, a Cache is a read-only snapshot: rebuilding is explicit and there
// is no mutation API.
package closure

import (
	"context"
	"fmt"

	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/conceptset"
	"github.com/wardle/ecl/identifier"
)

// Cache is a backend.Backend that answers ancestor/descendant queries in
// O(1) from precomputed sets and delegates everything else - attributes,
// descriptions, refset membership, metadata - to the source backend it was
// built from.
type Cache struct {
	source      backend.Backend
	children    map[identifier.ConceptID][]identifier.ConceptID
	parents     map[identifier.ConceptID][]identifier.ConceptID
	descendants map[identifier.ConceptID]*conceptset.Set
	ancestors   map[identifier.ConceptID]*conceptset.Set
}

// Build computes the transitive closure of source's IS-A hierarchy. It
// performs one topological pass per direction, unioning child (or parent)
// sets bottom-up rather than re-walking the graph from every node.
func Build(ctx context.Context, source backend.Backend) (*Cache, error) {
	ch, err := source.AllConceptIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("closure: listing concepts: %w", err)
	}
	var ids []identifier.ConceptID
	for r := range ch {
		if r.Err != nil {
			return nil, fmt.Errorf("closure: streaming concepts: %w", r.Err)
		}
		ids = append(ids, r.ID)
	}

	c := &Cache{
		source:      source,
		children:    make(map[identifier.ConceptID][]identifier.ConceptID, len(ids)),
		parents:     make(map[identifier.ConceptID][]identifier.ConceptID, len(ids)),
		descendants: make(map[identifier.ConceptID]*conceptset.Set, len(ids)),
		ancestors:   make(map[identifier.ConceptID]*conceptset.Set, len(ids)),
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("closure: build: %w", err)
		}
		kids, err := source.GetChildren(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("closure: GetChildren(%d): %w", uint64(id), err)
		}
		c.children[id] = kids

		mums, err := source.GetParents(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("closure: GetParents(%d): %w", uint64(id), err)
		}
		c.parents[id] = mums
	}

	visiting := make(map[identifier.ConceptID]bool, len(ids))
	for _, id := range ids {
		if _, err := computeReachable(id, c.children, c.descendants, visiting); err != nil {
			return nil, err
		}
	}
	visiting = make(map[identifier.ConceptID]bool, len(ids))
	for _, id := range ids {
		if _, err := computeReachable(id, c.parents, c.ancestors, visiting); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// computeReachable memoizes the transitive closure of edges[id] (excluding
// id itself) into memo, using visiting as a defend-in-depth cycle guard: the
// SNOMED hierarchy is a DAG by invariant, but a malformed backend must not
// hang the builder.
func computeReachable(
	id identifier.ConceptID,
	edges map[identifier.ConceptID][]identifier.ConceptID,
	memo map[identifier.ConceptID]*conceptset.Set,
	visiting map[identifier.ConceptID]bool,
) (*conceptset.Set, error) {
	if s, ok := memo[id]; ok {
		return s, nil
	}
	if visiting[id] {
		return nil, fmt.Errorf("closure: cycle detected at concept %d", uint64(id))
	}
	visiting[id] = true
	defer delete(visiting, id)

	out := conceptset.New()
	for _, next := range edges[id] {
		out.Add(next)
		sub, err := computeReachable(next, edges, memo, visiting)
		if err != nil {
			return nil, err
		}
		out = conceptset.Union(out, sub)
	}
	memo[id] = out
	return out, nil
}

// Descendants returns the precomputed transitive descendant set of id,
// excluding id itself. The evaluator's hierarchy operators use this instead
// of walking GetChildren when they detect they are running against a Cache.
func (c *Cache) Descendants(id identifier.ConceptID) *conceptset.Set {
	if s, ok := c.descendants[id]; ok {
		return s
	}
	return conceptset.New()
}

// Ancestors returns the precomputed transitive ancestor set of id, excluding
// id itself.
func (c *Cache) Ancestors(id identifier.ConceptID) *conceptset.Set {
	if s, ok := c.ancestors[id]; ok {
		return s
	}
	return conceptset.New()
}

func (c *Cache) GetChildren(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error) {
	return append([]identifier.ConceptID(nil), c.children[id]...), nil
}

func (c *Cache) GetParents(ctx context.Context, id identifier.ConceptID) ([]identifier.ConceptID, error) {
	return append([]identifier.ConceptID(nil), c.parents[id]...), nil
}

func (c *Cache) HasConcept(ctx context.Context, id identifier.ConceptID) (bool, error) {
	if _, ok := c.children[id]; ok {
		return true, nil
	}
	if _, ok := c.parents[id]; ok {
		return true, nil
	}
	return c.source.HasConcept(ctx, id)
}

func (c *Cache) AllConceptIDs(ctx context.Context) (<-chan backend.ConceptIDResult, error) {
	return c.source.AllConceptIDs(ctx)
}

func (c *Cache) GetRefsetMembers(ctx context.Context, refsetID identifier.ConceptID) ([]identifier.ConceptID, error) {
	return c.source.GetRefsetMembers(ctx, refsetID)
}

func (c *Cache) GetAttributes(ctx context.Context, id identifier.ConceptID) ([]backend.Relationship, error) {
	return c.source.GetAttributes(ctx, id)
}

func (c *Cache) GetInboundRelationships(ctx context.Context, id identifier.ConceptID) ([]backend.Relationship, error) {
	return c.source.GetInboundRelationships(ctx, id)
}

func (c *Cache) GetConcreteValues(ctx context.Context, id identifier.ConceptID) ([]backend.ConcreteRelationship, error) {
	return c.source.GetConcreteValues(ctx, id)
}

func (c *Cache) GetDescriptions(ctx context.Context, id identifier.ConceptID) ([]backend.Description, error) {
	return c.source.GetDescriptions(ctx, id)
}

func (c *Cache) GetDescriptionLanguageRefsets(ctx context.Context, descriptionID identifier.ConceptID) ([]backend.LanguageMembership, error) {
	return c.source.GetDescriptionLanguageRefsets(ctx, descriptionID)
}

func (c *Cache) IsConceptActive(ctx context.Context, id identifier.ConceptID) (bool, error) {
	return c.source.IsConceptActive(ctx, id)
}

func (c *Cache) IsConceptPrimitive(ctx context.Context, id identifier.ConceptID) (bool, bool, error) {
	return c.source.IsConceptPrimitive(ctx, id)
}

func (c *Cache) GetConceptModule(ctx context.Context, id identifier.ConceptID) (identifier.ConceptID, bool, error) {
	return c.source.GetConceptModule(ctx, id)
}

func (c *Cache) GetConceptEffectiveTime(ctx context.Context, id identifier.ConceptID) (uint32, bool, error) {
	return c.source.GetConceptEffectiveTime(ctx, id)
}

func (c *Cache) GetSemanticTag(ctx context.Context, id identifier.ConceptID) (string, bool, error) {
	return c.source.GetSemanticTag(ctx, id)
}

func (c *Cache) GetHistoricalAssociations(ctx context.Context, id identifier.ConceptID, kind backend.HistoryAssociationType) ([]identifier.ConceptID, error) {
	return c.source.GetHistoricalAssociations(ctx, id, kind)
}

func (c *Cache) ResolveAlternateIdentifier(ctx context.Context, scheme, id string) (identifier.ConceptID, bool, error) {
	return c.source.ResolveAlternateIdentifier(ctx, scheme, id)
}
