// Package engine wires together parser, eval, the optional closure cache and
// enginecache's query-result cache into the single entry point a caller
// uses: parse ECL source, evaluate it against a backend, optionally cache
// the result keyed by its canonical form. It mirrors the teacher's
// `terminology.Svc` wrapper idiom - a struct that holds collaborators and
// exposes a small, high-level method set rather than requiring callers to
// assemble parser/evaluator/cache themselves.
package engine

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/enginecache"
	"github.com/wardle/ecl/eval"
	"github.com/wardle/ecl/identifier"
	"github.com/wardle/ecl/parser"
	"github.com/wardle/ecl/result"
	"github.com/wardle/ecl/search"
)

// Options configures an Engine. The zero value is valid and disables both
// caching and the max-result-size guard, matching "configuration loading is
// a Non-goal" - callers build this struct themselves from whatever
// configuration source they use.
type Options struct {
	// CacheCapacity is the maximum number of distinct canonical queries the
	// result cache retains. Zero disables caching.
	CacheCapacity int
	// CacheTTL is how long a cached result remains valid after insertion.
	CacheTTL time.Duration
	// MaxResultSize bounds the size of any materialized intermediate or
	// final set. Zero means unbounded.
	MaxResultSize int
	// DefaultDeadline, if non-zero, is applied via context.WithTimeout to
	// any Execute/Matches call whose ctx carries no deadline of its own.
	DefaultDeadline time.Duration
	// Logger receives one diagnostic line per query that Execute evaluates
	// (cache hits are not logged). Defaults to a discarding logger, so the engine is silent
	// unless a caller opts in, per the teacher's injected *log.Logger
	// pattern.
	Logger *log.Logger
	// TermIndex, if set, accelerates wildcard Term filters. Build one with
	// search.Build over the same backend passed to New.
	TermIndex *search.Index
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard, "", 0)
}

// Engine evaluates ECL source against one backend.
type Engine struct {
	backend   backend.Backend
	evaluator *eval.Evaluator
	cache     *enginecache.Cache
	opts      Options
	log       *log.Logger
}

// New returns an Engine over b. b may be a closure.Cache for O(1) hierarchy
// traversal, or any other backend.Backend implementation; the evaluator
// detects a *closure.Cache itself and needs no special wiring here.
func New(b backend.Backend, opts Options) *Engine {
	return &Engine{
		backend:   b,
		evaluator: &eval.Evaluator{Backend: b, Options: eval.Options{MaxResultSize: opts.MaxResultSize}, TermIndex: opts.TermIndex},
		cache:     enginecache.New(opts.CacheCapacity, opts.CacheTTL),
		opts:      opts,
		log:       opts.logger(),
	}
}

func (e *Engine) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.DefaultDeadline <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.opts.DefaultDeadline)
}

// Execute parses source and evaluates it, returning the matching concept
// set. Results are cached by the expression's canonical form, so two
// differently-written but semantically identical queries share one entry.
func (e *Engine) Execute(ctx context.Context, source string) (*result.Set, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()

	expr, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	key := expr.Canonical()
	if cached, ok := e.cache.Get(key); ok {
		return cached.WithCacheHits(1), nil
	}

	start := time.Now()
	stats := &eval.Stats{}
	set, err := e.evaluator.Evaluate(ctx, expr, stats)
	if err != nil {
		return nil, err
	}
	rs := result.New(set, result.Stats{
		Elapsed:         time.Since(start),
		ConceptsVisited: stats.ConceptsVisited,
	})
	e.cache.Put(key, rs)
	e.log.Printf("ecl: executed %q in %s, %d concepts visited, %d results", source, rs.Stats.Elapsed, rs.Stats.ConceptsVisited, rs.Count())
	return rs, nil
}

// Matches reports whether id is a member of source's result set, without
// necessarily materializing the whole set: when the parsed expression is a
// plain Self, ConceptSet or Wildcard node, or a one-step `<!`/`>!` over a
// single concept, Matches tests id directly against the backend instead of
// evaluating the full expression,
// generalizing the teacher's IsA "crude... should be optimised" shortcut
// into the optimization the comment gestured at. Any other shape falls back
// to full evaluation via Execute.
func (e *Engine) Matches(ctx context.Context, id identifier.ConceptID, source string) (bool, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()

	expr, err := parser.Parse(source)
	if err != nil {
		return false, err
	}
	if ok, handled, err := e.matchesFastPath(ctx, id, expr); handled {
		return ok, err
	}

	rs, err := e.Execute(ctx, source)
	if err != nil {
		return false, err
	}
	return rs.Contains(id), nil
}

// matchesFastPath implements the short-circuit cases Matches documents.
// handled is false if expr's shape requires full evaluation.
func (e *Engine) matchesFastPath(ctx context.Context, id identifier.ConceptID, expr ast.Expression) (matched bool, handled bool, err error) {
	switch n := expr.(type) {
	case *ast.Self:
		// Mirror eval.evalSelf's existence check so Matches and
		// Execute-then-Contains fail the same way for a concept the
		// backend doesn't know about, rather than the fast path silently
		// succeeding where full evaluation would return a LookupError.
		ok, err := e.backend.HasConcept(ctx, n.ID)
		if err != nil {
			return false, true, err
		}
		if !ok {
			return false, true, &eclerr.LookupError{Kind: eclerr.ConceptNotFound, Detail: n.ID.String()}
		}
		return n.ID == id, true, nil
	case *ast.ConceptSet:
		for _, cid := range n.IDs {
			if cid == id {
				return true, true, nil
			}
		}
		return false, true, nil
	case *ast.Wildcard:
		ok, err := e.backend.HasConcept(ctx, id)
		return ok, true, err
	case *ast.Hierarchy:
		return e.matchesHierarchy(ctx, id, n)
	default:
		return false, false, nil
	}
}

func (e *Engine) matchesHierarchy(ctx context.Context, id identifier.ConceptID, n *ast.Hierarchy) (bool, bool, error) {
	self, ok := n.Inner.(*ast.Self)
	if !ok {
		return false, false, nil
	}
	switch n.Op {
	case ast.ChildOf, ast.ParentOf:
		// Same existence check eval.evalSelf makes for the focus concept.
		known, err := e.backend.HasConcept(ctx, self.ID)
		if err != nil {
			return false, true, err
		}
		if !known {
			return false, true, &eclerr.LookupError{Kind: eclerr.ConceptNotFound, Detail: self.ID.String()}
		}
	}
	switch n.Op {
	case ast.ChildOf:
		parents, err := e.backend.GetParents(ctx, id)
		return containsID(parents, self.ID), true, err
	case ast.ParentOf:
		kids, err := e.backend.GetChildren(ctx, id)
		return containsID(kids, self.ID), true, err
	case ast.DescendantOf, ast.DescendantOrSelf, ast.AncestorOf, ast.AncestorOrSelf, ast.ChildOrSelf, ast.ParentOrSelf:
		// These always fall back to full evaluation.
		return false, false, nil
	default:
		return false, false, nil
	}
}

func containsID(ids []identifier.ConceptID, id identifier.ConceptID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Backend returns the backend the Engine was constructed with.
func (e *Engine) Backend() backend.Backend { return e.backend }
