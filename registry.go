package weathermart

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MeteoSwiss/weathermart/dataset"
)

// Registry holds all registered retrievers and resolves which one serves a
// given source. Plugins register explicitly at process start (an explicit
// call replaces the original's entry-point discovery); the registry is
// immutable once requests start flowing and needs no locking.
type Registry struct {
	retrievers []Retriever
}

// NewRegistry builds a registry over the given retrievers, sorted descending
// by (priority, type name) so resolution is deterministic.
func NewRegistry(retrievers ...Retriever) *Registry {
	g := &Registry{retrievers: append([]Retriever(nil), retrievers...)}
	g.sortRetrievers()
	return g
}

// Register adds a retriever. Only valid during process start-up, before the
// registry is shared across request goroutines.
func (g *Registry) Register(r Retriever) {
	g.retrievers = append(g.retrievers, r)
	g.sortRetrievers()
}

func (g *Registry) sortRetrievers() {
	sort.SliceStable(g.retrievers, func(i, j int) bool {
		pi, pj := g.retrievers[i].Priority(), g.retrievers[j].Priority()
		if pi != pj {
			return pi > pj
		}
		return fmt.Sprintf("%T", g.retrievers[i]) > fmt.Sprintf("%T", g.retrievers[j])
	})
}

// Retrievers returns the retrievers in resolution order.
func (g *Registry) Retrievers() []Retriever {
	return append([]Retriever(nil), g.retrievers...)
}

// Sources returns the union of all declared source identifiers.
func (g *Registry) Sources() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range g.retrievers {
		for _, s := range r.Sources() {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ForSource resolves the highest-priority retriever declaring the source.
func (g *Registry) ForSource(source string) (Retriever, error) {
	for _, r := range g.retrievers {
		for _, s := range r.Sources() {
			if s == source {
				return r, nil
			}
		}
	}
	return nil, &UnknownSourceError{Source: source, Known: g.Sources()}
}

// Dispatch resolves the retriever for source, validates the caller's extra
// option names against its declared surface (fail-fast: no upstream contact
// for invalid requests) and invokes Retrieve.
func (g *Registry) Dispatch(ctx context.Context, source string, variables []VariableSpec, dates []time.Time, kwargs Kwargs) (*dataset.Dataset, error) {
	r, err := g.ForSource(source)
	if err != nil {
		return nil, err
	}
	if err := ValidateKwargs(r, kwargs.Names()); err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, source, variables, dates, kwargs)
}
