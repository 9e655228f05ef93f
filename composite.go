package weathermart

import (
	"context"
	"time"

	"github.com/MeteoSwiss/weathermart/dataset"
)

// Composite is a retriever that delegates to named sub-retrievers, e.g. one
// satellite retriever per catalog database. Its source set, variable mapping
// and option surface are the unions over its children; Retrieve dispatches to
// the first child (in order) that declares the requested source.
type Composite struct {
	name     string
	subs     []NamedRetriever
	priority int
}

var _ Retriever = (*Composite)(nil)

// NewComposite builds a composite retriever. The name is used for error
// context only; sub order decides dispatch precedence within the composite.
func NewComposite(name string, priority int, subs ...NamedRetriever) *Composite {
	return &Composite{name: name, subs: subs, priority: priority}
}

func (c *Composite) Sources() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, sub := range c.subs {
		for _, s := range sub.Retriever.Sources() {
			if _, dup := seen[s]; !dup {
				out = append(out, s)
				seen[s] = struct{}{}
			}
		}
	}
	return out
}

func (c *Composite) Variables() map[string][]string {
	maps := make([]map[string][]string, len(c.subs))
	for i, sub := range c.subs {
		maps[i] = sub.Retriever.Variables()
	}
	return MergeVariables(maps...)
}

func (c *Composite) CRS() CRS {
	per := make(map[string]string, len(c.subs))
	for _, sub := range c.subs {
		crs := sub.Retriever.CRS()
		if crs.Single != "" {
			per[sub.Name] = crs.Single
			continue
		}
		for k, v := range crs.PerSource {
			per[sub.Name+"/"+k] = v
		}
	}
	return CRS{PerSource: per}
}

func (c *Composite) Subretrievers() []NamedRetriever { return c.subs }
func (c *Composite) Priority() int                   { return c.priority }

// Kwargs returns only the composite's own declared options (none);
// AllKwargs unions in the children.
func (c *Composite) Kwargs() []string { return nil }

func (c *Composite) Retrieve(ctx context.Context, source string, variables []VariableSpec, dates []time.Time, kwargs Kwargs) (*dataset.Dataset, error) {
	for _, sub := range c.subs {
		for _, s := range sub.Retriever.Sources() {
			if s == source {
				return sub.Retriever.Retrieve(ctx, source, variables, dates, kwargs)
			}
		}
	}
	return nil, &UnknownSourceError{Source: source, Known: c.Sources()}
}
