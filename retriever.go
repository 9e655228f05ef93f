package weathermart

import (
	"context"
	"sort"
	"time"

	"github.com/MeteoSwiss/weathermart/dataset"
)

// VariableSpec names one requested variable plus per-variable parameters.
type VariableSpec struct {
	Name   string
	Params Kwargs
}

// VariableNames lifts a plain list of canonical variable names into specs
// with empty parameters, the canonical request form.
func VariableNames(names ...string) []VariableSpec {
	out := make([]VariableSpec, len(names))
	for i, n := range names {
		out[i] = VariableSpec{Name: n}
	}
	return out
}

// CRS describes the coordinate reference system of a retriever's data: a
// single proj/EPSG string, or one per sub-source for composite retrievers.
type CRS struct {
	Single    string
	PerSource map[string]string
}

// Retriever is the uniform contract every data source plugin implements.
// Implementations are constructed once at process start, immutable
// thereafter, and shared read-only across requests.
//
// Kwargs declares the extra option names the retriever's Retrieve accepts,
// excluding the fixed arguments (source, variables, dates). New retrievers
// extend the option surface without touching shared code: the registry
// unions declared sets across retrievers and subretrievers.
type Retriever interface {
	// Sources lists the supported source identifiers, e.g. "ICON-CH1-EPS"
	// for NWP model data or a generic name such as "RADAR".
	Sources() []string

	// Variables maps each canonical variable name to the one-or-more
	// source-native names used for retrieval.
	Variables() map[string][]string

	// CRS reports the coordinate reference system descriptor.
	CRS() CRS

	// Subretrievers returns the ordered named sub-retrievers of a composite
	// retriever, or nil.
	Subretrievers() []NamedRetriever

	// Priority breaks ties when multiple retrievers claim a source; higher
	// wins, then type name descending for determinism.
	Priority() int

	// Kwargs declares the extra option names accepted by Retrieve.
	Kwargs() []string

	// Retrieve fetches the given variables for the given dates from source.
	// Fails with a *RetrievalError for upstream problems (network, parsing,
	// missing data) and a validation error for invalid argument
	// combinations; neither is swallowed by the contract layer.
	Retrieve(ctx context.Context, source string, variables []VariableSpec, dates []time.Time, kwargs Kwargs) (*dataset.Dataset, error)
}

// NamedRetriever is one (name, sub-retriever) pair of a composite.
type NamedRetriever struct {
	Name      string
	Retriever Retriever
}

// AllKwargs returns the deduplicated union of the retriever's declared extra
// options and, recursively, those of all its subretrievers. No ordering
// guarantee beyond determinism (sorted).
func AllKwargs(r Retriever) []string {
	seen := map[string]struct{}{}
	var walk func(Retriever)
	walk = func(r Retriever) {
		for _, k := range r.Kwargs() {
			seen[k] = struct{}{}
		}
		for _, sub := range r.Subretrievers() {
			walk(sub.Retriever)
		}
	}
	walk(r)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidateKwargs fails with a *BadKwargError when any requested option name
// is absent from the retriever's AllKwargs union.
func ValidateKwargs(r Retriever, requested []string) error {
	valid := AllKwargs(r)
	ok := make(map[string]struct{}, len(valid))
	for _, k := range valid {
		ok[k] = struct{}{}
	}
	for _, k := range requested {
		if _, found := ok[k]; !found {
			return &BadKwargError{Key: k, Valid: valid}
		}
	}
	return nil
}

// MergeVariables merges variable-name mappings from several retrievers. For
// keys that appear in more than one mapping the resulting list is the union
// with duplicates removed, preserving first-occurrence order.
func MergeVariables(maps ...map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range maps {
		for key, vals := range m {
			if _, ok := out[key]; !ok {
				out[key] = append([]string(nil), vals...)
				continue
			}
			seen := make(map[string]struct{}, len(out[key]))
			for _, v := range out[key] {
				seen[v] = struct{}{}
			}
			for _, v := range vals {
				if _, dup := seen[v]; !dup {
					out[key] = append(out[key], v)
					seen[v] = struct{}{}
				}
			}
		}
	}
	return out
}
