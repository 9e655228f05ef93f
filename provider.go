package weathermart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/MeteoSwiss/weathermart/dataset"
)

// DataProvider is the public entry point: it normalizes a request, serves
// what it can from the cache, dispatches retrievers for the rest, merges
// fresh data back into the cache and returns the union dataset.
//
// A DataProvider is safe for concurrent use by independent requests as long
// as distinct requests target distinct cache keys; concurrent writers to the
// same key across processes must be serialized externally (keylock package).
type DataProvider struct {
	registry *Registry
	store    Store
	log      Logger
	hooks    Hooks
	maxConc  int
}

func newProvider(opts Options) (*DataProvider, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("weathermart: registry is required")
	}
	p := &DataProvider{
		registry: opts.Registry,
		store:    opts.Store,
	}
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	p.maxConc = opts.MaxConcurrency
	if p.maxConc <= 0 {
		p.maxConc = 4
	}
	return p, nil
}

// Provide retrieves the named variables for the given dates from source,
// using and extending the cache. Bare variable names carry no per-variable
// parameters; use ProvideSpecs for (name, params) pairs.
func (p *DataProvider) Provide(ctx context.Context, source string, variables []string, dates []time.Time, kwargs Kwargs) (*dataset.Dataset, error) {
	return p.ProvideSpecs(ctx, source, VariableNames(variables...), dates, kwargs)
}

// ProvideFromConfig is the config-driven variant of Provide.
func (p *DataProvider) ProvideFromConfig(ctx context.Context, cfg RequestConfig) (*dataset.Dataset, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid request config")
	}
	dates, err := ParseDates(cfg.Dates)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, cfg.Source, cfg.Variables, dates, cfg.Kwargs)
}

// dateResult is the outcome of one per-date unit of work.
type dateResult struct {
	ds  *dataset.Dataset
	err error
	// fatal marks data-integrity failures that abort the whole call.
	fatal bool
}

// ProvideSpecs implements the full orchestration: normalize, per-date cache
// lookup, dispatch of missing variables (bounded concurrency), merge-on-write
// and cross-date concatenation. A retrieval failure for one date does not
// block other dates (errors are collected); a non-monotonic time axis aborts
// the whole call before any write for the offending key.
func (p *DataProvider) ProvideSpecs(ctx context.Context, source string, variables []VariableSpec, dates []time.Time, kwargs Kwargs) (*dataset.Dataset, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("weathermart: no variables requested")
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("weathermart: no dates requested")
	}

	days := normalizeDates(dates)
	fragment, err := kwargs.Fragment()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(variables))
	specByName := make(map[string]VariableSpec, len(variables))
	for i, v := range variables {
		names[i] = v.Name
		specByName[v.Name] = v
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]dateResult, len(days))
	sem := make(chan struct{}, p.maxConc)
	var wg sync.WaitGroup
	for i, day := range days {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = dateResult{err: ctx.Err()}
				return
			}
			res := p.provideDay(ctx, source, names, specByName, day, fragment, kwargs)
			results[i] = res
			if res.fatal {
				cancel()
			}
		}(i, day)
	}
	wg.Wait()

	var dateErrs error
	parts := make([]*dataset.Dataset, 0, len(days))
	for i, res := range results {
		if res.fatal {
			return nil, res.err
		}
		if res.err != nil {
			dateErrs = multierror.Append(dateErrs, errors.Wrapf(res.err, "date %s", days[i].Format("2006-01-02")))
			continue
		}
		parts = append(parts, res.ds)
	}
	if dateErrs != nil {
		return nil, dateErrs
	}

	out, err := dataset.ConcatTime(parts...)
	if err != nil {
		return nil, err
	}
	return out.Select(names...)
}

// provideDay serves one (source, day, fragment) key: cache lookup, dispatch
// of missing variables, cache write, and in-memory union.
func (p *DataProvider) provideDay(ctx context.Context, source string, names []string, specByName map[string]VariableSpec, day time.Time, fragment string, kwargs Kwargs) dateResult {
	key := NewKey(source, day, fragment)

	var cached *dataset.Dataset
	if p.store != nil {
		ds, found, err := p.store.Lookup(ctx, key, names...)
		if err != nil {
			return dateResult{err: errors.Wrapf(err, "cache lookup %s", key)}
		}
		if found {
			cached = ds
		}
	}

	var missing []string
	for _, name := range names {
		if cached == nil || !cached.Has(name) {
			missing = append(missing, name)
		}
	}
	if cached != nil && len(missing) < len(names) {
		p.hooks.CacheHit(source, len(names)-len(missing))
	}
	if len(missing) == 0 {
		p.log.Debug("served entirely from cache", Fields{"key": key.String(), "vars": len(names)})
		return dateResult{ds: cached}
	}
	p.hooks.CacheMiss(source, len(missing))

	missingSpecs := make([]VariableSpec, len(missing))
	for i, name := range missing {
		missingSpecs[i] = specByName[name]
	}

	p.hooks.RetrieverInvoked(source, 1)
	p.log.Debug("dispatching retriever", Fields{"key": key.String(), "missing": missing})
	fresh, err := p.registry.Dispatch(ctx, source, missingSpecs, []time.Time{day}, kwargs)
	if err != nil {
		p.hooks.RetrievalFailed(source, err)
		// Invalid-argument and unknown-source errors poison every date the
		// same way; surface them as fatal so the caller sees one clear error.
		switch err.(type) {
		case *BadKwargError, *KwargValueError, *UnknownSourceError:
			return dateResult{err: err, fatal: true}
		}
		return dateResult{err: err}
	}

	// Integrity gate before any cache mutation: disordered time axes are an
	// upstream bug worth surfacing, never silently sorted.
	if err := fresh.CheckMonotonic(); err != nil {
		p.hooks.RetrievalFailed(source, err)
		return dateResult{err: errors.Wrapf(err, "refusing to cache %s", key), fatal: true}
	}

	if p.store != nil {
		if err := p.store.Write(ctx, key, fresh); err != nil {
			if errors.Is(err, dataset.ErrNonMonotonic) {
				return dateResult{err: err, fatal: true}
			}
			return dateResult{err: errors.Wrapf(err, "cache write %s", key)}
		}
	}

	// Reuse the in-memory pieces rather than re-reading the entry.
	if cached == nil {
		return dateResult{ds: fresh}
	}
	if _, err := cached.Merge(fresh); err != nil {
		return dateResult{err: errors.Wrapf(err, "merging fresh data for %s", key)}
	}
	return dateResult{ds: cached}
}
