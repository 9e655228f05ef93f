// Package weathermart retrieves, caches and composes heterogeneous
// time-indexed geophysical datasets (model forecasts, observations,
// satellite, radar, terrain) from independent data sources behind one
// request interface.
//
// Components:
//   - Retriever: uniform contract every data source plugin implements
//     (declared sources, variable mapping, declared extra options, Retrieve).
//   - Registry: holds all registered retrievers, resolves a source to the
//     highest-priority retriever and validates request options fail-fast.
//   - Store: persistent per-(source, day, options) cache of datasets with
//     append-only variable merge (cachestore on disk, memstore in memory).
//   - DataProvider: the public entry point; checks the cache, dispatches
//     retrievers for missing variables and merges results back.
//
// Cache keys:
//
//	<root>/<lower(source)>/<YYYYMMDD><fragment>
//
// where fragment is the canonical encoding of the request's non-default
// extra options (see FormatKwarg).
//
// Usage:
//
//	store, _ := cachestore.New(cachestore.Config{Root: "/data/cache"})
//	reg := weathermart.NewRegistry(myRetriever)
//	p, _ := weathermart.New(weathermart.Options{Registry: reg, Store: store})
//	ds, _ := p.Provide(ctx, "ICON-CH1-EPS", []string{"T_2M"}, dates, nil)
package weathermart
