package weathermart

// Hooks are lightweight callbacks for high-signal provider events.
// Implementations MUST be cheap and non-blocking; the provider calls them on
// hot paths. See the metrics package for a Prometheus implementation.
type Hooks interface {
	// A cache entry satisfied part of a request.
	CacheHit(source string, vars int)

	// A (date, variables) combination was absent from the cache.
	CacheMiss(source string, vars int)

	// A retriever was invoked for missing variables.
	RetrieverInvoked(source string, dates int)

	// A retriever invocation or cache write failed for one date.
	RetrievalFailed(source string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheHit(string, int)          {}
func (NopHooks) CacheMiss(string, int)         {}
func (NopHooks) RetrieverInvoked(string, int)  {}
func (NopHooks) RetrievalFailed(string, error) {}
