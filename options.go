package weathermart

// Options tune the DataProvider. Only Registry is required; a nil Store
// disables caching (every call goes to the retrievers).
type Options struct {
	// Required
	Registry *Registry

	Store          Store  // nil => no caching
	Logger         Logger // nil => NopLogger
	Hooks          Hooks  // nil => NopHooks
	MaxConcurrency int    // parallel per-date retrievals; 0 => 4
}

// New builds a DataProvider.
func New(opts Options) (*DataProvider, error) {
	return newProvider(opts)
}
