package warmup

import "errors"

var (
	errProviderRequired = errors.New("warmup: provider is required")
	errNoRequests       = errors.New("warmup: at least one request is required")
)
