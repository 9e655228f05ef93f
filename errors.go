package weathermart

import (
	"fmt"
	"sort"
	"strings"
)

// BadKwargError reports an extra option that no matching retriever accepts.
// It is raised before any upstream call is made.
type BadKwargError struct {
	Key   string
	Valid []string
}

func (e *BadKwargError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("kwarg %q is not implemented for this retriever (no extra options accepted)", e.Key)
	}
	valid := append([]string(nil), e.Valid...)
	sort.Strings(valid)
	return fmt.Sprintf("kwarg %q is not implemented for this retriever; options are: %s",
		e.Key, strings.Join(valid, ", "))
}

// KwargValueError reports a malformed extra-option value (unsorted or
// duplicated list, empty list, disallowed path character).
type KwargValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *KwargValueError) Error() string {
	return fmt.Sprintf("invalid value %s for kwarg %q: %s", e.Value, e.Key, e.Reason)
}

// UnknownSourceError reports a request for a source no registered retriever
// declares.
type UnknownSourceError struct {
	Source string
	Known  []string
}

func (e *UnknownSourceError) Error() string {
	known := append([]string(nil), e.Known...)
	sort.Strings(known)
	return fmt.Sprintf("no retriever registered for source %q; known sources: %s",
		e.Source, strings.Join(known, ", "))
}

// RetrievalError wraps an upstream failure (network, parsing, missing data)
// from a retriever. The provider never retries; retry policy belongs to the
// individual retriever.
type RetrievalError struct {
	Source string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval from %q failed: %v", e.Source, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
