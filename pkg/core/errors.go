package core

import "errors"

// Error classes surfaced by the search engine. Callers match them with
// errors.Is; messages are wrapped with fmt.Errorf("%w: ...").
var (
	// ErrConfiguration marks an incomplete or invalid validation rule.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedOperation marks a validation type that cannot be searched.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrBackend marks a failed or malformed term-lookup backend response.
	ErrBackend = errors.New("backend error")
	// ErrCacheDeserialization marks a cached value that could not be decoded.
	// It is logged and treated as a cache miss, never returned to callers.
	ErrCacheDeserialization = errors.New("cache deserialization error")
)
