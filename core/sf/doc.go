// Package sf wraps golang.org/x/sync/singleflight with a typed API.
//
// For a given key, at most one execution of the supplied function is
// in-flight at a time. Concurrent callers with the same key block until
// the first call completes and all receive its result. The manager uses
// this to guarantee that concurrent Get calls for the same resource key
// perform a single cluster round trip and construct a single instance.
package sf
