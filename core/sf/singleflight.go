package sf

import "golang.org/x/sync/singleflight"

// Group deduplicates concurrent calls that share a key. The zero value is
// ready to use.
type Group[T any] struct {
	g singleflight.Group
}

// Do executes fn once for key, no matter how many goroutines call Do with
// that key concurrently. Late callers block and receive the first call's
// result.
func (s *Group[T]) Do(key string, fn func() (T, error)) (T, error) {
	v, err, _ := s.g.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
