package sf

import "golang.org/x/sync/singleflight"

// Singleflight deduplicates concurrent function calls with the same key.
// Only the first caller executes the function; others wait and receive
// the same result.
type Singleflight[T any] struct {
	group singleflight.Group
}

// Do executes fn for the given key, deduplicating concurrent calls.
// The shared flag reports whether the result was handed to more than one caller.
func (s *Singleflight[T]) Do(key string, fn func() (T, error)) (out T, shared bool, err error) {
	v, err, shared := s.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return out, shared, err
	}
	return v.(T), shared, nil
}

// Forget drops an in-flight key so the next Do runs fn again.
func (s *Singleflight[T]) Forget(key string) { s.group.Forget(key) }

// New creates a new Singleflight instance for type T.
func New[T any]() *Singleflight[T] {
	return &Singleflight[T]{}
}
