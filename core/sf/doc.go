// Package sf provides a generic single-flight mechanism for deduplicating
// concurrent function calls with the same key.
//
// If multiple goroutines call [Singleflight.Do] with the same key
// concurrently, only the first call executes the function; subsequent
// callers block until it completes and receive the same result.
//
//	loads := sf.New[*Counter]()
//	c, _, err := loads.Do("ca-1", func() (*Counter, error) {
//	    return rebuild(ctx, "ca-1")
//	})
package sf
