// Package cache provides small concurrent caches keyed by a comparable type.
//
// [Map] retains every entry until it is deleted. [LRU] keeps at most a fixed
// number of entries and evicts the least recently used one on overflow.
// Both guard their state with their own mutex, held only for the duration of
// a single operation, so they can be nested inside a caller's coarser lock.
//
//	c := cache.NewLRU[string, *Counter](1000)
//	c.Put("ca-1", counter)
//	if v, ok := c.Get("ca-1"); ok {
//	    // use v
//	}
package cache
