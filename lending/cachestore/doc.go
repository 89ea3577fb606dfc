// Package cachestore provides a process-local key-value cache with per-entry
// expiration, priority, and tag-based bulk eviction.
//
// Tags associate many keys with one label; RemoveByTag drops every key behind
// a tag in one call, which is how the engine's coherence layer maps a domain
// mutation to the set of cached reads it invalidates. The tag index is a map
// of tag to key set, so eviction is an O(1) average-case lookup instead of a
// scan over every stored key; a tag's own bookkeeping entry is discarded once
// its key set becomes empty.
//
// The store is safe for concurrent use. It is the only piece of shared mutable
// in-memory state in the borrowing core, and all writes to it are supposed to
// go through the engine's narrow eviction API rather than ad hoc call sites.
package cachestore
