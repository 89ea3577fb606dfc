package cachestore

import (
	"strings"
	"sync"
	"time"
)

const defaultCleanupInterval = 5 * time.Minute

// Priority ranks how valuable an entry is to keep; it is stored with the
// entry so a future size-bounded eviction can honor it.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Options control the lifetime and tagging of a single entry.
type Options struct {
	// TTL is the absolute expiration relative to the time of the Set call.
	// Zero means no absolute expiration.
	TTL time.Duration

	// SlidingExpiration expires the entry when it has not been read for
	// this long. Zero disables sliding expiration.
	SlidingExpiration time.Duration

	Priority Priority
	Tags     []string
}

type entry struct {
	value      any
	createdAt  time.Time
	lastAccess time.Time
	expiresAt  time.Time // zero when no absolute expiration
	sliding    time.Duration
	priority   Priority
	tags       []string
}

func (e *entry) expired(now time.Time) bool {
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		return true
	}

	if e.sliding > 0 && now.After(e.lastAccess.Add(e.sliding)) {
		return true
	}

	return false
}

// Store is a process-local map of key to value with per-entry expiration
// and a tag index for bulk eviction.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	tagIndex map[string]map[string]struct{}
	clock    func() time.Time
	done     chan struct{}
	closer   sync.Once
}

// StoreOption defines a functional option for configuring a Store.
type StoreOption func(*Store)

// WithClock sets the time source, used by tests to control expiration.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates a Store and starts a background janitor that sweeps
// expired entries every five minutes. Close stops the janitor.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		tagIndex: make(map[string]map[string]struct{}),
		clock:    time.Now,
		done:     make(chan struct{}),
	}

	for _, option := range options {
		option(s)
	}

	go s.janitor(defaultCleanupInterval)

	return s
}

// Get returns the value stored under key, or false on a miss.
// Reading an entry refreshes its sliding expiration window.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	now := s.clock()
	if e.expired(now) {
		s.removeLocked(key)
		return nil, false
	}

	e.lastAccess = now

	return e.value, true
}

// Set stores value under key with the given options, replacing any previous
// entry and re-linking the key into the tag index.
func (s *Store) Set(key string, value any, o Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		s.removeLocked(key)
	}

	now := s.clock()
	e := &entry{
		value:      value,
		createdAt:  now,
		lastAccess: now,
		sliding:    o.SlidingExpiration,
		priority:   o.Priority,
		tags:       o.Tags,
	}

	if o.TTL > 0 {
		e.expiresAt = now.Add(o.TTL)
	}

	s.entries[key] = e

	for _, tag := range o.Tags {
		keys, ok := s.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Remove deletes the entry under key and reports whether it existed.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}

	s.removeLocked(key)

	return true
}

// Exists reports whether key holds a live (non-expired) entry.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}

	if e.expired(s.clock()) {
		s.removeLocked(key)
		return false
	}

	return true
}

// RemoveByTag deletes every entry associated with tag, together with the
// tag's own bookkeeping record, and returns the number of removed entries.
func (s *Store) RemoveByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.tagIndex[tag]
	if !ok {
		return 0
	}

	removed := 0
	for key := range keys {
		s.removeLocked(key)
		removed++
	}

	// removeLocked unlinks keys one by one; the tag record itself must not
	// linger once its key set is empty.
	delete(s.tagIndex, tag)

	return removed
}

// RemoveByPattern deletes every entry whose key contains the given substring
// and returns the number of removed entries. Prefer RemoveByTag; this scan
// exists for operational cleanup of key families that carry no tag.
func (s *Store) RemoveByPattern(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.Contains(key, pattern) {
			s.removeLocked(key)
			removed++
		}
	}

	return removed
}

// Len returns the number of stored entries, including not-yet-swept expired ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Tags returns the currently known tags.
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]string, 0, len(s.tagIndex))
	for tag := range s.tagIndex {
		tags = append(tags, tag)
	}

	return tags
}

// Close stops the background janitor. The store remains usable afterwards.
func (s *Store) Close() {
	s.closer.Do(func() {
		close(s.done)
	})
}

// removeLocked deletes an entry and unlinks it from the tag index,
// dropping tag records that become empty. Callers must hold s.mu.
func (s *Store) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}

	delete(s.entries, key)

	for _, tag := range e.tags {
		keys, ok := s.tagIndex[tag]
		if !ok {
			continue
		}

		delete(keys, key)

		if len(keys) == 0 {
			delete(s.tagIndex, tag)
		}
	}
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for key, e := range s.entries {
		if e.expired(now) {
			s.removeLocked(key)
		}
	}
}
