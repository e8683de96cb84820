package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 3 * time.Second

type CacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Store is a bounded read-through cache. Entries older than the TTL are
// still served while a single background refresh runs, so it suits
// values that only change through a Purge.
type Store[T any] struct {
	entries *lru.Cache[string, CacheEntry[T]]
	sfg     singleflight.Group
	ttl     time.Duration
	now     func() time.Time

	// bumped by Purge; loads started before it are not stored
	gen atomic.Uint64
}

func New[T any](size int, ttl time.Duration) (*Store[T], error) {
	entries, err := lru.New[string, CacheEntry[T]](size)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// MustNew is New for a size known to be positive.
func MustNew[T any](size int, ttl time.Duration) *Store[T] {
	s, err := New[T](size, ttl)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store[T]) Get(key string, fn func() (T, error)) (T, error) {
	entry, ok := s.entries.Get(key)
	if ok {
		if s.now().Sub(entry.fetchedAt) > s.ttl {
			go func() {
				s.sfg.Do(key, func() (any, error) {
					gen := s.gen.Load()
					result, err := fn()
					if err == nil {
						s.store(gen, key, CacheEntry[T]{value: result, fetchedAt: s.now()})
					}
					return nil, nil
				})
			}()
		}
		return entry.value, nil
	}

	v, err, _ := s.sfg.Do(key, func() (any, error) {
		if e, ok := s.entries.Get(key); ok {
			return e, nil
		}
		gen := s.gen.Load()
		res, err := fn()
		if err != nil {
			return nil, err
		}
		newEntry := CacheEntry[T]{value: res, fetchedAt: s.now()}
		s.store(gen, key, newEntry)
		return newEntry, nil
	})

	if err != nil {
		var zero T
		return zero, err
	}
	return v.(CacheEntry[T]).value, nil
}

func (s *Store[T]) store(gen uint64, key string, e CacheEntry[T]) {
	if s.gen.Load() != gen {
		return
	}
	s.entries.Add(key, e)
}

// Purge drops every entry, including any load already in flight.
func (s *Store[T]) Purge() {
	s.gen.Add(1)
	s.entries.Purge()
}

func (s *Store[T]) Len() int {
	return s.entries.Len()
}
