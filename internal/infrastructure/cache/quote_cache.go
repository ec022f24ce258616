// Package cache holds the in-process quote cache: one LRU store per market
// data class, each with its own capacity and freshness window. Freshness is
// inversely proportional to how fast the underlying value moves, so order
// books expire fastest and market metadata barely at all.
package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"arbscan/internal/domain/model"
)

// Class identifies a market data class with independent TTL and capacity.
type Class string

const (
	ClassTicker    Class = "ticker"
	ClassOrderBook Class = "orderbook"
	ClassTrades    Class = "trades"
	ClassCandles   Class = "candles"
	ClassMarkets   Class = "markets"
)

// ClassConfig bounds one class: entries older than TTL are never returned,
// Capacity caps memory regardless of venue/symbol fan-out.
type ClassConfig struct {
	TTL      time.Duration
	Capacity int
}

// DefaultConfig returns the per-class defaults.
func DefaultConfig() map[Class]ClassConfig {
	return map[Class]ClassConfig{
		ClassTicker:    {TTL: 10 * time.Second, Capacity: 500},
		ClassOrderBook: {TTL: 5 * time.Second, Capacity: 200},
		ClassTrades:    {TTL: 10 * time.Second, Capacity: 200},
		ClassCandles:   {TTL: 60 * time.Second, Capacity: 300},
		ClassMarkets:   {TTL: time.Hour, Capacity: 1000},
	}
}

type entry struct {
	key        string
	value      any
	insertedAt time.Time
}

// store is one class's LRU list plus hit/miss counters. Front of the list is
// the most recently used entry.
type store struct {
	mu     sync.Mutex
	ttl    time.Duration
	cap    int
	ll     *list.List
	items  map[string]*list.Element
	hits   uint64
	misses uint64
}

func newStore(cfg ClassConfig) *store {
	return &store{
		ttl:   cfg.TTL,
		cap:   cfg.Capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (s *store) get(key string, now time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		s.misses++
		return nil, false
	}
	ent := el.Value.(*entry)
	if now.Sub(ent.insertedAt) > s.ttl {
		s.ll.Remove(el)
		delete(s.items, key)
		s.misses++
		return nil, false
	}
	s.ll.MoveToFront(el)
	s.hits++
	return ent.value, true
}

func (s *store) set(key string, value any, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.insertedAt = now
		s.ll.MoveToFront(el)
		return
	}

	if s.ll.Len() >= s.cap {
		s.evictLocked(now)
	}
	el := s.ll.PushFront(&entry{key: key, value: value, insertedAt: now})
	s.items[key] = el
}

// evictLocked drops expired entries first, then falls back to the LRU tail.
func (s *store) evictLocked(now time.Time) {
	for el := s.ll.Back(); el != nil; {
		prev := el.Prev()
		ent := el.Value.(*entry)
		if now.Sub(ent.insertedAt) > s.ttl {
			s.ll.Remove(el)
			delete(s.items, ent.key)
		}
		el = prev
	}
	for s.ll.Len() >= s.cap {
		tail := s.ll.Back()
		if tail == nil {
			return
		}
		s.ll.Remove(tail)
		delete(s.items, tail.Value.(*entry).key)
	}
}

func (s *store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ll.Init()
	s.items = make(map[string]*list.Element)
}

// ClassStats is a snapshot of one class's counters.
type ClassStats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func (s *store) stats() ClassStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ClassStats{Size: s.ll.Len(), Hits: s.hits, Misses: s.misses}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	return st
}

// QuoteCache owns one store per data class. All mutation goes through its
// methods; no caller touches entries directly.
type QuoteCache struct {
	classes map[Class]*store
	now     func() time.Time
}

// New builds a cache from per-class configs. Zero or negative TTL or
// capacity is a configuration error.
func New(configs map[Class]ClassConfig) (*QuoteCache, error) {
	if len(configs) == 0 {
		configs = DefaultConfig()
	}
	classes := make(map[Class]*store, len(configs))
	for class, cfg := range configs {
		if cfg.TTL <= 0 {
			return nil, fmt.Errorf("cache class %s: ttl must be positive, got %s", class, cfg.TTL)
		}
		if cfg.Capacity <= 0 {
			return nil, fmt.Errorf("cache class %s: capacity must be positive, got %d", class, cfg.Capacity)
		}
		classes[class] = newStore(cfg)
	}
	return &QuoteCache{classes: classes, now: time.Now}, nil
}

// Key builds the canonical cache key for a (venue, symbol, qualifier) tuple.
// The qualifier disambiguates depth limit, timeframe or trade count where a
// class needs it.
func Key(venue, symbol string, qualifier ...string) string {
	parts := append([]string{venue, symbol}, qualifier...)
	return strings.Join(parts, ":")
}

// Get returns the cached value for key, or false on a miss. Expired entries
// count as misses and are removed.
func (c *QuoteCache) Get(class Class, key string) (any, bool) {
	s, ok := c.classes[class]
	if !ok {
		return nil, false
	}
	return s.get(key, c.now())
}

// Set stores value under key, evicting by TTL then LRU order at capacity.
func (c *QuoteCache) Set(class Class, key string, value any) {
	s, ok := c.classes[class]
	if !ok {
		return
	}
	s.set(key, value, c.now())
}

// GetTicker is the typed ticker-class lookup the scanner uses.
func (c *QuoteCache) GetTicker(venue, symbol string) (*model.PriceQuote, bool) {
	v, ok := c.Get(ClassTicker, Key(venue, symbol))
	if !ok {
		return nil, false
	}
	q, ok := v.(*model.PriceQuote)
	return q, ok
}

// SetTicker stores a ticker quote for a venue/symbol pair.
func (c *QuoteCache) SetTicker(venue, symbol string, quote *model.PriceQuote) {
	c.Set(ClassTicker, Key(venue, symbol), quote)
}

// Clear empties one class.
func (c *QuoteCache) Clear(class Class) {
	if s, ok := c.classes[class]; ok {
		s.clear()
	}
}

// ClearAll empties every class. Used at shutdown and in tests.
func (c *QuoteCache) ClearAll() {
	for _, s := range c.classes {
		s.clear()
	}
}

// Stats returns a per-class snapshot of sizes and hit rates.
func (c *QuoteCache) Stats() map[Class]ClassStats {
	out := make(map[Class]ClassStats, len(c.classes))
	for class, s := range c.classes {
		out[class] = s.stats()
	}
	return out
}

// AggregateHitRate folds every class's counters into one ratio.
func (c *QuoteCache) AggregateHitRate() float64 {
	var hits, total uint64
	for _, s := range c.classes {
		st := s.stats()
		hits += st.Hits
		total += st.Hits + st.Misses
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
