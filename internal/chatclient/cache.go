package chatclient

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// SessionsKey is the cache key of the session list.
const SessionsKey = "/api/chat-sessions"

// MessagesKey is the cache key of one session's message list.
func MessagesKey(sessionID ID) string {
	return "/api/chat-sessions/" + sessionID.String() + "/messages"
}

// QueryCache is a read-through cache of query results keyed by endpoint.
// Keys are matched exactly. Invalidate drops an entry and tells subscribers,
// so the next Fetch goes to the network.
type QueryCache struct {
	items *gocache.Cache

	mu     sync.RWMutex
	gens   map[string]uint64
	nextID int
	subs   map[int]func(key string)
}

// NewQueryCache creates a cache. A zero ttl keeps entries until invalidated.
func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c := &QueryCache{
		items: gocache.New(ttl, 10*time.Minute),
		gens:  make(map[string]uint64),
		subs:  make(map[int]func(string)),
	}
	c.items.OnEvicted(func(key string, _ interface{}) {
		log.Debug().Str("key", key).Msg("query evicted")
	})
	return c
}

// Fetch returns the cached value for key, or calls load and caches its
// result. Errors are not cached. A result whose key was invalidated while
// load ran is returned but not cached.
func (c *QueryCache) Fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if v, ok := c.items.Get(key); ok {
		return v, nil
	}

	c.mu.RLock()
	gen := c.gens[key]
	c.mu.RUnlock()

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen {
		c.items.SetDefault(key, v)
	} else {
		log.Debug().Str("key", key).Msg("discarding stale query result")
	}
	c.mu.Unlock()
	return v, nil
}

// Cached reports whether key currently holds a value.
func (c *QueryCache) Cached(key string) bool {
	_, ok := c.items.Get(key)
	return ok
}

// Invalidate drops each key and notifies subscribers once per key, whether
// or not the key was cached.
func (c *QueryCache) Invalidate(keys ...string) {
	for _, key := range keys {
		c.mu.Lock()
		c.gens[key]++
		c.items.Delete(key)
		subs := make([]func(string), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		for _, fn := range subs {
			fn(key)
		}
	}
}

// Subscribe registers fn to run after each invalidation. The returned
// function unsubscribes.
func (c *QueryCache) Subscribe(fn func(key string)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
