package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

type cacheEntry struct {
	text   string
	expiry time.Time
}

func (c cacheEntry) isExpired(now time.Time) bool {
	return now.After(c.expiry)
}

// CachingCompleter remembers successful completions per prompt. Failed calls
// are never cached.
type CachingCompleter struct {
	delegate   Completer
	expiration time.Duration
	lru        *simplelru.LRU
	mu         *sync.Mutex
	now        func() time.Time
}

var _ Completer = &CachingCompleter{}

func NewCachingCompleter(size int, expiration time.Duration, delegate Completer) (*CachingCompleter, error) {
	var onEvict simplelru.EvictCallback
	lru, err := simplelru.NewLRU(size, onEvict)
	if err != nil {
		return nil, err
	}

	return &CachingCompleter{
		delegate:   delegate,
		expiration: expiration,
		lru:        lru,
		mu:         &sync.Mutex{},
		now:        time.Now,
	}, nil
}

func (c *CachingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if text, ok := c.get(key); ok {
		return text, nil
	}

	text, err := c.delegate.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.set(key, text)
	return text, nil
}

func (c *CachingCompleter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

func (c *CachingCompleter) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(key); ok {
		entry := e.(cacheEntry)
		if entry.isExpired(c.now()) {
			c.lru.Remove(key)
			return "", false
		}
		return entry.text, true
	}
	return "", false
}

func (c *CachingCompleter) set(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.lru.Add(key, cacheEntry{text: text, expiry: c.now().Add(c.expiration)})
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
