package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache 带 TTL 的本地 LRU 缓存
type Cache[V any] struct {
	lruCache *lru.Cache[string, cacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

func NewCache[V any](size int, ttl time.Duration) *Cache[V] {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		// 只有 size <= 0 会出错
		panic(err)
	}
	return &Cache[V]{lruCache: l, ttl: ttl, now: time.Now}
}

// Set 设置缓存，使用构造时的 TTL
func (c *Cache[V]) Set(key string, data V) {
	c.lruCache.Add(key, cacheItem[V]{data: data, expiresAt: c.now().Add(c.ttl)})
}

// Get 不存在或已过期时 ok 为 false
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}
	return val.data, true
}

func (c *Cache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}

// Purge 清空全部缓存 (任何写操作之后调用)
func (c *Cache[V]) Purge() {
	c.lruCache.Purge()
}

func (c *Cache[V]) Len() int {
	return c.lruCache.Len()
}
