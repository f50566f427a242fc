package esi

import "sync"

// cache — кэш одного вида сущностей. Записи одинаковы для одного id,
// так что гонка двух set безопасна; сама map защищена мьютексом.
type cache[T any] struct {
	mu    sync.RWMutex
	items map[int64]*T
}

func newCache[T any]() *cache[T] {
	return &cache[T]{items: make(map[int64]*T)}
}

func (c *cache[T]) get(id int64) (*T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

func (c *cache[T]) set(id int64, v *T) {
	c.mu.Lock()
	c.items[id] = v
	c.mu.Unlock()
}

func (c *cache[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
