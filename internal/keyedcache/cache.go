package keyedcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrClosed 缓存已关闭（页面卸载），迟到的结果被丢弃
var ErrClosed = errors.New("keyedcache: closed")

// Entry 某个 key 的加载状态
type Entry[V any] struct {
	Data    V
	Loaded  bool
	Loading bool
	Err     error
}

// FetchFunc 加载函数
type FetchFunc[V any] func(ctx context.Context) (V, error)

type slot[V any] struct {
	entry Entry[V]
	gen   uint64
}

// Cache 按 key 懒加载并缓存数据
//
// 同一 key 并发加载会合并为一次请求；Refresh 会提升该 key 的代数，
// 旧代数的结果返回时直接丢弃，以最后发起的请求为准。
type Cache[K comparable, V any] struct {
	name   string
	logger *zap.Logger

	mu     sync.Mutex
	slots  map[K]*slot[V]
	group  singleflight.Group
	closed bool
}

func New[K comparable, V any](name string, logger *zap.Logger) *Cache[K, V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[K, V]{
		name:   name,
		logger: logger,
		slots:  make(map[K]*slot[V]),
	}
}

// Ensure 未加载（或上次加载失败）时发起加载；已加载直接返回缓存，加载中则等待同一次请求
func (c *Cache[K, V]) Ensure(ctx context.Context, key K, fetch FetchFunc[V]) (Entry[V], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Entry[V]{}, ErrClosed
	}
	s, ok := c.slots[key]
	if ok && s.entry.Loaded {
		e := s.entry
		c.mu.Unlock()
		return e, nil
	}
	if !ok {
		s = &slot[V]{}
		c.slots[key] = s
	}
	if !s.entry.Loading {
		s.gen++
		s.entry = Entry[V]{Loading: true}
	}
	ch := c.start(ctx, key, s, fetch)
	c.mu.Unlock()

	return c.wait(ctx, ch)
}

// Refresh 清空该 key 后重新加载
func (c *Cache[K, V]) Refresh(ctx context.Context, key K, fetch FetchFunc[V]) (Entry[V], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Entry[V]{}, ErrClosed
	}
	s, ok := c.slots[key]
	if !ok {
		s = &slot[V]{}
		c.slots[key] = s
	}
	s.gen++
	s.entry = Entry[V]{Loading: true}
	ch := c.start(ctx, key, s, fetch)
	c.mu.Unlock()

	return c.wait(ctx, ch)
}

// start 需持有 c.mu
func (c *Cache[K, V]) start(ctx context.Context, key K, s *slot[V], fetch FetchFunc[V]) <-chan singleflight.Result {
	flightKey := fmt.Sprintf("%v#%d", key, s.gen)
	return c.group.DoChan(flightKey, c.flight(ctx, key, s, s.gen, fetch))
}

func (c *Cache[K, V]) flight(ctx context.Context, key K, s *slot[V], gen uint64, fetch FetchFunc[V]) func() (any, error) {
	return func() (any, error) {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		// 本代数已结束或已被替换：不再请求，直接返回当前状态
		if c.slots[key] != s || s.gen != gen || !s.entry.Loading {
			e := s.entry
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		// 多个调用方共享同一次请求，任一方取消不影响其他等待者
		data, err := fetch(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			c.logger.Debug("discard result after close", zap.String("cache", c.name), zap.Any("key", key))
			return nil, ErrClosed
		}
		if c.slots[key] != s || s.gen != gen {
			c.logger.Debug("discard stale result",
				zap.String("cache", c.name),
				zap.Any("key", key),
				zap.Uint64("gen", gen),
			)
			return s.entry, nil
		}
		if err != nil {
			c.logger.Warn("failed to load cache entry",
				zap.String("cache", c.name),
				zap.Any("key", key),
				zap.Error(err),
			)
			s.entry = Entry[V]{Err: err}
			return s.entry, nil
		}
		s.entry = Entry[V]{Data: data, Loaded: true}
		return s.entry, nil
	}
}

func (c *Cache[K, V]) wait(ctx context.Context, ch <-chan singleflight.Result) (Entry[V], error) {
	select {
	case <-ctx.Done():
		return Entry[V]{Loading: true}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Entry[V]{}, r.Err
		}
		return r.Val.(Entry[V]), nil
	}
}

// Get 读取当前状态，不触发加载
func (c *Cache[K, V]) Get(key K) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		return Entry[V]{}, false
	}
	return s.entry, true
}

// Update 修改已加载的数据（后端操作成功后同步本地副本），未加载返回 false
func (c *Cache[K, V]) Update(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok || !s.entry.Loaded {
		return false
	}
	s.entry.Data = fn(s.entry.Data)
	return true
}

// Forget 删除该 key，进行中的请求结果会被丢弃
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	delete(c.slots, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Close 清空缓存，之后的加载返回 ErrClosed
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	c.closed = true
	c.slots = make(map[K]*slot[V])
	c.mu.Unlock()
}
