package session

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ad-studio-api/internal/domain/repository"
	"ad-studio-api/pkg/metrics"
)

// DefaultIdleTTL 缓存 Store 的默认空闲回收时间
const DefaultIdleTTL = 30 * time.Minute

type cachedStore struct {
	store    *Store
	lastUsed atomic.Int64
}

func (e *cachedStore) touch(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
}

func (e *cachedStore) idleSince(now time.Time) time.Duration {
	return time.Duration(now.UnixNano() - e.lastUsed.Load())
}

// Registry 按会话懒创建并缓存 Store
//
// 空闲超过 idleTTL 且没有进行中操作的 Store 会在后续 Get 时被回收，
// 会话数据本身留在存储后端，再次访问时重新创建视图。
type Registry struct {
	kv      repository.KVStore
	idleTTL time.Duration
	now     func() time.Time

	stores    sync.Map // sessionID -> *cachedStore
	group     singleflight.Group
	lastSweep atomic.Int64
}

// NewRegistry 创建注册表，idleTTL <= 0 时使用 DefaultIdleTTL
func NewRegistry(kv repository.KVStore, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{kv: kv, idleTTL: idleTTL, now: time.Now}
}

// Get 返回会话的 Store，同一会话的并发首次访问共享同一实例
func (r *Registry) Get(sessionID string) *Store {
	now := r.now()
	r.maybeSweep(now)

	if v, ok := r.stores.Load(sessionID); ok {
		e := v.(*cachedStore)
		e.touch(now)
		return e.store
	}

	v, _, _ := r.group.Do(sessionID, func() (interface{}, error) {
		if v, ok := r.stores.Load(sessionID); ok {
			return v, nil
		}
		e := &cachedStore{store: NewStore(sessionID, r.kv)}
		e.touch(now)
		r.stores.Store(sessionID, e)
		metrics.ActiveSessions.Inc()
		return e, nil
	})
	e := v.(*cachedStore)
	e.touch(now)
	return e.store
}

// Forget 移除缓存的 Store
func (r *Registry) Forget(sessionID string) {
	if _, loaded := r.stores.LoadAndDelete(sessionID); loaded {
		metrics.ActiveSessions.Dec()
	}
}

// KV 底层存储
func (r *Registry) KV() repository.KVStore {
	return r.kv
}

// maybeSweep 每半个 idleTTL 最多扫描一次
func (r *Registry) maybeSweep(now time.Time) {
	last := r.lastSweep.Load()
	if now.UnixNano()-last < int64(r.idleTTL/2) {
		return
	}
	if !r.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	r.evictIdle(now)
}

// evictIdle 回收空闲的 Store，持有会话锁的不回收
func (r *Registry) evictIdle(now time.Time) int {
	evicted := 0
	r.stores.Range(func(key, value any) bool {
		e := value.(*cachedStore)
		if e.idleSince(now) < r.idleTTL {
			return true
		}
		release, ok := e.store.TryLock()
		if !ok {
			return true
		}
		defer release()
		// 加锁期间可能刚被访问过
		if e.idleSince(now) >= r.idleTTL && r.stores.CompareAndDelete(key, e) {
			metrics.ActiveSessions.Dec()
			evicted++
		}
		return true
	})
	return evicted
}
