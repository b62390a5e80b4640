// Package session 按 session id 存取少量键值（上一页 URL、一次性 flash）
package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyPreviousURL = "previous_url"
	KeyFlash       = "flash"
)

type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, val string) error
	// Pull 读取后删除（flash 语义）
	Pull(ctx context.Context, sid, key string) (string, error)
}

// ---------- memory ----------

type entry struct {
	vals    map[string]string
	expires time.Time
}

type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]*entry
	now  func() time.Time

	lastSweep time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, data: map[string]*entry{}, now: time.Now, lastSweep: time.Now()}
}

// sweep 每个 ttl 周期最多清一次过期 session；调用方持锁
func (m *Memory) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) <= m.ttl {
		return
	}
	for sid, e := range m.data {
		if now.After(e.expires) {
			delete(m.data, sid)
		}
	}
	m.lastSweep = now
}

func (m *Memory) live(sid string) *entry {
	e, ok := m.data[sid]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.data, sid)
		return nil
	}
	return e
}

func (m *Memory) Get(_ context.Context, sid, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(sid); e != nil {
		return e.vals[key], nil
	}
	return "", nil
}

func (m *Memory) Set(_ context.Context, sid, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	e := m.live(sid)
	if e == nil {
		e = &entry{vals: map[string]string{}}
		m.data[sid] = e
	}
	e.vals[key] = val
	e.expires = now.Add(m.ttl)
	return nil
}

func (m *Memory) Pull(_ context.Context, sid, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(sid)
	if e == nil {
		return "", nil
	}
	v := e.vals[key]
	delete(e.vals, key)
	return v, nil
}

// ---------- redis ----------

// Redis 每个 session 一个 hash，写入时续期
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(sid string) string { return r.prefix + sid }

func (r *Redis) Get(ctx context.Context, sid, key string) (string, error) {
	v, err := r.rdb.HGet(ctx, r.key(sid), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, sid, key, val string) error {
	k := r.key(sid)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, key, val)
		if r.ttl > 0 {
			p.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	return err
}

func (r *Redis) Pull(ctx context.Context, sid, key string) (string, error) {
	k := r.key(sid)
	var get *redis.StringCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.HGet(ctx, k, key)
		p.HDel(ctx, k, key)
		return nil
	})
	if err != nil && err != redis.Nil {
		return "", err
	}
	v, err := get.Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
