// Package queue 异步任务队列：memory（单进程 channel）与 redis（list, LPUSH/BRPOP）
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrClosed = errors.New("queue closed")

type Task struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

func NewTask(typ string, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{ID: uuid.NewString(), Type: typ, Payload: b}, nil
}

// Decode 反序列化 payload
func (t Task) Decode(v any) error { return json.Unmarshal(t.Payload, v) }

type Queue interface {
	Push(ctx context.Context, t Task) error
	// Pop 阻塞直到拿到任务或 ctx 结束
	Pop(ctx context.Context) (Task, error)
}

// ---------- memory ----------

// Memory 进程内无界队列：Push 从不阻塞，消费者可以安全地向自身队列再入队
type Memory struct {
	mu      sync.Mutex
	backlog []Task
	signal  chan struct{}
}

// NewMemory size 只是初始容量
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1024
	}
	return &Memory{backlog: make([]Task, 0, size), signal: make(chan struct{}, 1)}
}

func (m *Memory) Push(_ context.Context, t Task) error {
	m.mu.Lock()
	m.backlog = append(m.backlog, t)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return nil
}

func (m *Memory) Pop(ctx context.Context) (Task, error) {
	for {
		m.mu.Lock()
		if len(m.backlog) > 0 {
			t := m.backlog[0]
			m.backlog[0] = Task{}
			m.backlog = m.backlog[1:]
			more := len(m.backlog) > 0
			if !more {
				// 底层数组随队列清空一起释放
				m.backlog = nil
			}
			m.mu.Unlock()
			if more {
				// 唤醒下一个等待者
				select {
				case m.signal <- struct{}{}:
				default:
				}
			}
			return t, nil
		}
		m.mu.Unlock()
		select {
		case <-m.signal:
		case <-ctx.Done():
			return Task{}, ctx.Err()
		}
	}
}

// Len 当前积压（测试与指标用）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backlog)
}

// ---------- redis ----------

type Redis struct {
	rdb  *redis.Client
	key  string
	poll time.Duration
}

func NewRedis(rdb *redis.Client, key string) *Redis {
	return &Redis{rdb: rdb, key: key, poll: time.Second}
}

func (r *Redis) Push(ctx context.Context, t Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.rdb.LPush(ctx, r.key, b).Err()
}

// Pop BRPOP 带超时轮询，便于及时响应 ctx 取消
func (r *Redis) Pop(ctx context.Context) (Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Task{}, err
		}
		res, err := r.rdb.BRPop(ctx, r.poll, r.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Task{}, ctx.Err()
			}
			return Task{}, err
		}
		// res = [key, value]
		var t Task
		if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
			return Task{}, err
		}
		return t, nil
	}
}
