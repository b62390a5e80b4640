// Package events 评论增改的实时事件：详情页 SSE 订阅，用于局部刷新
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CommentWasAdded   = "commentWasAdded"
	CommentWasUpdated = "commentWasUpdated"
)

type Event struct {
	Name      string `json:"name"`
	IdeaID    uint   `json:"ideaId"`
	CommentID uint   `json:"commentId"`
}

type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe 返回某个想法的事件流；cancel 后 channel 关闭
	Subscribe(ctx context.Context, ideaID uint) (<-chan Event, func())
}

// ---------- memory ----------

type Memory struct {
	mu   sync.Mutex
	subs map[uint]map[chan Event]struct{}
}

func NewMemory() *Memory { return &Memory{subs: map[uint]map[chan Event]struct{}{}} }

// Publish 订阅者消费不过来时丢弃，不阻塞写请求
func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[e.IdeaID] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, ideaID uint) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	m.mu.Lock()
	if m.subs[ideaID] == nil {
		m.subs[ideaID] = map[chan Event]struct{}{}
	}
	m.subs[ideaID][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[ideaID], ch)
			if len(m.subs[ideaID]) == 0 {
				delete(m.subs, ideaID)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
}

// ---------- redis ----------

// Redis 每个想法一个频道，多实例之间也能收到
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedis(rdb *redis.Client, prefix string, l *zap.Logger) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, log: l}
}

func (r *Redis) channel(ideaID uint) string {
	return r.prefix + strconv.FormatUint(uint64(ideaID), 10)
}

func (r *Redis) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel(e.IdeaID), b).Err()
}

func (r *Redis) Subscribe(ctx context.Context, ideaID uint) (<-chan Event, func()) {
	ps := r.rdb.Subscribe(ctx, r.channel(ideaID))
	out := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					r.log.Warn("bad event payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- e:
				default:
				}
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
}
