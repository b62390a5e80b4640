package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const requeueTimeout = 5 * time.Second

type Handler func(ctx context.Context, t Task) error

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "queue_tasks_total", Help: "Processed queue tasks by type and result"},
		[]string{"type", "result"},
	)
	taskLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_task_duration_seconds",
			Help:    "Queue task handling latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"},
	)
)

func init() { prometheus.MustRegister(tasksTotal, taskLatency) }

// Worker 固定数量的消费协程；失败任务 attempts+1 后重新入队，达到上限丢弃
type Worker struct {
	q           Queue
	log         *zap.Logger
	concurrency int
	maxAttempts int

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewWorker(q Queue, l *zap.Logger, concurrency, maxAttempts int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Worker{q: q, log: l, concurrency: concurrency, maxAttempts: maxAttempts, handlers: map[string]Handler{}}
}

func (w *Worker) Handle(typ string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[typ] = h
}

// Run 阻塞到 ctx 取消；ctx 取消返回 nil
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for {
				t, err := w.q.Pop(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					w.log.Warn("queue pop failed", zap.Error(err))
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(time.Second):
					}
					continue
				}
				w.Process(ctx, t)
			}
		})
	}
	return g.Wait()
}

// Process 处理单个任务（含重试入队）；单任务失败不影响其他任务
func (w *Worker) Process(ctx context.Context, t Task) {
	w.mu.RLock()
	h, ok := w.handlers[t.Type]
	w.mu.RUnlock()
	if !ok {
		tasksTotal.WithLabelValues(t.Type, "unknown").Inc()
		w.log.Error("no handler for task", zap.String("type", t.Type), zap.String("task_id", t.ID))
		return
	}

	start := time.Now()
	err := safeCall(ctx, h, t)
	taskLatency.WithLabelValues(t.Type).Observe(time.Since(start).Seconds())
	if err == nil {
		tasksTotal.WithLabelValues(t.Type, "ok").Inc()
		return
	}

	t.Attempts++
	fields := []zap.Field{
		zap.String("type", t.Type), zap.String("task_id", t.ID),
		zap.Int("attempts", t.Attempts), zap.Error(err),
	}
	if t.Attempts >= w.maxAttempts || errors.Is(err, ErrPermanent) {
		tasksTotal.WithLabelValues(t.Type, "dropped").Inc()
		w.log.Error("task failed, dropped", fields...)
		return
	}
	tasksTotal.WithLabelValues(t.Type, "retry").Inc()
	w.log.Warn("task failed, retrying", fields...)
	// 关停时也要把任务放回去，但不能无限等
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	if perr := w.q.Push(pctx, t); perr != nil {
		w.log.Error("requeue failed", append(fields, zap.NamedError("push_err", perr))...)
	}
}

// ErrPermanent 包装后不再重试（如 payload 解析失败）
var ErrPermanent = errors.New("permanent task failure")

func safeCall(ctx context.Context, h Handler, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPermanent, r)
		}
	}()
	return h(ctx, t)
}
