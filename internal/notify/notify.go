// Package notify 状态变更通知：notify_all_voters 任务拆成每个投票人一封 send_mail
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"go-gin-idea-board/internal/core/mail"
	"go-gin-idea-board/internal/core/queue"
	"go-gin-idea-board/internal/domain"
)

const (
	TaskNotifyAllVoters = "notify_all_voters"
	TaskSendMail        = "send_mail"

	StatusUpdatedSubject = "An idea you voted for has a new status"

	// 入队超时，状态变更请求不等通知
	dispatchTimeout = 2 * time.Second
)

var mailsQueued = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "notify_mails_queued_total",
	Help: "Status-updated mails queued for voters",
})

func init() { prometheus.MustRegister(mailsQueued) }

type notifyPayload struct {
	IdeaID uint `json:"ideaId"`
}

type mailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IdeaID  uint   `json:"ideaId"`
}

// Dispatcher 只负责入队，调用方不等待发送
type Dispatcher struct {
	q queue.Queue
}

func NewDispatcher(q queue.Queue) *Dispatcher { return &Dispatcher{q: q} }

func (d *Dispatcher) NotifyAllVoters(ctx context.Context, ideaID uint) error {
	t, err := queue.NewTask(TaskNotifyAllVoters, notifyPayload{IdeaID: ideaID})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	return d.q.Push(ctx, t)
}

type Jobs struct {
	ideas   domain.IdeaRepository
	q       queue.Queue
	mailer  mail.Mailer
	baseURL string
	log     *zap.Logger
}

func NewJobs(ideas domain.IdeaRepository, q queue.Queue, m mail.Mailer, baseURL string, l *zap.Logger) *Jobs {
	return &Jobs{ideas: ideas, q: q, mailer: m, baseURL: strings.TrimRight(baseURL, "/"), log: l}
}

func (j *Jobs) Register(w *queue.Worker) {
	w.Handle(TaskNotifyAllVoters, j.HandleNotifyAllVoters)
	w.Handle(TaskSendMail, j.HandleSendMail)
}

func (j *Jobs) HandleNotifyAllVoters(ctx context.Context, t queue.Task) error {
	var p notifyPayload
	if err := t.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}
	idea, err := j.ideas.FindByID(ctx, p.IdeaID)
	if errors.Is(err, domain.ErrNotFound) {
		// 想法已被删除，无人可通知
		j.log.Info("notify skipped, idea gone", zap.Uint("idea_id", p.IdeaID))
		return nil
	}
	if err != nil {
		return err
	}
	voters, err := j.ideas.Voters(ctx, idea.ID)
	if err != nil {
		return err
	}
	n := j.FanOut(ctx, idea, voters)
	j.log.Info("status notifications queued", zap.Uint("idea_id", idea.ID), zap.Int("mails", n))
	return nil
}

// FanOut 按用户去重，每人一封；单个入队失败记日志后继续
func (j *Jobs) FanOut(ctx context.Context, idea *domain.Idea, voters []domain.User) int {
	seen := make(map[uint]struct{}, len(voters))
	queued := 0
	for i := range voters {
		u := voters[i]
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		msg := StatusUpdatedMessage(u, idea, j.baseURL)
		t, err := queue.NewTask(TaskSendMail, mailPayload{To: msg.To, Subject: msg.Subject, Body: msg.Body, IdeaID: idea.ID})
		if err == nil {
			err = j.q.Push(ctx, t)
		}
		if err != nil {
			j.log.Error("queue status mail failed",
				zap.Uint("idea_id", idea.ID), zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		queued++
		mailsQueued.Inc()
	}
	return queued
}

func (j *Jobs) HandleSendMail(ctx context.Context, t queue.Task) error {
	var p mailPayload
	if err := t.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}
	if err := j.mailer.Send(ctx, mail.Message{To: p.To, Subject: p.Subject, Body: p.Body}); err != nil {
		j.log.Warn("status mail delivery failed",
			zap.String("to", p.To), zap.Uint("idea_id", p.IdeaID), zap.Int("attempts", t.Attempts), zap.Error(err))
		return err
	}
	return nil
}

// StatusUpdatedMessage 给单个投票人的状态变更邮件
func StatusUpdatedMessage(to domain.User, idea *domain.Idea, baseURL string) mail.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", to.Name)
	fmt.Fprintf(&b, "The idea \"%s\" has a new status: %s.\n\n", idea.Title, idea.Status.Name)
	fmt.Fprintf(&b, "View the idea: %s/ideas/%s\n", baseURL, idea.Slug)
	return mail.Message{To: to.Email, Subject: StatusUpdatedSubject, Body: b.String()}
}
