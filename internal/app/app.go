// Package app 按配置装配各组件，供 cmd/api、cmd/admin、cmd/ideactl 共用
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-idea-board/internal/core/auth"
	"go-gin-idea-board/internal/core/cache"
	"go-gin-idea-board/internal/core/config"
	"go-gin-idea-board/internal/core/database"
	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/core/mail"
	"go-gin-idea-board/internal/core/queue"
	"go-gin-idea-board/internal/core/session"
	"go-gin-idea-board/internal/nav"
	"go-gin-idea-board/internal/notify"
	"go-gin-idea-board/internal/policy"
	"go-gin-idea-board/internal/repo"
	"go-gin-idea-board/internal/service"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
	"go-gin-idea-board/internal/transport/http/router"
)

// CachePrefix 所有缓存 key 的前缀
const CachePrefix = "ideaboard:"

type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	Queue  queue.Queue
	Worker *queue.Worker
	Deps   router.Deps
}

func needRedis(c *config.Config) bool {
	return c.Queue.Driver == "redis" || c.Session.Driver == "redis" || c.Cache.Enable
}

func OpenDB(c *config.Config, l *zap.Logger) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             c.DB.Driver,
		DSN:                c.DB.DSN,
		Username:           c.DB.Username,
		Password:           c.DB.Password,
		MaxOpenConns:       c.DB.MaxOpenConns,
		MaxIdleConns:       c.DB.MaxIdleConns,
		ConnMaxLifetimeMin: c.DB.ConnMaxLifetimeMin,
		LogLevel:           c.DB.LogLevel,
		Log:                l,
	})
}

// New 打开 DB（按需迁移 + 种子）、redis，装配 service 与路由依赖
func New(ctx context.Context, c *config.Config, l *zap.Logger) (*App, error) {
	db, err := OpenDB(c, l)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	l.Info("database connected", zap.String("driver", c.DB.Driver))
	if c.DB.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		if err := database.Seed(ctx, db); err != nil {
			return nil, err
		}
		l.Info("automigrate done")
	}
	return Build(ctx, c, l, db)
}

// Build 在已就绪的 DB 上装配（测试直接传内存库）
func Build(ctx context.Context, c *config.Config, l *zap.Logger, db *gorm.DB) (*App, error) {
	a := &App{Cfg: c, Log: l, DB: db}

	if needRedis(c) {
		a.Redis = cache.NewClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", c.Redis.Addr, err)
		}
		l.Info("redis connected", zap.String("addr", c.Redis.Addr))
	}

	// 队列
	switch c.Queue.Driver {
	case "redis":
		a.Queue = queue.NewRedis(a.Redis, c.Queue.Key)
	default:
		a.Queue = queue.NewMemory(1024)
	}

	// 邮件
	var mailer mail.Mailer
	switch c.Mail.Driver {
	case "smtp":
		s := c.Mail.SMTP
		mailer = mail.NewSMTPMailer(s.Host, s.Port, s.Username, s.Password, c.Mail.From)
	default:
		mailer = mail.NewLogMailer(l.Named("mail"), c.Mail.From)
	}

	// session + 事件总线
	ttl := time.Duration(c.Session.TTLMin) * time.Minute
	var store session.Store
	var bus events.Bus
	if a.Redis != nil && c.Session.Driver == "redis" {
		store = session.NewRedis(a.Redis, "ideaboard:session:", ttl)
	} else {
		store = session.NewMemory(ttl)
	}
	if a.Redis != nil {
		bus = events.NewRedis(a.Redis, "ideaboard:events:idea:", l.Named("events"))
	} else {
		bus = events.NewMemory()
	}

	var cc *cache.Cache
	if c.Cache.Enable {
		cc = cache.New(a.Redis, CachePrefix)
	}

	// repo → service
	ideaRepo := repo.NewIdeaRepo(db)
	commentRepo := repo.NewCommentRepo(db)
	catalogRepo := repo.NewCatalogRepo(db)
	userRepo := repo.NewUserRepo(db)
	p := policy.New()
	jwter := auth.New(c.JWT.Secret, c.JWT.Issuer, time.Duration(c.JWT.AccessTokenTTLMin)*time.Minute)

	a.Worker = queue.NewWorker(a.Queue, l.Named("worker"), c.Queue.Workers, c.Queue.MaxAttempts)
	notify.NewJobs(ideaRepo, a.Queue, mailer, c.App.HTTP.BaseURL, l.Named("notify")).Register(a.Worker)

	a.Deps = router.Deps{
		Log: l,
		Env: c.App.Env,
		JWT: jwter,
		Users: service.NewUserService(userRepo, jwter, p),
		Ideas: service.NewIdeaService(service.IdeaDeps{
			Ideas: ideaRepo, Comments: commentRepo, Catalog: catalogRepo,
			Auth: p, Notifier: notify.NewDispatcher(a.Queue), Log: l.Named("ideas"),
			PerPage: c.Board.IdeasPerPage, CommentsPerPage: c.Board.CommentsPerPage,
		}),
		Comments: service.NewCommentService(commentRepo, ideaRepo, p, bus, l.Named("comments")),
		Votes:    service.NewVoteService(repo.NewVoteRepo(db), ideaRepo, p),
		Catalog:  service.NewCatalogService(catalogRepo, cc, time.Duration(c.Cache.TTLSec)*time.Second),
		Sessions: store,
		Tracker:  nav.NewTracker(store),
		Bus:      bus,
		Session: mdw.SessionOpts{
			CookieName: c.Session.CookieName,
			MaxAgeSec:  c.Session.TTLMin * 60,
			Secure:     c.Session.Secure,
		},
		Timeout: time.Duration(c.App.HTTP.WriteTimeoutSec) * time.Second,
	}
	return a, nil
}

// RefreshCatalogCache 种子写入后清掉分类/状态缓存；未开启缓存时什么也不做
func RefreshCatalogCache(ctx context.Context, c *config.Config, db *gorm.DB) error {
	if !c.Cache.Enable {
		return nil
	}
	rdb := cache.NewClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Redis.Addr, err)
	}
	service.NewCatalogService(repo.NewCatalogRepo(db), cache.New(rdb, CachePrefix), 0).Invalidate(ctx)
	return nil
}

// EmbeddedWorker memory 队列只能在本进程消费；redis 队列交给 ideactl worker
func (a *App) EmbeddedWorker() bool { return a.Cfg.Queue.Driver != "redis" }

// RunWorker 阻塞到 ctx 取消
func (a *App) RunWorker(ctx context.Context) error {
	a.Log.Info("queue worker running",
		zap.String("driver", a.Cfg.Queue.Driver), zap.Int("workers", a.Cfg.Queue.Workers))
	return a.Worker.Run(ctx)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
