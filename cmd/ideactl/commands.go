package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-idea-board/internal/app"
	"go-gin-idea-board/internal/core/config"
	"go-gin-idea-board/internal/core/database"
	"go-gin-idea-board/internal/core/logger"
	"go-gin-idea-board/internal/repo"
)

type env struct {
	cfg     *config.Config
	log     *zap.Logger
	cleanup func()
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	e := &env{}

	root := &cobra.Command{
		Use:           "ideactl",
		Short:         "Idea board maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath == "" {
				cfgPath = os.Getenv("CONFIG_PATH")
			}
			c, err := config.Read(cfgPath)
			if err != nil {
				return err
			}
			e.cfg = c
			e.log, e.cleanup = logger.New(c.Log)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.cleanup != nil {
				e.cleanup()
			}
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	root.AddCommand(
		migrateCmd(e),
		seedCmd(e),
		workerCmd(e),
		grantAdminCmd(e),
	)
	return root
}

func (e *env) openDB() (*gorm.DB, func(), error) {
	db, err := app.OpenDB(e.cfg, e.log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}

func migrateCmd(e *env) *cobra.Command {
	var noSeed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables, then seed default categories and statuses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeFn, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			e.log.Info("migrate done", zap.String("driver", e.cfg.DB.Driver))
			if noSeed {
				return nil
			}
			if err := database.Seed(cmd.Context(), db); err != nil {
				return err
			}
			return app.RefreshCatalogCache(cmd.Context(), e.cfg, db)
		},
	}
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "skip default categories and statuses")
	return cmd
}

func seedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert default categories and statuses (idempotent)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeFn, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := database.Seed(cmd.Context(), db); err != nil {
				return err
			}
			e.log.Info("seed done",
				zap.Int("statuses", len(database.DefaultStatuses)),
				zap.Int("categories", len(database.DefaultCategories)))
			return app.RefreshCatalogCache(cmd.Context(), e.cfg, db)
		},
	}
}

func workerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume notification tasks from the redis queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.Queue.Driver != "redis" {
				return fmt.Errorf("worker needs queue.driver=redis, got %q", e.cfg.Queue.Driver)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, _, err := e.openDB()
			if err != nil {
				return err
			}
			a, err := app.Build(ctx, e.cfg, e.log.Named("ideactl"), db)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.RunWorker(ctx)
		},
	}
}

func grantAdminCmd(e *env) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Grant (or revoke) the admin role for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeFn, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			return grantAdmin(cmd.Context(), repo.NewUserRepo(db), args[0], !revoke, e.log)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the admin role instead")
	return cmd
}

func grantAdmin(ctx context.Context, users *repo.UserRepo, email string, admin bool, l *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}
	if err := users.SetAdmin(ctx, u.ID, admin); err != nil {
		return err
	}
	l.Info("admin role updated", zap.Uint("user_id", u.ID), zap.Bool("admin", admin))
	return nil
}
