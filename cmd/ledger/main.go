// Package main запускает терминальный интерфейс леджера счетов.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/ledger-system/internal/cli"
	"github.com/mmeshcher/ledger-system/internal/config"
	"github.com/mmeshcher/ledger-system/internal/password"
	"github.com/mmeshcher/ledger-system/internal/repository"
	"github.com/mmeshcher/ledger-system/internal/service"
	"github.com/mmeshcher/ledger-system/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var hasher password.Hasher
	switch cfg.PasswordAlgo {
	case config.AlgoBcrypt:
		hasher = password.NewBcryptHasher(0)
	default:
		hasher = password.NewSHA512Hasher(cfg.SaltLength)
	}

	repo := repository.NewMemoryRepository()
	sessions := session.NewTable(cfg.SessionTTL, cfg.LockTimeout)
	svc := service.NewService(repo, sessions, hasher, logger)
	term := cli.NewHandler(svc, logger, os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Терминальный цикл; stop снимает контекст, когда пользователь вышел сам
	g.Go(func() error {
		defer stop()
		sugar.Infow("starting ledger terminal",
			"session_ttl", cfg.SessionTTL,
			"lock_timeout", cfg.LockTimeout,
			"password_algo", cfg.PasswordAlgo,
		)
		return term.Run(ctx)
	})

	// Завершение при отмене контекста (сигнал или выход из терминала)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down ledger...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("application terminated with error", "error", err)
	}

	sugar.Info("ledger stopped")
}
