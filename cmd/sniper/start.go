package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/modules/bootstrap"
	cfgmodule "solana_sniper/internal/modules/config"
	"solana_sniper/internal/modules/health"
	"solana_sniper/internal/modules/postgres"
	telegram "solana_sniper/internal/modules/telegram_bot"
	"solana_sniper/internal/runner"
	"solana_sniper/pkg/tracing"
)

const (
	startTimeout = 60 * time.Second
	stopTimeout  = 3 * time.Minute
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "run the full pipeline until interrupted",
		Action: startAction,
	}
}

func startAction(c *cli.Context) error {
	s, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	lock, err := runner.AcquireLock(s.Runtime.LockFile)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("lock release failed", zap.Error(err))
		}
	}()

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Service: serviceName,
		Host:    s.Runtime.JaegerHost,
		Port:    s.Runtime.JaegerPort,
	}, log)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer closeTracer()
	}

	log.Info("starting sniper\n" + s.Summary())
	if !s.Trading.SimulationMode {
		log.Warn("live mode without a transaction signer: fills are quote-only and nothing is sent on chain")
	}

	app := newApp(s, log)
	startCtx, cancel := context.WithTimeout(c.Context, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sig := <-app.Wait()
	log.Info("shutting down", zap.String("signal", sig.Signal.String()))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func newApp(s *config.Settings, log *zap.Logger) *fx.App {
	return fx.New(
		fx.Supply(s, log),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		cfgmodule.Module(),
		postgres.Module(),
		bootstrap.Module(),
		telegram.Module(),
		health.Module(),
		runner.Module(),
	)
}
