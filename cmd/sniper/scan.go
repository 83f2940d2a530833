package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
	"solana_sniper/internal/runner"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "discover and score candidates without buying",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "iterations",
				Usage: "number of scans, 0 runs until interrupted",
				Value: 1,
			},
		},
		Action: scanAction,
	}
}

func scanAction(c *cli.Context) error {
	s, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	settings := config.Fixed(s)
	store := position.NewStore()
	q := notify.NewQueue(notify.NewStdout(log), notify.DefaultQueueSize, log, nil)
	defer q.Close()

	p, err := runner.NewPipeline(settings, store, q, nil, log)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	r := runner.New(p.Scanner, p.Scorer, p.Executor, nil, store, q, settings, log.Named("runner"), runner.ScanOnly())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if p.PumpPortal != nil {
		go p.PumpPortal.Run(ctx)
	}

	iterations := c.Int("iterations")
	total := 0
	for i := 0; iterations <= 0 || i < iterations; i++ {
		eligible := r.ScanOnce(ctx)
		total += eligible
		log.Info("scan finished", zap.Int("iteration", i+1), zap.Int("eligible", eligible))
		if iterations > 0 && i+1 == iterations {
			break
		}
		if !sleepCtx(ctx, s.Monitoring.ScanInterval) {
			break
		}
	}
	log.Info("scan mode done", zap.Int("eligible_total", total))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
