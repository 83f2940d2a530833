package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"solana_sniper/internal/config"
	"solana_sniper/internal/helper"
	"solana_sniper/internal/models"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/scanner"
	"solana_sniper/internal/scorer"
	"solana_sniper/internal/solana"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func testCommand() *cli.Command {
	return &cli.Command{
		Name:  "test",
		Usage: "check connectivity before going live",
		Subcommands: []*cli.Command{
			{Name: "wallet", Usage: "validate the wallet address and read its balance", Action: testWallet},
			{Name: "telegram", Usage: "send a test alert", Action: testTelegram},
			{Name: "endpoints", Usage: "probe every configured HTTP dependency", Action: testEndpoints},
			{
				Name:  "speed",
				Usage: "time repeated discovery polls",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Value: 5, Usage: "number of polls"},
				},
				Action: testSpeed,
			},
		},
	}
}

func testWallet(c *cli.Context) error {
	s, _, err := loadRuntime()
	if err != nil {
		return err
	}
	if err := solana.ValidateAddress(s.Wallet.Address); err != nil {
		return cli.Exit(fmt.Sprintf("wallet address: %v", err), 1)
	}
	rpc := solana.NewClient(s.Wallet.RPCURL,
		solana.WithTimeout(s.APIs.RequestTimeout),
		solana.WithFallbacks(s.Wallet.BackupRPCURLs...))

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()
	lamports, err := rpc.GetBalance(ctx, s.Wallet.Address)
	if err != nil {
		return cli.Exit(fmt.Sprintf("balance: %v", err), 1)
	}
	balance := helper.LamportsToSOL(lamports)
	fmt.Printf("wallet   %s\nbalance  %.6f SOL\n", s.Wallet.Address, balance)
	if balance < s.Wallet.MinBalanceSOL {
		return cli.Exit(fmt.Sprintf("balance below the configured minimum of %.4f SOL", s.Wallet.MinBalanceSOL), 1)
	}
	fmt.Println("wallet OK")
	return nil
}

func testTelegram(c *cli.Context) error {
	s, log, err := loadRuntime()
	if err != nil {
		return err
	}
	if !s.TelegramEnabled() {
		return cli.Exit("telegram is not configured: set TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID and enable notifications", 1)
	}
	tg, err := notify.NewTelegram(config.Fixed(s), nil, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := tg.SendText("✅ Sniper test message, alerts are working"); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("sent a test message as @%s to chat %d\n", tg.Username(), s.Telegram.ChatID)
	return nil
}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

func endpointProbes(s *config.Settings, client *http.Client) []probe {
	var probes []probe
	if s.APIs.DexScreenerSearchURL != "" {
		probes = append(probes, probe{"dexscreener", func(ctx context.Context) error {
			_, err := scanner.NewDexScreener(config.Fixed(s), client).Query(ctx)
			return err
		}})
	}

	headers := map[string]string{}
	if s.APIs.JupiterAPIKey != "" {
		headers["x-api-key"] = s.APIs.JupiterAPIKey
	}
	q := url.Values{}
	q.Set("inputMint", models.WrappedSOLMint)
	q.Set("outputMint", usdcMint)
	q.Set("amount", "1000000")
	q.Set("slippageBps", "50")
	for _, ep := range s.APIs.QuoteEndpoints {
		target := ep
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		probes = append(probes, probe{"quote " + target, func(ctx context.Context) error {
			return helper.GetJSON(ctx, client, target+sep+q.Encode(), headers, nil)
		}})
	}

	if s.APIs.RugCheckURL != "" {
		rc := scorer.NewRugCheck(s.APIs.RugCheckURL, client)
		probes = append(probes, probe{"rugcheck", func(ctx context.Context) error {
			_, err := rc.Facts(ctx, usdcMint)
			return err
		}})
	}
	if s.APIs.CoinGeckoURL != "" {
		probes = append(probes, probe{"coingecko", func(ctx context.Context) error {
			return helper.GetJSON(ctx, client, s.APIs.CoinGeckoURL, nil, nil)
		}})
	}

	urls := append([]string{s.Wallet.RPCURL}, s.Wallet.BackupRPCURLs...)
	for _, u := range urls {
		rpc := solana.NewClient(u, solana.WithHTTPClient(client))
		probes = append(probes, probe{"rpc " + u, rpc.GetHealth})
	}
	return probes
}

func testEndpoints(c *cli.Context) error {
	s, _, err := loadRuntime()
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: s.APIs.RequestTimeout}
	failed := 0
	for _, p := range endpointProbes(s, client) {
		ctx, cancel := context.WithTimeout(c.Context, s.APIs.RequestTimeout)
		started := time.Now()
		err := p.run(ctx)
		took := time.Since(started)
		cancel()

		status := "ok"
		detail := ""
		if err != nil {
			status = "FAIL"
			detail = helper.Truncate(err.Error(), 120)
			failed++
		}
		fmt.Printf("%-48s %-5s %8s %s\n", helper.Truncate(p.name, 48), status, took.Round(time.Millisecond), detail)
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d endpoint(s) failed", failed), 1)
	}
	return nil
}

func testSpeed(c *cli.Context) error {
	s, _, err := loadRuntime()
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count <= 0 {
		count = 1
	}
	source := scanner.NewDexScreener(config.Fixed(s), &http.Client{Timeout: s.APIs.DiscoveryTimeout})

	var (
		total, best, worst time.Duration
		found, errs        int
	)
	for i := 0; i < count; i++ {
		ctx, cancel := context.WithTimeout(c.Context, s.APIs.DiscoveryTimeout)
		started := time.Now()
		list, err := source.Query(ctx)
		took := time.Since(started)
		cancel()
		if err != nil {
			errs++
			fmt.Printf("poll %d: %v\n", i+1, err)
			continue
		}
		found += len(list)
		total += took
		if best == 0 || took < best {
			best = took
		}
		if took > worst {
			worst = took
		}
	}
	ok := count - errs
	if ok == 0 {
		return cli.Exit("every poll failed", 1)
	}
	fmt.Printf("polls %d (failed %d)  min %s  avg %s  max %s  candidates %d\n",
		count, errs, best.Round(time.Millisecond), (total / time.Duration(ok)).Round(time.Millisecond),
		worst.Round(time.Millisecond), found)
	return nil
}
