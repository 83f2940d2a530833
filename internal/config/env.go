package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays environment variables on top of base. Unset or unparsable keys keep the base value.
func applyEnv(base Settings) Settings {
	s := *base.Clone()

	s.Wallet.Address = getenvDefault("WALLET_ADDRESS", s.Wallet.Address)
	s.Wallet.RPCURL = getenvDefault("RPC_URL", s.Wallet.RPCURL)
	s.Wallet.BackupRPCURLs = listFromEnv("BACKUP_RPC_URLS", s.Wallet.BackupRPCURLs)
	s.Wallet.MinBalanceSOL = floatFromEnv("MIN_WALLET_BALANCE_SOL", s.Wallet.MinBalanceSOL)

	s.Trading.PositionSizeSOL = floatFromEnv("POSITION_SIZE_SOL", s.Trading.PositionSizeSOL)
	s.Trading.MaxPositions = intFromEnv("MAX_ACTIVE_POSITIONS", s.Trading.MaxPositions)
	s.Trading.MinLiquiditySOL = floatFromEnv("MIN_LIQUIDITY_SOL", s.Trading.MinLiquiditySOL)
	s.Trading.MaxSlippage = percentFromEnv("MAX_SLIPPAGE_PERCENT", s.Trading.MaxSlippage)
	s.Trading.StopLoss = percentFromEnv("STOP_LOSS_PERCENT", s.Trading.StopLoss)
	s.Trading.TrailingStopEnabled = boolFromEnv("TRAILING_STOP_ENABLED", s.Trading.TrailingStopEnabled)
	s.Trading.TrailingStop = percentFromEnv("TRAILING_STOP_PERCENT", s.Trading.TrailingStop)
	s.Trading.TakeProfit = percentFromEnv("PROFIT_THRESHOLD_PERCENT", s.Trading.TakeProfit)
	s.Trading.SellFraction = percentFromEnv("SELL_PERCENTAGE", s.Trading.SellFraction)
	if h := floatFromEnv("MAX_HOLD_TIME_HOURS", 0); h > 0 {
		s.Trading.MaxHold = time.Duration(h * float64(time.Hour))
	}
	s.Trading.MaxHold = durationFromEnv("MAX_HOLD_TIME", s.Trading.MaxHold)
	s.Trading.MaxExitRetries = intFromEnv("MAX_EXIT_RETRIES", s.Trading.MaxExitRetries)
	s.Trading.SimulationMode = boolFromEnv("SIMULATION_MODE", s.Trading.SimulationMode)
	s.Trading.FallbackToSimulation = boolFromEnv("FALLBACK_TO_SIMULATION", s.Trading.FallbackToSimulation)

	s.Security.MinLPLocked = percentFromEnv("MIN_LP_BURNED_OR_LOCKED_PERCENT", s.Security.MinLPLocked)
	s.Security.MaxTax = percentFromEnv("MAX_TAX_PERCENT", s.Security.MaxTax)
	s.Security.MaxTopHolders = percentFromEnv("MAX_TOP10_HOLDERS_PERCENT", s.Security.MaxTopHolders)
	s.Security.SellProbeAmount = uint64(intFromEnv("SELL_PROBE_AMOUNT", int(s.Security.SellProbeAmount)))
	s.Security.CheckMintOnChain = boolFromEnv("CHECK_MINT_ON_CHAIN", s.Security.CheckMintOnChain)

	s.Telegram.BotToken = getenvDefault("TELEGRAM_BOT_TOKEN", s.Telegram.BotToken)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.Telegram.ChatID = id
		}
	}
	s.Telegram.NotificationsEnabled = boolFromEnv("TELEGRAM_NOTIFICATIONS_ENABLED", s.Telegram.NotificationsEnabled)
	s.Telegram.SendBuyAlerts = boolFromEnv("TELEGRAM_SEND_BUY_ALERTS", s.Telegram.SendBuyAlerts)
	s.Telegram.SendSellAlerts = boolFromEnv("TELEGRAM_SEND_SELL_ALERTS", s.Telegram.SendSellAlerts)
	s.Telegram.SendErrorAlerts = boolFromEnv("TELEGRAM_SEND_ERROR_ALERTS", s.Telegram.SendErrorAlerts)
	s.Telegram.SendProfitSummaries = boolFromEnv("TELEGRAM_SEND_PROFIT_SUMMARIES", s.Telegram.SendProfitSummaries)

	s.APIs.DexScreenerSearchURL = getenvDefault("DEXSCREENER_API_URL", s.APIs.DexScreenerSearchURL)
	s.APIs.DexScreenerTokensURL = getenvDefault("DEXSCREENER_TOKENS_URL", s.APIs.DexScreenerTokensURL)
	s.APIs.PumpPortalEnabled = boolFromEnv("ENABLE_PUMPPORTAL", s.APIs.PumpPortalEnabled)
	s.APIs.PumpPortalURL = getenvDefault("PUMPPORTAL_WS_URL", s.APIs.PumpPortalURL)
	s.APIs.QuoteEndpoints = listFromEnv("JUPITER_QUOTE_ENDPOINTS", s.APIs.QuoteEndpoints)
	s.APIs.SellEndpoints = listFromEnv("JUPITER_SELL_ENDPOINTS", s.APIs.SellEndpoints)
	s.APIs.JupiterAPIKey = getenvDefault("JUPITER_API_KEY", s.APIs.JupiterAPIKey)
	s.APIs.RugCheckURL = getenvDefault("RUGCHECK_API_URL", s.APIs.RugCheckURL)
	s.APIs.CoinGeckoURL = getenvDefault("COINGECKO_API_URL", s.APIs.CoinGeckoURL)
	s.APIs.DiscoveryTimeout = durationFromEnv("DISCOVERY_TIMEOUT", s.APIs.DiscoveryTimeout)
	s.APIs.QuoteTimeout = durationFromEnv("QUOTE_TIMEOUT", s.APIs.QuoteTimeout)
	s.APIs.RequestTimeout = durationFromEnv("REQUEST_TIMEOUT", s.APIs.RequestTimeout)

	s.Monitoring.ScanInterval = durationFromEnv("SCAN_INTERVAL", s.Monitoring.ScanInterval)
	s.Monitoring.FastScanInterval = durationFromEnv("FAST_SCAN_INTERVAL", s.Monitoring.FastScanInterval)
	s.Monitoring.MonitorInterval = durationFromEnv("MONITOR_INTERVAL", s.Monitoring.MonitorInterval)
	s.Monitoring.SummaryInterval = durationFromEnv("SUMMARY_INTERVAL", s.Monitoring.SummaryInterval)
	s.Monitoring.MaxInstrumentAge = durationFromEnv("MAX_TOKEN_AGE", s.Monitoring.MaxInstrumentAge)
	s.Monitoring.MaxNewTokensPerScan = intFromEnv("MAX_NEW_TOKENS_PER_SCAN", s.Monitoring.MaxNewTokensPerScan)
	s.Monitoring.PriceCacheTTL = durationFromEnv("PRICE_CACHE_TTL", s.Monitoring.PriceCacheTTL)
	s.Monitoring.EnableSampleTokens = boolFromEnv("ENABLE_SAMPLE_TOKENS", s.Monitoring.EnableSampleTokens)
	s.Monitoring.SampleProbability = floatFromEnv("SAMPLE_TOKEN_PROBABILITY", s.Monitoring.SampleProbability)
	s.Monitoring.SampleSeed = int64(intFromEnv("SAMPLE_TOKEN_SEED", int(s.Monitoring.SampleSeed)))

	s.Runtime.LogLevel = getenvDefault("LOG_LEVEL", s.Runtime.LogLevel)
	s.Runtime.LogFormat = getenvDefault("LOG_FORMAT", s.Runtime.LogFormat)
	s.Runtime.LogFilePath = getenvDefault("LOG_FILE_PATH", s.Runtime.LogFilePath)
	s.Runtime.HealthAddr = getenvDefault("HEALTH_ADDR", s.Runtime.HealthAddr)
	s.Runtime.DatabaseDSN = getenvDefault("DATABASE_DSN", s.Runtime.DatabaseDSN)
	s.Runtime.LockFile = getenvDefault("LOCK_FILE", s.Runtime.LockFile)
	s.Runtime.JaegerHost = getenvDefault("JAEGER_AGENT_HOST", s.Runtime.JaegerHost)
	s.Runtime.JaegerPort = intFromEnv("JAEGER_AGENT_PORT", s.Runtime.JaegerPort)

	return s
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// percentFromEnv reads "50" as 0.5.
func percentFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64); err == nil {
			return f / 100
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// listFromEnv splits a comma separated list, keeping order and skipping blanks.
func listFromEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
