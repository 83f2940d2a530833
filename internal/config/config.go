package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks a missing or invalid mandatory setting. It is fatal at startup only.
var ErrConfiguration = errors.New("configuration error")

var (
	DefaultQuoteEndpoints = []string{
		"https://lite-api.jup.ag/v6/quote",
		"https://lite-api.jup.ag/v4/quote",
		"https://lite-api.jup.ag/quote",
	}
	DefaultBackupRPCURLs = []string{
		"https://solana-rpc.publicnode.com",
		"https://rpc.ankr.com/solana",
	}
)

// Settings is an immutable snapshot. A reload produces a new value, it never mutates one in place.
type Settings struct {
	Wallet     WalletSettings     `mapstructure:"wallet" json:"wallet" yaml:"wallet"`
	Trading    TradingSettings    `mapstructure:"trading" json:"trading" yaml:"trading"`
	Security   SecuritySettings   `mapstructure:"security" json:"security" yaml:"security"`
	Telegram   TelegramSettings   `mapstructure:"telegram" json:"telegram" yaml:"telegram"`
	APIs       APISettings        `mapstructure:"apis" json:"apis" yaml:"apis"`
	Monitoring MonitoringSettings `mapstructure:"monitoring" json:"monitoring" yaml:"monitoring"`
	Runtime    RuntimeSettings    `mapstructure:"runtime" json:"runtime" yaml:"runtime"`
}

type WalletSettings struct {
	Address       string   `mapstructure:"address" json:"address" yaml:"address"`                         // .env: WALLET_ADDRESS
	RPCURL        string   `mapstructure:"rpc_url" json:"rpc_url" yaml:"rpc_url"`                         // .env: RPC_URL
	BackupRPCURLs []string `mapstructure:"backup_rpc_urls" json:"backup_rpc_urls" yaml:"backup_rpc_urls"` // .env: BACKUP_RPC_URLS (comma separated)
	MinBalanceSOL float64  `mapstructure:"min_balance_sol" json:"min_balance_sol" yaml:"min_balance_sol"` // .env: MIN_WALLET_BALANCE_SOL
}

// TradingSettings holds fractions (0.5 = 50%); the .env keys take percents like the rest of the bot's docs.
type TradingSettings struct {
	PositionSizeSOL      float64       `mapstructure:"position_size_sol" json:"position_size_sol" yaml:"position_size_sol"`
	MaxPositions         int           `mapstructure:"max_positions" json:"max_positions" yaml:"max_positions"`
	MinLiquiditySOL      float64       `mapstructure:"min_liquidity_sol" json:"min_liquidity_sol" yaml:"min_liquidity_sol"`
	MaxSlippage          float64       `mapstructure:"max_slippage" json:"max_slippage" yaml:"max_slippage"`
	StopLoss             float64       `mapstructure:"stop_loss" json:"stop_loss" yaml:"stop_loss"`
	TrailingStopEnabled  bool          `mapstructure:"trailing_stop_enabled" json:"trailing_stop_enabled" yaml:"trailing_stop_enabled"`
	TrailingStop         float64       `mapstructure:"trailing_stop" json:"trailing_stop" yaml:"trailing_stop"`
	TakeProfit           float64       `mapstructure:"take_profit" json:"take_profit" yaml:"take_profit"`
	SellFraction         float64       `mapstructure:"sell_fraction" json:"sell_fraction" yaml:"sell_fraction"`
	MaxHold              time.Duration `mapstructure:"max_hold" json:"max_hold" yaml:"max_hold"`
	MaxExitRetries       int           `mapstructure:"max_exit_retries" json:"max_exit_retries" yaml:"max_exit_retries"`
	SimulationMode       bool          `mapstructure:"simulation_mode" json:"simulation_mode" yaml:"simulation_mode"`
	FallbackToSimulation bool          `mapstructure:"fallback_to_simulation" json:"fallback_to_simulation" yaml:"fallback_to_simulation"`
}

type SecuritySettings struct {
	MinLPLocked     float64 `mapstructure:"min_lp_locked" json:"min_lp_locked" yaml:"min_lp_locked"`
	MaxTax          float64 `mapstructure:"max_tax" json:"max_tax" yaml:"max_tax"`
	MaxTopHolders   float64 `mapstructure:"max_top_holders" json:"max_top_holders" yaml:"max_top_holders"`
	SellProbeAmount uint64  `mapstructure:"sell_probe_amount" json:"sell_probe_amount" yaml:"sell_probe_amount"` // raw token units
	CheckMintOnChain bool   `mapstructure:"check_mint_on_chain" json:"check_mint_on_chain" yaml:"check_mint_on_chain"`
}

type TelegramSettings struct {
	BotToken             string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID               int64  `mapstructure:"chat_id" json:"chat_id" yaml:"chat_id"`
	NotificationsEnabled bool   `mapstructure:"notifications_enabled" json:"notifications_enabled" yaml:"notifications_enabled"`
	SendBuyAlerts        bool   `mapstructure:"send_buy_alerts" json:"send_buy_alerts" yaml:"send_buy_alerts"`
	SendSellAlerts       bool   `mapstructure:"send_sell_alerts" json:"send_sell_alerts" yaml:"send_sell_alerts"`
	SendErrorAlerts      bool   `mapstructure:"send_error_alerts" json:"send_error_alerts" yaml:"send_error_alerts"`
	SendProfitSummaries  bool   `mapstructure:"send_profit_summaries" json:"send_profit_summaries" yaml:"send_profit_summaries"`
}

type APISettings struct {
	DexScreenerSearchURL string        `mapstructure:"dexscreener_search_url" json:"dexscreener_search_url" yaml:"dexscreener_search_url"`
	DexScreenerTokensURL string        `mapstructure:"dexscreener_tokens_url" json:"dexscreener_tokens_url" yaml:"dexscreener_tokens_url"`
	PumpPortalEnabled    bool          `mapstructure:"pumpportal_enabled" json:"pumpportal_enabled" yaml:"pumpportal_enabled"`
	PumpPortalURL        string        `mapstructure:"pumpportal_url" json:"pumpportal_url" yaml:"pumpportal_url"`
	QuoteEndpoints       []string      `mapstructure:"quote_endpoints" json:"quote_endpoints" yaml:"quote_endpoints"`
	SellEndpoints        []string      `mapstructure:"sell_endpoints" json:"sell_endpoints" yaml:"sell_endpoints"`
	JupiterAPIKey        string        `mapstructure:"jupiter_api_key" json:"-" yaml:"-"`
	RugCheckURL          string        `mapstructure:"rugcheck_url" json:"rugcheck_url" yaml:"rugcheck_url"`
	CoinGeckoURL         string        `mapstructure:"coingecko_url" json:"coingecko_url" yaml:"coingecko_url"`
	DiscoveryTimeout     time.Duration `mapstructure:"discovery_timeout" json:"discovery_timeout" yaml:"discovery_timeout"`
	QuoteTimeout         time.Duration `mapstructure:"quote_timeout" json:"quote_timeout" yaml:"quote_timeout"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
}

type MonitoringSettings struct {
	ScanInterval        time.Duration `mapstructure:"scan_interval" json:"scan_interval" yaml:"scan_interval"`
	FastScanInterval    time.Duration `mapstructure:"fast_scan_interval" json:"fast_scan_interval" yaml:"fast_scan_interval"`
	MonitorInterval     time.Duration `mapstructure:"monitor_interval" json:"monitor_interval" yaml:"monitor_interval"`
	SummaryInterval     time.Duration `mapstructure:"summary_interval" json:"summary_interval" yaml:"summary_interval"`
	MaxInstrumentAge    time.Duration `mapstructure:"max_instrument_age" json:"max_instrument_age" yaml:"max_instrument_age"`
	MaxNewTokensPerScan int           `mapstructure:"max_new_tokens_per_scan" json:"max_new_tokens_per_scan" yaml:"max_new_tokens_per_scan"`
	PriceCacheTTL       time.Duration `mapstructure:"price_cache_ttl" json:"price_cache_ttl" yaml:"price_cache_ttl"`
	EnableSampleTokens  bool          `mapstructure:"enable_sample_tokens" json:"enable_sample_tokens" yaml:"enable_sample_tokens"`
	SampleProbability   float64       `mapstructure:"sample_probability" json:"sample_probability" yaml:"sample_probability"`
	SampleSeed          int64         `mapstructure:"sample_seed" json:"sample_seed" yaml:"sample_seed"`
}

type RuntimeSettings struct {
	LogLevel    string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" json:"log_format" yaml:"log_format"` // json | console
	LogFilePath string `mapstructure:"log_file_path" json:"log_file_path" yaml:"log_file_path"`
	HealthAddr  string `mapstructure:"health_addr" json:"health_addr" yaml:"health_addr"`
	DatabaseDSN string `mapstructure:"database_dsn" json:"-" yaml:"-"`
	LockFile    string `mapstructure:"lock_file" json:"lock_file" yaml:"lock_file"`
	JaegerHost  string `mapstructure:"jaeger_host" json:"jaeger_host" yaml:"jaeger_host"`
	JaegerPort  int    `mapstructure:"jaeger_port" json:"jaeger_port" yaml:"jaeger_port"`
	ConfigFile  string `mapstructure:"-" json:"-" yaml:"-"`
}

// Defaults mirrors the values the bot ships with.
func Defaults() Settings {
	return Settings{
		Wallet: WalletSettings{
			RPCURL:        "https://api.mainnet-beta.solana.com",
			BackupRPCURLs: append([]string(nil), DefaultBackupRPCURLs...),
			MinBalanceSOL: 0.1,
		},
		Trading: TradingSettings{
			PositionSizeSOL:      0.1,
			MaxPositions:         5,
			MinLiquiditySOL:      10,
			MaxSlippage:          0.15,
			StopLoss:             0.50,
			TrailingStopEnabled:  true,
			TrailingStop:         0.30,
			TakeProfit:           0.50,
			SellFraction:         0.75,
			MaxHold:              24 * time.Hour,
			MaxExitRetries:       3,
			SimulationMode:       true,
			FallbackToSimulation: false,
		},
		Security: SecuritySettings{
			MinLPLocked:      0.70,
			MaxTax:           0.03,
			MaxTopHolders:    0.30,
			SellProbeAmount:  1_000_000,
			CheckMintOnChain: true,
		},
		Telegram: TelegramSettings{
			NotificationsEnabled: true,
			SendBuyAlerts:        true,
			SendSellAlerts:       true,
			SendErrorAlerts:      true,
			SendProfitSummaries:  true,
		},
		APIs: APISettings{
			DexScreenerSearchURL: "https://api.dexscreener.com/latest/dex/search/?q=SOL&limit=20",
			DexScreenerTokensURL: "https://api.dexscreener.com/latest/dex/tokens/",
			PumpPortalURL:        "wss://pumpportal.fun/api/data",
			QuoteEndpoints:       append([]string(nil), DefaultQuoteEndpoints...),
			SellEndpoints:        append([]string(nil), DefaultQuoteEndpoints...),
			RugCheckURL:          "https://api.rugcheck.xyz",
			CoinGeckoURL:         "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
			DiscoveryTimeout:     5 * time.Second,
			QuoteTimeout:         5 * time.Second,
			RequestTimeout:       10 * time.Second,
		},
		Monitoring: MonitoringSettings{
			ScanInterval:        time.Second,
			FastScanInterval:    500 * time.Millisecond,
			MonitorInterval:     30 * time.Second,
			SummaryInterval:     15 * time.Minute,
			MaxInstrumentAge:    10 * time.Minute,
			MaxNewTokensPerScan: 10,
			PriceCacheTTL:       30 * time.Second,
			SampleProbability:   0.1,
			SampleSeed:          1,
		},
		Runtime: RuntimeSettings{
			LogLevel:   "info",
			LogFormat:  "console",
			HealthAddr: ":8080",
			LockFile:   "./sniper.lock",
			JaegerPort: 6831,
		},
	}
}

// Load reads .env, the optional CONFIG_FILE and the environment, in that order of precedence
// (environment wins), then validates.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	base := Defaults()
	path := os.Getenv("CONFIG_FILE")
	if path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		base = *fromFile
	}

	cfg := applyEnv(base)
	cfg.Runtime.ConfigFile = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate lists every problem at once so a broken .env is fixed in one pass.
func (s *Settings) Validate() error {
	var problems []string
	bad := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	t := s.Trading
	if t.PositionSizeSOL <= 0 {
		bad("POSITION_SIZE_SOL must be > 0")
	}
	if t.MaxPositions < 1 {
		bad("MAX_ACTIVE_POSITIONS must be >= 1")
	}
	checkFraction := func(name string, v float64) {
		if v <= 0 || v > 1 {
			bad("%s must be in (0, 100] percent, got %.2f%%", name, v*100)
		}
	}
	checkFraction("MAX_SLIPPAGE_PERCENT", t.MaxSlippage)
	checkFraction("STOP_LOSS_PERCENT", t.StopLoss)
	checkFraction("SELL_PERCENTAGE", t.SellFraction)
	if t.TrailingStopEnabled {
		checkFraction("TRAILING_STOP_PERCENT", t.TrailingStop)
	}
	if t.TakeProfit <= 0 {
		bad("PROFIT_THRESHOLD_PERCENT must be > 0")
	}
	if t.MaxHold <= 0 {
		bad("MAX_HOLD_TIME must be > 0")
	}
	if t.MaxExitRetries < 0 {
		bad("MAX_EXIT_RETRIES must be >= 0")
	}

	sec := s.Security
	if sec.MinLPLocked < 0 || sec.MinLPLocked > 1 {
		bad("MIN_LP_BURNED_OR_LOCKED_PERCENT must be within [0, 100]")
	}
	if sec.MaxTax < 0 || sec.MaxTax > 1 {
		bad("MAX_TAX_PERCENT must be within [0, 100]")
	}
	if sec.MaxTopHolders < 0 || sec.MaxTopHolders > 1 {
		bad("MAX_TOP10_HOLDERS_PERCENT must be within [0, 100]")
	}

	if s.Telegram.NotificationsEnabled && s.Telegram.BotToken != "" && s.Telegram.ChatID == 0 {
		bad("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	a := s.APIs
	if a.DexScreenerSearchURL == "" && !a.PumpPortalEnabled {
		bad("at least one discovery source (DEXSCREENER_API_URL or ENABLE_PUMPPORTAL) must be configured")
	}
	if !t.SimulationMode {
		if len(a.QuoteEndpoints) == 0 {
			bad("JUPITER_QUOTE_ENDPOINTS is required when SIMULATION_MODE=false")
		}
		if len(a.SellEndpoints) == 0 {
			bad("JUPITER_SELL_ENDPOINTS is required when SIMULATION_MODE=false")
		}
	}
	if a.DiscoveryTimeout <= 0 || a.QuoteTimeout <= 0 || a.RequestTimeout <= 0 {
		bad("DISCOVERY_TIMEOUT, QUOTE_TIMEOUT and REQUEST_TIMEOUT must be > 0")
	}

	m := s.Monitoring
	if m.ScanInterval <= 0 || m.FastScanInterval <= 0 || m.MonitorInterval <= 0 {
		bad("SCAN_INTERVAL, FAST_SCAN_INTERVAL and MONITOR_INTERVAL must be > 0")
	}
	if m.MaxInstrumentAge <= 0 {
		bad("MAX_TOKEN_AGE must be > 0")
	}
	if m.SummaryInterval <= 0 {
		bad("SUMMARY_INTERVAL must be > 0")
	}
	if m.SampleProbability < 0 || m.SampleProbability > 1 {
		bad("SAMPLE_TOKEN_PROBABILITY must be within [0, 1]")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
}

// Clone returns a deep copy so callers can derive a new snapshot.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Wallet.BackupRPCURLs = append([]string(nil), s.Wallet.BackupRPCURLs...)
	c.APIs.QuoteEndpoints = append([]string(nil), s.APIs.QuoteEndpoints...)
	c.APIs.SellEndpoints = append([]string(nil), s.APIs.SellEndpoints...)
	return &c
}

// TelegramEnabled reports whether alerts can actually be delivered.
func (s *Settings) TelegramEnabled() bool {
	return s.Telegram.NotificationsEnabled && s.Telegram.BotToken != "" && s.Telegram.ChatID != 0
}

// Summary renders the settings for `config show` and the startup log.
func (s *Settings) Summary() string {
	var b strings.Builder
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	t := s.Trading
	fmt.Fprintf(&b, "Trading\n")
	fmt.Fprintf(&b, "  position size      %.4f SOL (max %d open)\n", t.PositionSizeSOL, t.MaxPositions)
	fmt.Fprintf(&b, "  min liquidity      %.2f SOL\n", t.MinLiquiditySOL)
	fmt.Fprintf(&b, "  max slippage       %.1f%%\n", t.MaxSlippage*100)
	fmt.Fprintf(&b, "  stop loss          %.1f%%\n", t.StopLoss*100)
	fmt.Fprintf(&b, "  trailing stop      %.1f%% (%s)\n", t.TrailingStop*100, onOff(t.TrailingStopEnabled))
	fmt.Fprintf(&b, "  take profit        %.1f%%, sell %.0f%%\n", t.TakeProfit*100, t.SellFraction*100)
	fmt.Fprintf(&b, "  max hold           %s\n", t.MaxHold)
	fmt.Fprintf(&b, "  simulation         %s (fallback %s)\n", onOff(t.SimulationMode), onOff(t.FallbackToSimulation))
	sec := s.Security
	fmt.Fprintf(&b, "Security\n")
	fmt.Fprintf(&b, "  LP burned/locked   > %.0f%%\n", sec.MinLPLocked*100)
	fmt.Fprintf(&b, "  max tax            %.1f%%\n", sec.MaxTax*100)
	fmt.Fprintf(&b, "  max top holders    %.0f%%\n", sec.MaxTopHolders*100)
	fmt.Fprintf(&b, "APIs\n")
	fmt.Fprintf(&b, "  discovery          %s (pumpportal %s)\n", s.APIs.DexScreenerSearchURL, onOff(s.APIs.PumpPortalEnabled))
	fmt.Fprintf(&b, "  quote endpoints    %s\n", strings.Join(s.APIs.QuoteEndpoints, ", "))
	fmt.Fprintf(&b, "  sell endpoints     %s\n", strings.Join(s.APIs.SellEndpoints, ", "))
	fmt.Fprintf(&b, "  rugcheck           %s\n", s.APIs.RugCheckURL)
	m := s.Monitoring
	fmt.Fprintf(&b, "Monitoring\n")
	fmt.Fprintf(&b, "  scan               %s / %s after a hit\n", m.ScanInterval, m.FastScanInterval)
	fmt.Fprintf(&b, "  monitor            %s\n", m.MonitorInterval)
	fmt.Fprintf(&b, "  max token age      %s\n", m.MaxInstrumentAge)
	fmt.Fprintf(&b, "  sample tokens      %s\n", onOff(m.EnableSampleTokens))
	fmt.Fprintf(&b, "Telegram              %s\n", onOff(s.TelegramEnabled()))
	return b.String()
}
