package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/shadiayoub/okx-bot/internal/fusion"
	"github.com/shadiayoub/okx-bot/internal/indicator"
	"github.com/shadiayoub/okx-bot/internal/model"
	"github.com/shadiayoub/okx-bot/internal/okx"
)

// Config holds all application configuration except credentials, which
// come from the environment (see Secrets).
type Config struct {
	Exchange struct {
		Bar      string `yaml:"bar"`      // candle interval, e.g. 1H
		Lookback int    `yaml:"lookback"` // bars per snapshot
	} `yaml:"exchange"`
	Session    model.SessionSettings `yaml:"session"`
	Symbols    []model.SymbolConfig  `yaml:"symbols"`
	Indicators indicator.Params      `yaml:"indicators"`
	Weights    fusion.Weights        `yaml:"weights"`
	Signal     struct {
		Threshold       float64 `yaml:"threshold"`
		IntervalSeconds int     `yaml:"interval_seconds"`
	} `yaml:"signal"`
	Risk struct {
		MinBalance  float64 `yaml:"min_balance"`  // global available-balance floor
		MaxNotional float64 `yaml:"max_notional"` // global per-order cap, 0 = uncapped
	} `yaml:"risk"`
	Models struct {
		Dir         string `yaml:"dir"`
		RetrainCron string `yaml:"retrain_cron"`
		TrainerURL  string `yaml:"trainer_url"`
	} `yaml:"models"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Secrets are the credential blocks loaded from the environment, after
// godotenv has folded an optional .env file into it.
type Secrets struct {
	OKX      okx.Credentials
	Telegram struct {
		BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	}
}

// DefaultSymbols covers the five instruments the models ship for.
func DefaultSymbols() []model.SymbolConfig {
	mk := func(base, name string) model.SymbolConfig {
		return model.SymbolConfig{
			OKXSymbol:      base + "-USDT-SWAP",
			ModelSymbol:    base + "USDT",
			DisplayName:    name,
			Enabled:        true,
			RiskMultiplier: 1.0,
		}
	}
	return []model.SymbolConfig{
		mk("BTC", "Bitcoin"),
		mk("ETH", "Ethereum"),
		mk("BNB", "BNB"),
		mk("ADA", "Cardano"),
		mk("SOL", "Solana"),
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("TRAINER_URL"); v != "" {
		cfg.Models.TrainerURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TRADING_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Signal.IntervalSeconds = n
		}
	}

	// Defaults
	if cfg.Exchange.Bar == "" {
		cfg.Exchange.Bar = "1H"
	}
	if cfg.Exchange.Lookback == 0 {
		cfg.Exchange.Lookback = 100
	}
	if cfg.Session == (model.SessionSettings{}) {
		cfg.Session = model.SessionSettings{
			AutoTrading:       true,
			Leverage:          10,
			RiskPerTrade:      0.05,
			MinSignalStrength: 0.3,
			StopLossPct:       0.02,
			TakeProfitPct:     0.04,
		}
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultSymbols()
	}
	if cfg.Indicators == (indicator.Params{}) {
		cfg.Indicators = indicator.DefaultParams()
	}
	if cfg.Weights == (fusion.Weights{}) {
		cfg.Weights = fusion.DefaultWeights()
	}
	if cfg.Signal.Threshold == 0 {
		cfg.Signal.Threshold = 0.3
	}
	if cfg.Signal.IntervalSeconds == 0 {
		cfg.Signal.IntervalSeconds = 60
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Models.RetrainCron == "" {
		cfg.Models.RetrainCron = "0 0 2 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/okx_bot.db"
	}

	return cfg, nil
}

// LoadSecrets folds an optional .env file into the environment and
// parses the credential blocks.
func LoadSecrets() (*Secrets, error) {
	_ = godotenv.Load()

	s := &Secrets{}
	if err := envconfig.Process("", &s.OKX); err != nil {
		return nil, fmt.Errorf("okx credentials: %w", err)
	}
	if err := envconfig.Process("", &s.Telegram); err != nil {
		return nil, fmt.Errorf("telegram credentials: %w", err)
	}
	return s, nil
}

// Validate rejects configurations the engine must not start with. A
// weight vector that does not sum to 1 is fatal here, never at tick
// time.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if c.Exchange.Lookback < c.Indicators.MinBars() {
		return fmt.Errorf("exchange.lookback %d is below the %d bars the indicator windows need",
			c.Exchange.Lookback, c.Indicators.MinBars())
	}
	if c.Session.Leverage <= 0 {
		return fmt.Errorf("session.leverage must be positive, got %v", c.Session.Leverage)
	}
	if c.Session.RiskPerTrade <= 0 || c.Session.RiskPerTrade > 1 {
		return fmt.Errorf("session.risk_per_trade must be in (0, 1], got %v", c.Session.RiskPerTrade)
	}
	if c.Session.MinSignalStrength < 0 || c.Session.MinSignalStrength > 1 {
		return fmt.Errorf("session.min_signal_strength must be in [0, 1], got %v", c.Session.MinSignalStrength)
	}
	if c.Session.StopLossPct <= 0 || c.Session.TakeProfitPct <= 0 {
		return fmt.Errorf("session stop_loss_pct/take_profit_pct must be positive, got %v/%v",
			c.Session.StopLossPct, c.Session.TakeProfitPct)
	}
	if c.Signal.Threshold <= 0 || c.Signal.Threshold > 1 {
		return fmt.Errorf("signal.threshold must be in (0, 1], got %v", c.Signal.Threshold)
	}
	if c.Signal.IntervalSeconds <= 0 {
		return fmt.Errorf("signal.interval_seconds must be positive, got %d", c.Signal.IntervalSeconds)
	}
	if c.Risk.MinBalance < 0 || c.Risk.MaxNotional < 0 {
		return fmt.Errorf("risk limits must not be negative, got %v/%v", c.Risk.MinBalance, c.Risk.MaxNotional)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for i, sym := range c.Symbols {
		if sym.OKXSymbol == "" || sym.ModelSymbol == "" {
			return fmt.Errorf("symbols[%d]: okx_symbol and model_symbol are required", i)
		}
		if seen[sym.OKXSymbol] {
			return fmt.Errorf("symbols[%d]: duplicate okx_symbol %s", i, sym.OKXSymbol)
		}
		seen[sym.OKXSymbol] = true
		if sym.RiskMultiplier <= 0 {
			return fmt.Errorf("symbols[%d]: risk_multiplier must be positive, got %v", i, sym.RiskMultiplier)
		}
		if sym.MinBalance < 0 || sym.MaxPositionSize < 0 || sym.LotStep < 0 {
			return fmt.Errorf("symbols[%d]: negative limits are not allowed", i)
		}
	}
	return nil
}
