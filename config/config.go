// Package config loads the hold configuration from config.json, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/etnz/hold"
	"github.com/etnz/hold/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding configuration keys,
// HOLD_MIN_HOLD_DAYS overrides min_hold_days, HOLD_MARKET_SOURCE overrides market.source.
const EnvPrefix = "HOLD"

// Config holds all application configuration.
type Config struct {
	MinHoldDays         int      `mapstructure:"min_hold_days"`
	TransactionFee      float64  `mapstructure:"transaction_fee"`
	Tolerance           float64  `mapstructure:"tolerance"`
	Currency            string   `mapstructure:"currency"`
	Watchlist           []string `mapstructure:"watchlist"`
	MonthlyBudget       float64  `mapstructure:"monthly_budget"`
	MaxPositions        int      `mapstructure:"max_positions"`
	StopLossPercent     float64  `mapstructure:"stop_loss_percent"`
	ProfitTargetPercent float64  `mapstructure:"profit_target_percent"`
	StateFile           string   `mapstructure:"state_file"`

	Market  MarketConfig   `mapstructure:"market"`
	Advisor AdvisorConfig  `mapstructure:"advisor"`
	Log     logging.Config `mapstructure:"log"`
}

// MarketConfig selects and configures the price source.
type MarketConfig struct {
	Source      string `mapstructure:"source"` // file, http or alpaca
	File        string `mapstructure:"file"`
	URLTemplate string `mapstructure:"url_template"` // {ticker} is replaced
	PricePath   string `mapstructure:"price_path"`   // JSONPath to the price
	Cache       bool   `mapstructure:"cache"`        // daily disk cache for http
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	BaseURL     string `mapstructure:"base_url"`
}

// AdvisorConfig configures the advisory service.
type AdvisorConfig struct {
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"`
	StrategyFile string `mapstructure:"strategy_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("min_hold_days", hold.DefaultMinHoldDays)
	v.SetDefault("transaction_fee", 10)
	v.SetDefault("tolerance", 50)
	v.SetDefault("currency", hold.DefaultCurrency)
	v.SetDefault("watchlist", []string{})
	v.SetDefault("monthly_budget", 1000)
	v.SetDefault("max_positions", 10)
	v.SetDefault("stop_loss_percent", -10)
	v.SetDefault("profit_target_percent", 20)
	v.SetDefault("state_file", "portfolio.json")

	v.SetDefault("market.source", "file")
	v.SetDefault("market.file", "prices.json")
	v.SetDefault("market.url_template", "")
	v.SetDefault("market.price_path", "$.price")
	v.SetDefault("market.cache", true)
	v.SetDefault("market.api_key", "")
	v.SetDefault("market.api_secret", "")
	v.SetDefault("market.base_url", "")

	v.SetDefault("advisor.model", "gemini-2.5-flash")
	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.strategy_file", "strategy.txt")

	d := logging.Default()
	v.SetDefault("log.level", d.Level)
	v.SetDefault("log.file", d.File)
	v.SetDefault("log.max_size", d.MaxSize)
	v.SetDefault("log.max_backups", d.MaxBackups)
	v.SetDefault("log.max_age", d.MaxAge)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration file. When path is empty, config.json is
// searched in the current directory and in ./config, and a missing file means
// defaults. A .env file in the current directory is loaded first so that API
// keys can stay out of the configuration file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		log.Debug().Msg("no config.json found, using defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("config loaded")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyEnvOverrides(cfg)

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	return cfg, nil
}

// applyEnvOverrides reads API keys from the variables the providers document.
func applyEnvOverrides(cfg *Config) {
	if cfg.Advisor.APIKey == "" {
		for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if v := os.Getenv(k); v != "" {
				cfg.Advisor.APIKey = v
				break
			}
		}
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" && cfg.Market.APIKey == "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" && cfg.Market.APISecret == "" {
		cfg.Market.APISecret = v
	}
}

// Validate returns an error for an unusable configuration and warnings for
// suspicious values.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []error

	var invalid []string
	for i, t := range c.Watchlist {
		c.Watchlist[i] = strings.TrimSpace(t)
		if !isTicker(c.Watchlist[i]) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid ticker format: %s (must be uppercase letters only)", strings.Join(invalid, ", ")))
	}
	if len(c.Watchlist) == 0 {
		warnings = append(warnings, "watchlist is empty, advice only covers held positions")
	}

	switch {
	case c.MonthlyBudget <= 0:
		errs = append(errs, errors.New("monthly_budget must be positive"))
	case c.MonthlyBudget > 1_000_000:
		warnings = append(warnings, "monthly_budget is very high (>$1M)")
	}
	switch {
	case c.MaxPositions <= 0:
		errs = append(errs, errors.New("max_positions must be positive"))
	case c.MaxPositions > 20:
		warnings = append(warnings, "max_positions is high (>20) - consider diversification limits")
	}
	if c.TransactionFee < 0 {
		errs = append(errs, errors.New("transaction_fee cannot be negative"))
	}
	if c.Tolerance < 0 {
		errs = append(errs, errors.New("tolerance cannot be negative"))
	}
	if c.MinHoldDays < 0 {
		errs = append(errs, errors.New("min_hold_days cannot be negative"))
	}
	if c.StopLossPercent > 0 {
		warnings = append(warnings, "stop_loss_percent should be negative (e.g., -10)")
	}
	if c.ProfitTargetPercent < 0 {
		warnings = append(warnings, "profit_target_percent should be positive (e.g., 20)")
	}
	switch c.Market.Source {
	case "file", "http", "alpaca":
	default:
		errs = append(errs, fmt.Errorf("unknown market.source %q (must be file, http or alpaca)", c.Market.Source))
	}
	return warnings, errors.Join(errs...)
}

func isTicker(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Rule returns the minimum holding period rule.
func (c *Config) Rule() hold.HoldRule { return hold.HoldRule{MinHoldDays: c.MinHoldDays} }

// Fee returns the transaction fee charged on each trade.
func (c *Config) Fee() hold.Money { return hold.M(c.TransactionFee, c.Currency) }

// Validator returns the action validator configured with the hold rule, the fee and the tolerance.
func (c *Config) Validator() hold.Validator {
	return hold.Validator{
		Rule:      c.Rule(),
		Fee:       c.Fee(),
		Tolerance: hold.M(c.Tolerance, c.Currency),
	}
}

// Recorder returns the trade recorder configured with the hold rule.
func (c *Config) Recorder() hold.Recorder { return hold.Recorder{Rule: c.Rule()} }
