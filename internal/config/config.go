// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"solana-token-gate/internal/solana"
)

// Defaults.
const (
	DefaultChainID           = "solana"
	DefaultDexScreenerAPI    = "https://api.dexscreener.com/token-profiles/latest/v1"
	DefaultTokenAddressAPI   = "https://api.dexscreener.com/latest/dex/tokens/"
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultRaydiumProgramAMM = "RVKd61ztZW9wrJ2e7aJMgDo8m8FZPq8TVDajdKD4zjv"

	DefaultMinLiquidity   = 100
	DefaultMinMarketCap   = 100000
	DefaultMaxPriceChange = 50
	DefaultMinBuys        = 50
	DefaultMinSells       = 50

	DefaultRateLimit      = 5
	DefaultMaxTxCost      = 0.01
	DefaultAPITimeoutMs   = 3000
	DefaultSlippage       = 0.5
	DefaultPollInterval   = 30 * time.Second
	DefaultConcurrency    = 4
	DefaultTradeAmountSOL = 0.1
	DefaultHTTPAddr       = ":9090"
)

// Config holds every runtime setting.
type Config struct {
	Development bool

	// Feeds
	ChainID         string
	DexScreenerAPI  string
	TokenAddressAPI string

	// Chain
	RPCURL            string
	WSURL             string
	Commitment        string
	RaydiumProgramAMM string

	// Candidate filter
	MinLiquidity   float64
	MinMarketCap   float64
	MaxPriceChange float64
	MinBuys        int64
	MinSells       int64

	// Throttle and execution budget
	RateLimit  float64
	MaxTxCost  float64
	APITimeout time.Duration
	Slippage   float64

	// Loop
	PollInterval time.Duration
	Concurrency  int

	// Trading
	WalletAddress  string
	TradeAmountSOL float64
	DryRun         bool

	// Storage
	PostgresDSN   string
	ClickHouseDSN string

	// Notification
	TelegramBotToken string
	TelegramChatID   int64

	// Status server
	HTTPAddr string
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),

		ChainID:         getEnv("CHAIN_ID", DefaultChainID),
		DexScreenerAPI:  getEnv("DEX_SCREENER_API", DefaultDexScreenerAPI),
		TokenAddressAPI: getEnv("TOKEN_ADDRESS_API", DefaultTokenAddressAPI),

		RPCURL:            getEnv("RPC_URL", DefaultRPCURL),
		WSURL:             getEnv("WS_URL", ""),
		Commitment:        getEnv("COMMITMENT", solana.DefaultCommitment),
		RaydiumProgramAMM: getEnv("RAYDIUM_PROGRAM_AMM", DefaultRaydiumProgramAMM),

		MinLiquidity:   getEnvAsFloat("MIN_LIQUIDITY", DefaultMinLiquidity),
		MinMarketCap:   getEnvAsFloat("MIN_MARKET_CAP", DefaultMinMarketCap),
		MaxPriceChange: getEnvAsFloat("MAX_PRICE_CHANGE", DefaultMaxPriceChange),
		MinBuys:        int64(getEnvAsInt("MIN_BUYS", DefaultMinBuys)),
		MinSells:       int64(getEnvAsInt("MIN_SELLS", DefaultMinSells)),

		RateLimit:  getEnvAsPositiveFloat("RATE_LIMIT", DefaultRateLimit),
		MaxTxCost:  getEnvAsPositiveFloat("MAX_TX_COST", DefaultMaxTxCost),
		APITimeout: time.Duration(getEnvAsPositiveInt("API_TIMEOUT", DefaultAPITimeoutMs)) * time.Millisecond,
		Slippage:   getEnvAsFloat("SLIPPAGE", DefaultSlippage),

		PollInterval: getEnvAsDuration("POLL_INTERVAL", DefaultPollInterval),
		Concurrency:  getEnvAsPositiveInt("CONCURRENCY", DefaultConcurrency),

		WalletAddress:  getEnv("WALLET_ADDRESS", ""),
		TradeAmountSOL: getEnvAsPositiveFloat("TRADE_AMOUNT_SOL", DefaultTradeAmountSOL),
		DryRun:         getEnvAsBool("DRY_RUN", true),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),

		HTTPAddr: getEnv("HTTP_ADDR", DefaultHTTPAddr),
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	if c.ChainID == "" {
		return fmt.Errorf("CHAIN_ID is required")
	}

	if err := validateHTTPURL("DEX_SCREENER_API", c.DexScreenerAPI); err != nil {
		return err
	}

	if err := validateHTTPURL("TOKEN_ADDRESS_API", c.TokenAddressAPI); err != nil {
		return err
	}

	if err := solana.ValidateAddress(c.RaydiumProgramAMM); err != nil {
		return fmt.Errorf("invalid RAYDIUM_PROGRAM_AMM: %w", err)
	}

	if c.WalletAddress != "" {
		if err := solana.ValidateAddress(c.WalletAddress); err != nil {
			return fmt.Errorf("invalid WALLET_ADDRESS: %w", err)
		}
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

// TelegramEnabled reports whether alerts should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", key)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", key)
	}
	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsPositiveInt(name string, defaultValue int) int {
	if value := getEnvAsInt(name, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsPositiveFloat(name string, defaultValue float64) float64 {
	if value := getEnvAsFloat(name, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
