// Package config provides configuration management for the trading engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/types"
)

// Config holds all engine configuration. It is passed explicitly to
// constructors; nothing reads the environment after LoadConfig returns.
type Config struct {
	Chain     ChainConfig
	Wallet    WalletConfig
	Routers   RouterConfig
	Trading   TradingConfig
	Store     StoreConfig
	MarketAPI MarketAPIConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Logging   LoggingConfig
}

// ChainConfig holds chain connection configuration
type ChainConfig struct {
	Network types.Network
	RPCURL  string
	ChainID int64
}

// WalletConfig holds the signer configuration
type WalletConfig struct {
	PrivateKeyHex string
}

// RouterConfig holds the known venue contract addresses
type RouterConfig struct {
	Lens          common.Address // on-chain quote contract
	BondingCurve  common.Address
	Dex           common.Address
	WrappedNative common.Address
}

// TradingConfig holds trade thresholds and tolerances
type TradingConfig struct {
	TakeProfitPercent float64       // default +5
	StopLossPercent   float64       // default -10
	SlippageBps       int64         // default for buys
	SellSlippageBps   int64         // default for automated sells
	DeadlineWindow    time.Duration // tx deadline, now + window
	ConfirmTimeout    time.Duration // max wait for one confirmation
	SellPacing        time.Duration // minimum gap between automated sells
	UnwrapOnSell      bool          // unwrap WMON proceeds after dex sells
}

// StoreConfig holds position-store configuration
type StoreConfig struct {
	Backend string // "file" or "postgres"
	Path    string // file backend document path
}

// MarketAPIConfig holds the off-chain nad.fun API endpoints
type MarketAPIConfig struct {
	APIURL  string // quote/holdings fallback API
	BaseURL string // token event feed
	Timeout time.Duration
}

// DatabaseConfig holds Postgres configuration for the optional store backend
type DatabaseConfig struct {
	Postgres PostgresConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// CacheConfig holds the optional token-metadata cache configuration
type CacheConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	TTL            time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// networkPreset holds the default contract addresses for a network.
type networkPreset struct {
	rpcURL       string
	chainID      int64
	lens         string
	bondingCurve string
	dex          string
	wmon         string
}

var presets = map[types.Network]networkPreset{
	types.NetworkMainnet: {
		rpcURL:       "https://rpc.monad.xyz",
		chainID:      143,
		lens:         "0x7e78A8DE94f21804F7a17F4E8BF9EC2c872187ea",
		bondingCurve: "0x6F6B8F1a20703309951a5127c45B49b1CD981A22",
		dex:          "0x0B79d71AE99528D1dB24A4148b5f4F865cc2b137",
		wmon:         "0x3bd359C1119dA7Da1D913D1C4D2B7c461115433A",
	},
	types.NetworkTestnet: {
		rpcURL:       "https://testnet-rpc.monad.xyz",
		chainID:      10143,
		lens:         "0xB056d79CA5257589692699a46623F901a3BB76f1",
		bondingCurve: "0x865054F0F6A288adaAc30261731361EA7E908003",
		dex:          "0x5D4a4f430cA3B1b2dB86B9cFE48a5316800F5fb2",
		wmon:         "0x9B68a67e45E03d5a0e0b6e79F6e6F8f5e0C7b2C8",
	},
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional; env variables can be set directly)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	network := types.Network(getEnv("MONAD_NETWORK", string(types.NetworkMainnet)))
	preset, ok := presets[network]
	if !ok {
		return nil, apperrors.NewConfigError("MONAD_NETWORK", fmt.Sprintf("unknown network %q", network))
	}

	config := &Config{
		Chain: ChainConfig{
			Network: network,
			RPCURL:  getEnv("MONAD_RPC_URL", preset.rpcURL),
			ChainID: int64(getEnvAsInt("MONAD_CHAIN_ID", int(preset.chainID))),
		},
		Wallet: WalletConfig{
			// NAD_PRIVATE_KEY kept as a fallback name for older deployments
			PrivateKeyHex: getEnv("MONAD_PRIVATE_KEY", getEnv("NAD_PRIVATE_KEY", "")),
		},
		Trading: TradingConfig{
			TakeProfitPercent: getEnvAsFloat("TAKE_PROFIT_PERCENT", 5),
			StopLossPercent:   getEnvAsFloat("STOP_LOSS_PERCENT", -10),
			SlippageBps:       int64(getEnvAsInt("SLIPPAGE_BPS", 100)),
			SellSlippageBps:   int64(getEnvAsInt("SELL_SLIPPAGE_BPS", 300)),
			DeadlineWindow:    getEnvAsDuration("TX_DEADLINE_WINDOW", 300*time.Second),
			ConfirmTimeout:    getEnvAsDuration("TX_CONFIRM_TIMEOUT", 2*time.Minute),
			SellPacing:        getEnvAsDuration("SELL_PACING", 3*time.Second),
			UnwrapOnSell:      getEnvAsBool("UNWRAP_ON_SELL", false),
		},
		Store: StoreConfig{
			Backend: getEnv("POSITIONS_BACKEND", "file"),
			Path:    getEnv("POSITIONS_REPORT_PATH", defaultStorePath()),
		},
		MarketAPI: MarketAPIConfig{
			APIURL:  getEnv("NADFUN_API_URL", "https://api.nadapp.net"),
			BaseURL: getEnv("NADFUN_BASE_URL", "https://nad.fun"),
			Timeout: getEnvAsDuration("NADFUN_API_TIMEOUT", 12*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "nadfun_trader"),
				User:           getEnv("POSTGRES_USER", "trader"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
			},
		},
		Cache: CacheConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
			TTL:            getEnvAsDuration("TOKEN_META_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	routers, err := loadRouters(preset)
	if err != nil {
		return nil, err
	}
	config.Routers = routers

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadRouters resolves venue addresses, allowing per-address env overrides
func loadRouters(preset networkPreset) (RouterConfig, error) {
	var cfg RouterConfig
	for _, entry := range []struct {
		envKey       string
		defaultValue string
		target       *common.Address
	}{
		{"NADFUN_LENS_ADDRESS", preset.lens, &cfg.Lens},
		{"NADFUN_BONDING_ROUTER", preset.bondingCurve, &cfg.BondingCurve},
		{"NADFUN_DEX_ROUTER", preset.dex, &cfg.Dex},
		{"WMON_ADDRESS", preset.wmon, &cfg.WrappedNative},
	} {
		raw := getEnv(entry.envKey, entry.defaultValue)
		if !common.IsHexAddress(raw) {
			return cfg, apperrors.NewConfigError(entry.envKey, fmt.Sprintf("malformed address %q", raw))
		}
		*entry.target = common.HexToAddress(raw)
	}
	return cfg, nil
}

// validate rejects configurations that would misbehave at trade time
func (c *Config) validate() error {
	if c.Trading.SlippageBps < 0 || c.Trading.SlippageBps >= 10000 {
		return apperrors.NewConfigError("SLIPPAGE_BPS", "must be in [0, 10000)")
	}
	if c.Trading.SellSlippageBps < 0 || c.Trading.SellSlippageBps >= 10000 {
		return apperrors.NewConfigError("SELL_SLIPPAGE_BPS", "must be in [0, 10000)")
	}
	if c.Store.Backend != "file" && c.Store.Backend != "postgres" {
		return apperrors.NewConfigError("POSITIONS_BACKEND", fmt.Sprintf("unknown backend %q", c.Store.Backend))
	}
	return nil
}

// Signer parses the configured private key and derives the wallet address.
// Commands that submit transactions call this before any network activity;
// read-only commands may run without a key.
func (c *Config) Signer() (*ecdsa.PrivateKey, common.Address, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(c.Wallet.PrivateKeyHex, "0x"))
	if raw == "" {
		return nil, common.Address{}, apperrors.NewConfigError("MONAD_PRIVATE_KEY", "not set")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, common.Address{}, apperrors.NewConfigError("MONAD_PRIVATE_KEY", "not a valid secp256k1 key")
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// defaultStorePath returns $HOME/nadfunagent/positions_report.json
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "positions_report.json"
	}
	return filepath.Join(home, "nadfunagent", "positions_report.json")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
