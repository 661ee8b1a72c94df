package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Operator wallet. The private key authorizes every execution attempt;
	// it is injected via environment only and must never be logged.
	PrivateKeyHex string

	// Price feed
	FeedBaseURL  string
	FeedTimeout  time.Duration
	FeedCacheTTL time.Duration
	Network      string

	// Monitored assets (comma-separated hex addresses)
	MonitoredTokens []common.Address

	// Quote asset the facility lends and profits settle in
	QuoteAsset         common.Address
	QuoteAssetDecimals int

	// Scanner filters
	ScanMinLiquidity   float64
	ScanDeltaLowerPct  float64
	ScanDeltaUpperPct  float64
	ScanMaxPriceRatio  float64
	ScanPriceBandMin   float64
	ScanPriceBandMax   float64
	ScanTopK           int

	// Controller
	ScanInterval        time.Duration
	CooldownInterval    time.Duration
	ExecThresholdPct    float64
	LoanFraction        float64 // fraction of the thinner venue's liquidity to borrow
	GasAdjustmentPct    int64   // percent bump applied to the suggested gas price
	WorkBudget          uint64  // unit-of-work ceiling per submission
	DefaultFeeLeg1      uint32
	DefaultFeeLeg2      uint32

	// Engine settings (initial values; owner-mutable at runtime)
	MinProfitBPS   uint64
	MaxGasPriceWei uint64
	MaxSlippageBPS uint64

	// Lending facility
	LoanPremiumBPS uint64

	// Gas oracle
	GasOracleMode     string // "static" or "rpc"
	RPCURL            string
	StaticGasPriceWei uint64

	// Venues
	PrimaryVenue   string
	AlternateVenue string

	// Circuit breaker
	BreakerCheckInterval  time.Duration
	BreakerLoanMultiplier float64
	BreakerMinAbsolute    float64
	BreakerHysteresis     float64

	// Genesis bootstrap, in whole quote units unless noted
	GenesisFacilityLiquidity uint64
	GenesisOperatorBalance   uint64
	GenesisPoolQuoteReserve  uint64
	GenesisPoolTokenReserve  uint64 // whole tokens, 18 decimals
	GenesisAlternateSkewBPS  uint64 // price offset for the alternate venue pool

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	tokens, err := getAddressList("MONITORED_TOKENS")
	if err != nil {
		return nil, fmt.Errorf("parse MONITORED_TOKENS: %w", err)
	}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		PrivateKeyHex: os.Getenv("FLASHARB_PRIVATE_KEY"),

		// Feed defaults
		FeedBaseURL:  getEnvOrDefault("FEED_BASE_URL", "https://api.dexscreener.com/latest/dex"),
		FeedTimeout:  getDurationOrDefault("FEED_TIMEOUT", 15*time.Second),
		FeedCacheTTL: getDurationOrDefault("FEED_CACHE_TTL", 10*time.Second),
		Network:      getEnvOrDefault("NETWORK", "polygon"),

		MonitoredTokens: tokens,

		// Polygon USDC by default
		QuoteAsset:         common.HexToAddress(getEnvOrDefault("QUOTE_ASSET", "0x2791bca1f2de4661ed88a30c99a7a9449aa84174")),
		QuoteAssetDecimals: getIntOrDefault("QUOTE_ASSET_DECIMALS", 6),

		// Scanner defaults
		ScanMinLiquidity:  getFloat64OrDefault("SCAN_MIN_LIQUIDITY_USD", 50000.0),
		ScanDeltaLowerPct: getFloat64OrDefault("SCAN_DELTA_LOWER_PCT", 0.5),
		ScanDeltaUpperPct: getFloat64OrDefault("SCAN_DELTA_UPPER_PCT", 20.0),
		ScanMaxPriceRatio: getFloat64OrDefault("SCAN_MAX_PRICE_RATIO", 10.0),
		ScanPriceBandMin:  getFloat64OrDefault("SCAN_PRICE_BAND_MIN", 1e-9),
		ScanPriceBandMax:  getFloat64OrDefault("SCAN_PRICE_BAND_MAX", 1e9),
		ScanTopK:          getIntOrDefault("SCAN_TOP_K", 10),

		// Controller defaults
		ScanInterval:     getDurationOrDefault("SCAN_INTERVAL", 30*time.Second),
		CooldownInterval: getDurationOrDefault("COOLDOWN_INTERVAL", 2*time.Minute),
		ExecThresholdPct: getFloat64OrDefault("EXEC_THRESHOLD_PCT", 1.5),
		LoanFraction:     getFloat64OrDefault("LOAN_FRACTION", 0.1),
		GasAdjustmentPct: int64(getIntOrDefault("GAS_ADJUSTMENT_PCT", 10)),
		WorkBudget:       getUint64OrDefault("WORK_BUDGET", 1_000_000),
		DefaultFeeLeg1:   uint32(getIntOrDefault("FEE_LEG1", 3000)),
		DefaultFeeLeg2:   uint32(getIntOrDefault("FEE_LEG2", 3000)),

		// Engine setting defaults
		MinProfitBPS:   getUint64OrDefault("MIN_PROFIT_BPS", 50),
		MaxGasPriceWei: getUint64OrDefault("MAX_GAS_PRICE_WEI", 300_000_000_000),
		MaxSlippageBPS: getUint64OrDefault("MAX_SLIPPAGE_BPS", 100),

		// Facility defaults (Aave V3 premium is 5bps; default mirrors V2's 9)
		LoanPremiumBPS: getUint64OrDefault("LOAN_PREMIUM_BPS", 9),

		// Gas oracle defaults
		GasOracleMode:     getEnvOrDefault("GAS_ORACLE_MODE", "static"),
		RPCURL:            getEnvOrDefault("RPC_URL", "https://polygon-rpc.com"),
		StaticGasPriceWei: getUint64OrDefault("STATIC_GAS_PRICE_WEI", 40_000_000_000),

		// Venue defaults
		PrimaryVenue:   getEnvOrDefault("PRIMARY_VENUE", "uniswap"),
		AlternateVenue: getEnvOrDefault("ALTERNATE_VENUE", "quickswap"),

		// Breaker defaults
		BreakerCheckInterval:  getDurationOrDefault("BREAKER_CHECK_INTERVAL", 30*time.Second),
		BreakerLoanMultiplier: getFloat64OrDefault("BREAKER_LOAN_MULTIPLIER", 3.0),
		BreakerMinAbsolute:    getFloat64OrDefault("BREAKER_MIN_BALANCE", 1_000.0),
		BreakerHysteresis:     getFloat64OrDefault("BREAKER_HYSTERESIS", 1.5),

		// Genesis defaults
		GenesisFacilityLiquidity: getUint64OrDefault("GENESIS_FACILITY_LIQUIDITY", 10_000_000),
		GenesisOperatorBalance:   getUint64OrDefault("GENESIS_OPERATOR_BALANCE", 100_000),
		GenesisPoolQuoteReserve:  getUint64OrDefault("GENESIS_POOL_QUOTE_RESERVE", 2_000_000),
		GenesisPoolTokenReserve:  getUint64OrDefault("GENESIS_POOL_TOKEN_RESERVE", 1_000),
		GenesisAlternateSkewBPS:  getUint64OrDefault("GENESIS_ALTERNATE_SKEW_BPS", 100),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "flasharb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "flasharb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "flasharb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.FeedBaseURL == "" {
		return fmt.Errorf("FEED_BASE_URL cannot be empty")
	}

	if c.ScanDeltaLowerPct >= c.ScanDeltaUpperPct {
		return fmt.Errorf("SCAN_DELTA_LOWER_PCT (%v) must be below SCAN_DELTA_UPPER_PCT (%v)",
			c.ScanDeltaLowerPct, c.ScanDeltaUpperPct)
	}

	if c.LoanFraction <= 0 || c.LoanFraction >= 1 {
		return fmt.Errorf("LOAN_FRACTION must be in (0, 1), got %v", c.LoanFraction)
	}

	if c.ScanTopK <= 0 {
		return fmt.Errorf("SCAN_TOP_K must be positive, got %d", c.ScanTopK)
	}

	if c.ExecThresholdPct < c.ScanDeltaLowerPct {
		return fmt.Errorf("EXEC_THRESHOLD_PCT (%v) must not be looser than SCAN_DELTA_LOWER_PCT (%v)",
			c.ExecThresholdPct, c.ScanDeltaLowerPct)
	}

	if c.GasOracleMode != "static" && c.GasOracleMode != "rpc" {
		return fmt.Errorf("GAS_ORACLE_MODE must be \"static\" or \"rpc\", got %q", c.GasOracleMode)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be \"console\" or \"postgres\", got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// getAddressList parses a comma-separated list of hex addresses.
func getAddressList(key string) ([]common.Address, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	addrs := make([]common.Address, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("invalid address %q", part)
		}

		addrs = append(addrs, common.HexToAddress(part))
	}

	return addrs, nil
}
