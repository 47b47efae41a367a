package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
)

type Config struct {
	// Node
	RPCEndpoint          string
	RPCWebsocketEndpoint string
	CommitmentLevel      string
	RPCRateLimit         float64

	// Wallet
	PrivateKey    string
	QuoteToken    string
	QuoteMint     solana.PublicKey
	QuoteDecimals uint8
	QuoteAmount   decimal.Decimal

	LogLevel string

	// Discovery
	PreloadExistingMarkets bool
	CacheNewMarkets        bool

	// Execution
	TransactionExecutor string
	CustomFee           decimal.Decimal
	ComputeUnitLimit    uint32
	ComputeUnitPrice    uint64

	// Buy
	MaxLag             time.Duration
	MaxTokensAtTheTime int
	AutoBuyDelay       time.Duration
	MaxBuyRetries      int
	MaxBuyDuration     time.Duration
	BuySlippage        decimal.Decimal

	// Sell
	AutoSell                  bool
	AutoSellDelay             time.Duration
	MaxSellRetries            int
	SellSlippage              decimal.Decimal
	PriceCheckInterval        time.Duration
	PriceCheckDuration        time.Duration
	PriceCheckForceExit       bool
	TakeProfit                decimal.Decimal
	StopLoss                  decimal.Decimal
	TrailingStopLoss          bool
	SkipSellingIfLostMoreThan decimal.Decimal
	AutoSellWithoutSellSignal bool

	// Technical analysis
	UseTA            bool
	MACDShortPeriod  int
	MACDLongPeriod   int
	MACDSignalPeriod int
	RSIPeriod        int

	BuySignalTimeToWait         time.Duration
	BuySignalPriceInterval      time.Duration
	BuySignalFractionPctMin     decimal.Decimal
	BuySignalLowVolumeThreshold decimal.Decimal

	// Lists
	UseSnipeList             bool
	SnipeListFile            string
	SnipeListRefreshInterval time.Duration
	BlacklistFile            string
	BlacklistRefreshInterval time.Duration

	// Filters
	FilterCheckInterval       time.Duration
	FilterCheckDuration       time.Duration
	ConsecutiveFilterMatches  int
	CheckIfMintIsRenounced    bool
	CheckIfFreezable          bool
	CheckIfBurned             bool
	CheckIfMutable            bool
	CheckIfSocials            bool
	MinPoolSize               decimal.Decimal
	MaxPoolSize               decimal.Decimal
	CheckHolders              bool
	MinHolders                int
	CheckTokenDistribution    bool
	MaxTopHolderPercent       decimal.Decimal
	CheckAbnormalDistribution bool

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// malformed collects values that could not be parsed
	malformed []error
}

func Load() *Config {
	c := &Config{}

	// Node
	c.RPCEndpoint = getEnv("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com")
	c.RPCWebsocketEndpoint = getEnv("RPC_WEBSOCKET_ENDPOINT", "")
	c.CommitmentLevel = getEnv("COMMITMENT_LEVEL", "confirmed")
	c.RPCRateLimit = c.getFloatEnv("RPC_RATE_LIMIT", 0)

	// Wallet
	c.PrivateKey = getEnv("PRIVATE_KEY", "")
	c.QuoteToken = strings.ToUpper(getEnv("QUOTE_MINT", "WSOL"))
	c.QuoteAmount = c.getDecimalEnv("QUOTE_AMOUNT", "0.01")
	c.LogLevel = getEnv("LOG_LEVEL", "info")

	// Discovery
	c.PreloadExistingMarkets = c.getBoolEnv("PRE_LOAD_EXISTING_MARKETS", false)
	c.CacheNewMarkets = c.getBoolEnv("CACHE_NEW_MARKETS", false)

	// Execution
	c.TransactionExecutor = getEnv("TRANSACTION_EXECUTOR", "default")
	c.CustomFee = c.getDecimalEnv("CUSTOM_FEE", "0.006")
	c.ComputeUnitLimit = uint32(c.getIntEnv("COMPUTE_UNIT_LIMIT", 101337))
	c.ComputeUnitPrice = uint64(c.getIntEnv("COMPUTE_UNIT_PRICE", 421197))

	// Buy
	c.MaxLag = c.getSecondsEnv("MAX_LAG", 0)
	c.MaxTokensAtTheTime = c.getIntEnv("MAX_TOKENS_AT_THE_TIME", 1)
	c.AutoBuyDelay = c.getMillisEnv("AUTO_BUY_DELAY", 0)
	c.MaxBuyRetries = c.getIntEnv("MAX_BUY_RETRIES", 10)
	c.MaxBuyDuration = c.getMillisEnv("MAX_BUY_DURATION", 0)
	c.BuySlippage = c.getDecimalEnv("BUY_SLIPPAGE", "20")

	// Sell
	c.AutoSell = c.getBoolEnv("AUTO_SELL", true)
	c.AutoSellDelay = c.getMillisEnv("AUTO_SELL_DELAY", 0)
	c.MaxSellRetries = c.getIntEnv("MAX_SELL_RETRIES", 10)
	c.SellSlippage = c.getDecimalEnv("SELL_SLIPPAGE", "20")
	c.PriceCheckInterval = c.getMillisEnv("PRICE_CHECK_INTERVAL", 2*time.Second)
	c.PriceCheckDuration = c.getMillisEnv("PRICE_CHECK_DURATION", 10*time.Minute)
	c.PriceCheckForceExit = c.getBoolEnv("PRICE_CHECK_FORCE_EXIT", false)
	c.TakeProfit = c.getDecimalEnv("TAKE_PROFIT", "40")
	c.StopLoss = c.getDecimalEnv("STOP_LOSS", "20")
	c.TrailingStopLoss = c.getBoolEnv("TRAILING_STOP_LOSS", false)
	c.SkipSellingIfLostMoreThan = c.getDecimalEnv("SKIP_SELLING_IF_LOST_MORE_THAN", "0")
	c.AutoSellWithoutSellSignal = c.getBoolEnv("AUTO_SELL_WITHOUT_SELL_SIGNAL", true)

	// Technical analysis
	c.UseTA = c.getBoolEnv("USE_TA", false)
	c.MACDShortPeriod = c.getIntEnv("MACD_SHORT_PERIOD", 12)
	c.MACDLongPeriod = c.getIntEnv("MACD_LONG_PERIOD", 26)
	c.MACDSignalPeriod = c.getIntEnv("MACD_SIGNAL_PERIOD", 9)
	c.RSIPeriod = c.getIntEnv("RSI_PERIOD", 14)
	c.BuySignalTimeToWait = c.getMillisEnv("BUY_SIGNAL_TIME_TO_WAIT", 0)
	c.BuySignalPriceInterval = c.getMillisEnv("BUY_SIGNAL_PRICE_INTERVAL", time.Second)
	c.BuySignalFractionPctMin = c.getDecimalEnv("BUY_SIGNAL_FRACTION_PERCENTAGE_MIN", "0")
	c.BuySignalLowVolumeThreshold = c.getDecimalEnv("BUY_SIGNAL_LOW_VOLUME_THRESHOLD", "0")

	// Lists
	c.UseSnipeList = c.getBoolEnv("USE_SNIPE_LIST", false)
	c.SnipeListFile = getEnv("SNIPE_LIST_FILE", "snipe-list.txt")
	c.SnipeListRefreshInterval = c.getMillisEnv("SNIPE_LIST_REFRESH_INTERVAL", 30*time.Second)
	c.BlacklistFile = getEnv("BLACKLIST_FILE", "blacklist.txt")
	c.BlacklistRefreshInterval = c.getMillisEnv("BLACKLIST_REFRESH_INTERVAL", 30*time.Second)

	// Filters
	c.FilterCheckInterval = c.getMillisEnv("FILTER_CHECK_INTERVAL", 2*time.Second)
	c.FilterCheckDuration = c.getMillisEnv("FILTER_CHECK_DURATION", time.Minute)
	c.ConsecutiveFilterMatches = c.getIntEnv("CONSECUTIVE_FILTER_MATCHES", 3)
	c.CheckIfMintIsRenounced = c.getBoolEnv("CHECK_IF_MINT_IS_RENOUNCED", true)
	c.CheckIfFreezable = c.getBoolEnv("CHECK_IF_FREEZABLE", false)
	c.CheckIfBurned = c.getBoolEnv("CHECK_IF_BURNED", true)
	c.CheckIfMutable = c.getBoolEnv("CHECK_IF_MUTABLE", false)
	c.CheckIfSocials = c.getBoolEnv("CHECK_IF_SOCIALS", false)
	c.MinPoolSize = c.getDecimalEnv("MIN_POOL_SIZE", "0")
	c.MaxPoolSize = c.getDecimalEnv("MAX_POOL_SIZE", "0")
	c.CheckHolders = c.getBoolEnv("CHECK_HOLDERS", false)
	c.MinHolders = c.getIntEnv("MIN_HOLDERS", 0)
	c.CheckTokenDistribution = c.getBoolEnv("CHECK_TOKEN_DISTRIBUTION", false)
	c.MaxTopHolderPercent = c.getDecimalEnv("MAX_TOP_HOLDER_PERCENT", "0")
	c.CheckAbnormalDistribution = c.getBoolEnv("CHECK_ABNORMAL_DISTRIBUTION", false)

	// Redis
	c.RedisAddr = getEnv("REDIS_ADDR", "")

	// ClickHouse
	c.ClickHouseAddr = getEnv("CLICKHOUSE_ADDR", "")
	c.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", "sniper")
	c.ClickHouseUsername = getEnv("CLICKHOUSE_USERNAME", "default")
	c.ClickHousePassword = getEnv("CLICKHOUSE_PASSWORD", "")

	// API
	c.APIAddr = getEnv("API_ADDR", "")
	c.APIKey = getEnv("API_KEY", "")
	c.DevMode = c.getBoolEnv("DEV_MODE", false)

	// HTTP
	c.HTTPTimeout = c.getDurationEnv("HTTP_TIMEOUT", 30*time.Second)
	c.MaxRetries = c.getIntEnv("MAX_RETRIES", 5)
	c.RetryBackoff = c.getDurationEnv("RETRY_BACKOFF", 2*time.Second)

	switch c.QuoteToken {
	case "WSOL":
		c.QuoteMint, c.QuoteDecimals = constants.WSOLMint, 9
	case "USDC":
		c.QuoteMint, c.QuoteDecimals = constants.USDCMint, 6
	}

	return c
}

// Validate reports malformed values and settings that cannot work together.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.malformed...)

	if c.RPCEndpoint == "" {
		errs = append(errs, errors.New("RPC_ENDPOINT is required"))
	}
	if c.RPCWebsocketEndpoint == "" {
		errs = append(errs, errors.New("RPC_WEBSOCKET_ENDPOINT is required"))
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		errs = append(errs, errors.New("PRIVATE_KEY is required"))
	}
	switch c.CommitmentLevel {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("COMMITMENT_LEVEL %q must be processed, confirmed or finalized", c.CommitmentLevel))
	}
	if c.QuoteMint.IsZero() {
		errs = append(errs, fmt.Errorf("QUOTE_MINT %q must be WSOL or USDC", c.QuoteToken))
	}
	if !c.QuoteAmount.IsPositive() {
		errs = append(errs, errors.New("QUOTE_AMOUNT must be positive"))
	}
	if c.MaxTokensAtTheTime < 0 {
		errs = append(errs, errors.New("MAX_TOKENS_AT_THE_TIME must not be negative"))
	}
	if c.MaxBuyRetries < 1 || c.MaxSellRetries < 1 {
		errs = append(errs, errors.New("MAX_BUY_RETRIES and MAX_SELL_RETRIES must be at least 1"))
	}
	if c.UseSnipeList && c.SnipeListFile == "" && c.RedisAddr == "" {
		errs = append(errs, errors.New("USE_SNIPE_LIST needs SNIPE_LIST_FILE or REDIS_ADDR"))
	}
	if c.APIKey != "" && c.APIAddr == "" {
		errs = append(errs, errors.New("API_KEY is set but API_ADDR is empty"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func (c *Config) bad(key, val string, err error) {
	c.malformed = append(c.malformed, fmt.Errorf("%s=%q: %w", key, val, err))
}

func (c *Config) getIntEnv(key string, defaultVal int) int {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		c.bad(key, val, err)
		return defaultVal
	}
	return i
}

func (c *Config) getFloatEnv(key string, defaultVal float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		c.bad(key, val, err)
		return defaultVal
	}
	return f
}

func (c *Config) getBoolEnv(key string, defaultVal bool) bool {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		c.bad(key, val, err)
		return defaultVal
	}
	return b
}

func (c *Config) getDecimalEnv(key, defaultVal string) decimal.Decimal {
	val := getEnv(key, defaultVal)
	d, err := decimal.NewFromString(val)
	if err != nil {
		c.bad(key, val, err)
		return decimal.RequireFromString(defaultVal)
	}
	return d
}

// getDurationEnv accepts Go durations ("30s").
func (c *Config) getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		c.bad(key, val, err)
		return defaultVal
	}
	return d
}

// getMillisEnv accepts a bare number of milliseconds or a Go duration.
func (c *Config) getMillisEnv(key string, defaultVal time.Duration) time.Duration {
	return c.getUnitEnv(key, time.Millisecond, defaultVal)
}

// getSecondsEnv accepts a bare number of seconds or a Go duration.
func (c *Config) getSecondsEnv(key string, defaultVal time.Duration) time.Duration {
	return c.getUnitEnv(key, time.Second, defaultVal)
}

func (c *Config) getUnitEnv(key string, unit, defaultVal time.Duration) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		if n < 0 {
			c.bad(key, val, errors.New("must not be negative"))
			return defaultVal
		}
		return time.Duration(n) * unit
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		if err == nil {
			err = errors.New("must not be negative")
		}
		c.bad(key, val, err)
		return defaultVal
	}
	return d
}
