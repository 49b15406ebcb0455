package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Accounting AccountingConfig
	Authority  AuthorityConfig
	Sequence   SequenceConfig
	JWT        JWTConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

// AccountingConfig points at the downstream accounting system that mirrors
// assigned expense reports. An empty DSN disables the mirror.
type AccountingConfig struct {
	DSN     string
	Timeout time.Duration
}

// AuthorityConfig configures the tax-authority verification client.
type AuthorityConfig struct {
	BaseURL          string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	Scopes           []string
	RequestTimeout   time.Duration
	TokenExpirySkew  time.Duration
	TransientRetries int
	RetryDelay       time.Duration
	MaxVariations    int
	RatePerSecond    float64
	RateBurst        int
	VerifiableTypes  []string
}

type SequenceConfig struct {
	TxTimeout time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

func Load() *Config {
	// Load .env into the process environment for AutomaticEnv
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded into environment")
	}

	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg(".env file not found, using environment variables")
	}

	setDefaults()

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		Accounting: AccountingConfig{
			DSN:     viper.GetString("ACCOUNTING_DSN"),
			Timeout: viper.GetDuration("ACCOUNTING_TIMEOUT"),
		},
		Authority: AuthorityConfig{
			BaseURL:          viper.GetString("AUTHORITY_BASE_URL"),
			TokenURL:         viper.GetString("AUTHORITY_TOKEN_URL"),
			ClientID:         viper.GetString("AUTHORITY_CLIENT_ID"),
			ClientSecret:     viper.GetString("AUTHORITY_CLIENT_SECRET"),
			Scopes:           viper.GetStringSlice("AUTHORITY_SCOPES"),
			RequestTimeout:   viper.GetDuration("AUTHORITY_REQUEST_TIMEOUT"),
			TokenExpirySkew:  viper.GetDuration("AUTHORITY_TOKEN_EXPIRY_SKEW"),
			TransientRetries: viper.GetInt("AUTHORITY_TRANSIENT_RETRIES"),
			RetryDelay:       viper.GetDuration("AUTHORITY_RETRY_DELAY"),
			MaxVariations:    viper.GetInt("AUTHORITY_MAX_VARIATIONS"),
			RatePerSecond:    viper.GetFloat64("AUTHORITY_RATE_PER_SECOND"),
			RateBurst:        viper.GetInt("AUTHORITY_RATE_BURST"),
			VerifiableTypes:  viper.GetStringSlice("AUTHORITY_VERIFIABLE_TYPES"),
		},
		Sequence: SequenceConfig{
			TxTimeout: viper.GetDuration("SEQUENCE_TX_TIMEOUT"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
	}
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "invoicecore")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "invoicecore")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "America/Lima")
	viper.SetDefault("ACCOUNTING_DSN", "")
	viper.SetDefault("ACCOUNTING_TIMEOUT", "15s")
	viper.SetDefault("AUTHORITY_BASE_URL", "https://api.authority.example")
	viper.SetDefault("AUTHORITY_TOKEN_URL", "")
	viper.SetDefault("AUTHORITY_SCOPES", []string{})
	viper.SetDefault("AUTHORITY_REQUEST_TIMEOUT", "10s")
	viper.SetDefault("AUTHORITY_TOKEN_EXPIRY_SKEW", "60s")
	viper.SetDefault("AUTHORITY_TRANSIENT_RETRIES", 2)
	viper.SetDefault("AUTHORITY_RETRY_DELAY", "500ms")
	viper.SetDefault("AUTHORITY_MAX_VARIATIONS", 3)
	viper.SetDefault("AUTHORITY_RATE_PER_SECOND", 5)
	viper.SetDefault("AUTHORITY_RATE_BURST", 5)
	viper.SetDefault("AUTHORITY_VERIFIABLE_TYPES", []string{"01", "03", "07", "08"})
	viper.SetDefault("SEQUENCE_TX_TIMEOUT", "5s")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("LOG_OUTPUT", "stdout")
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

// TokenEndpoint returns the configured token URL, falling back to the
// conventional path under the base URL.
func (c *AuthorityConfig) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return c.BaseURL + "/oauth/token"
}
