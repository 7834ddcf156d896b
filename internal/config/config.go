// Package config loads and validates the relay's process-wide configuration:
// double-underscore key delimiting for nested env vars, an optional
// ENV_PATH-pointed dotenv file, AutomaticEnv, explicit defaults, and a
// validation pass before the process is allowed to serve traffic.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PostgresConfig backs the Credential Store's principal/quota persistence.
type PostgresConfig struct {
	Host              string `mapstructure:"host" validate:"required"`
	Port              int    `mapstructure:"port" validate:"required"`
	DBName            string `mapstructure:"db_name" validate:"required"`
	User              string `mapstructure:"user" validate:"required"`
	Password          string `mapstructure:"password"`
	SSLMode           string `mapstructure:"ssl_mode"`
	MaxOpenConnection int    `mapstructure:"max_open_connection"`
	MaxIdleConnection int    `mapstructure:"max_ideal_connection"`
}

// RedisConfig backs the Accountant's optional cross-process usage mirror.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UpstreamConfig describes the proprietary Realtime API the relay bridges to.
type UpstreamConfig struct {
	BaseURL         string `mapstructure:"base_url" validate:"required"`
	WebSocketURL    string `mapstructure:"websocket_url" validate:"required"`
	APIKey          string `mapstructure:"api_key" validate:"required"`
	ProtocolVersion string `mapstructure:"protocol_version" validate:"required"`
}

// PoolConfig bounds the Session Pool.
type PoolConfig struct {
	Capacity int `mapstructure:"capacity" validate:"required,min=1"`
}

// RateLimitConfig parameterizes the Accountant's default token bucket.
type RateLimitConfig struct {
	Capacity     int `mapstructure:"capacity" validate:"required,min=1"`
	RefillPerMin int `mapstructure:"refill_per_min" validate:"required,min=1"`
	Shards       int `mapstructure:"shards"`
}

// ToolRegistryConfig controls the optional function.call interception path.
// Disabled by default: the relay forwards function.call upstream unchanged
// unless this is explicitly turned on.
type ToolRegistryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MCPAddress string `mapstructure:"mcp_address"`
}

// AppConfig is the fully validated process configuration.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	JWTSecret       string `mapstructure:"jwt_secret" validate:"required"`
	IdleTimeoutSecs int    `mapstructure:"idle_timeout_secs" validate:"required,min=1"`

	Postgres    PostgresConfig     `mapstructure:"postgres" validate:"required"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Upstream    UpstreamConfig     `mapstructure:"upstream" validate:"required"`
	Pool        PoolConfig         `mapstructure:"pool" validate:"required"`
	RateLimit   RateLimitConfig    `mapstructure:"rate_limit" validate:"required"`
	ToolRegistry ToolRegistryConfig `mapstructure:"tool_registry"`
}

// InitConfig constructs the viper instance the relay reads its environment
// from. Nested keys use "__" as delimiter (e.g. POSTGRES__HOST); unrecognized
// environment variables are ignored per the relay's configuration contract.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("relay: reading config file: %v, falling back to environment", err)
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "voice-relay")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("IDLE_TIMEOUT_SECS", 300)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "relay")
	v.SetDefault("POSTGRES__USER", "relay")
	v.SetDefault("POSTGRES__PASSWORD", "")
	v.SetDefault("POSTGRES__SSL_MODE", "disable")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)

	v.SetDefault("REDIS__ENABLED", false)
	v.SetDefault("REDIS__ADDR", "localhost:6379")
	v.SetDefault("REDIS__DB", 0)

	v.SetDefault("UPSTREAM__BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("UPSTREAM__WEBSOCKET_URL", "wss://api.openai.com/v1/realtime")
	v.SetDefault("UPSTREAM__API_KEY", "")
	v.SetDefault("UPSTREAM__PROTOCOL_VERSION", "realtime=v1")

	v.SetDefault("POOL__CAPACITY", 10)

	v.SetDefault("RATE_LIMIT__CAPACITY", 100)
	v.SetDefault("RATE_LIMIT__REFILL_PER_MIN", 100)
	v.SetDefault("RATE_LIMIT__SHARDS", 16)

	v.SetDefault("TOOL_REGISTRY__ENABLED", false)
	v.SetDefault("TOOL_REGISTRY__MCP_ADDRESS", "")
}

// GetApplicationConfig unmarshals and validates the final AppConfig.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
