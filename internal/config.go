package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	ProviderModeLive    = "live"
	ProviderModeSandbox = "sandbox"
)

type Config struct {
	Environment   string              `mapstructure:"environment" validate:"required,oneof=development test staging production"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source" validate:"required"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type PaymentConfig struct {
	Provider            string        `mapstructure:"provider" validate:"required,oneof=live sandbox"`
	APIURL              string        `mapstructure:"api_url" validate:"omitempty,url"`
	APIKey              string        `mapstructure:"api_key"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	IntentTTL           time.Duration `mapstructure:"intent_ttl"`
	SupportedCurrencies []string      `mapstructure:"supported_currencies" validate:"required,min=1,dive,required"`
	ReceiveCurrency     string        `mapstructure:"receive_currency"`
	CallbackURL         string        `mapstructure:"callback_url" validate:"omitempty,url"`
	Sandbox             SandboxConfig `mapstructure:"sandbox"`
}

type SandboxConfig struct {
	SimulateCallbacks bool          `mapstructure:"simulate_callbacks"`
	CallbackDelay     time.Duration `mapstructure:"callback_delay"`
	MaxWorkers        int           `mapstructure:"max_workers" validate:"min=0"`
	JobQueueSize      int           `mapstructure:"job_queue_size" validate:"min=0"`
}

type WebhookConfig struct {
	Secret            string          `mapstructure:"secret"`
	SignatureHeader   string          `mapstructure:"signature_header" validate:"required"`
	MaxBodyBytes      int64           `mapstructure:"max_body_bytes" validate:"min=1"`
	TrustForwardedFor bool            `mapstructure:"trust_forwarded_for"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=1"`
	Window   time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Webhook.Validate(c.IsProduction()); err != nil {
		errs = append(errs, fmt.Sprintf("webhook config: %v", err))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, "kafka config: brokers are required when kafka is enabled")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *PaymentConfig) Validate() error {
	if c.Provider == ProviderModeLive {
		if c.APIURL == "" {
			return errors.New("api_url is required for the live provider")
		}
		if c.APIKey == "" {
			return errors.New("api_key is required for the live provider")
		}
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.IntentTTL <= 0 {
		return errors.New("intent_ttl must be positive")
	}
	if c.CallbackURL != "" {
		if _, err := url.ParseRequestURI(c.CallbackURL); err != nil {
			return fmt.Errorf("invalid callback_url: %w", err)
		}
	}
	return nil
}

// Currencies returns the supported currency codes normalised to upper case.
func (c *PaymentConfig) Currencies() []string {
	out := make([]string, 0, len(c.SupportedCurrencies))
	for _, cur := range c.SupportedCurrencies {
		if cur = strings.ToUpper(strings.TrimSpace(cur)); cur != "" {
			out = append(out, cur)
		}
	}
	return out
}

func (c *WebhookConfig) Validate(production bool) error {
	if production && c.Secret == "" {
		return errors.New("secret is required in production")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	return nil
}
