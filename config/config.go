package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// DevJWTSecret is the fallback signing secret. Never use it outside local development.
const DevJWTSecret = "default_secret"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Security  SecurityConfig  `mapstructure:"security"`
	OTP       OTPConfig       `mapstructure:"otp"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	SMS       SMSConfig       `mapstructure:"sms"`
	ML        MLConfig        `mapstructure:"ml"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN renders the lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL renders the connection string in URL form for golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// Expiry applies to doctor and patient sessions, AccountExpiry to the unified users login.
	Expiry        time.Duration `mapstructure:"expiry"`
	AccountExpiry time.Duration `mapstructure:"account_expiry"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type OTPConfig struct {
	MaxSends int           `mapstructure:"max_sends"`
	Window   time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether SMTP credentials are present.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Username != "" && e.Password != ""
}

type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

// Enabled reports whether Twilio credentials are present.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != "" && s.From != ""
}

type MLConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxFailures    int           `mapstructure:"max_failures"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv mirrors the variable names existing deployments already export.
type legacyEnv struct {
	Port        int    `envconfig:"PORT"`
	PGHost      string `envconfig:"PGHOST"`
	PGPort      int    `envconfig:"PGPORT"`
	PGUser      string `envconfig:"PGUSER"`
	PGPassword  string `envconfig:"PGPASSWORD"`
	PGDatabase  string `envconfig:"PGDATABASE"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	BcryptCost  int    `envconfig:"BCRYPT_SALT_ROUNDS"`
	EmailUser   string `envconfig:"EMAIL_USER"`
	EmailPass   string `envconfig:"EMAIL_PASS"`
	TwilioSID   string `envconfig:"TWILIO_SID"`
	TwilioToken string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioPhone string `envconfig:"TWILIO_PHONE"`
	MLBaseURL   string `envconfig:"ML_BASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 20*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "metabridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("jwt.secret", DevJWTSecret)
	v.SetDefault("jwt.expiry", 24*time.Hour)
	v.SetDefault("jwt.account_expiry", time.Hour)

	v.SetDefault("security.bcrypt_cost", 10)

	v.SetDefault("otp.max_sends", 5)
	v.SetDefault("otp.window", 10*time.Minute)

	v.SetDefault("redis.url", "")

	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")

	v.SetDefault("sms.account_sid", "")
	v.SetDefault("sms.auth_token", "")
	v.SetDefault("sms.from", "")

	v.SetDefault("ml.base_url", "http://127.0.0.1:5000")
	v.SetDefault("ml.timeout", 15*time.Second)
	v.SetDefault("ml.max_failures", 5)
	v.SetDefault("ml.breaker_timeout", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads .env, then config.yaml (optional), then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(viper.New(), ".", "./config")
}

// Load builds the configuration on v, searching the given directories for config.yaml.
func Load(v *viper.Viper, paths ...string) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env legacyEnv
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	env.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (e legacyEnv) apply(cfg *Config) {
	setInt(&cfg.Server.Port, e.Port)
	setString(&cfg.Database.Host, e.PGHost)
	setInt(&cfg.Database.Port, e.PGPort)
	setString(&cfg.Database.User, e.PGUser)
	setString(&cfg.Database.Password, e.PGPassword)
	setString(&cfg.Database.Name, e.PGDatabase)
	setString(&cfg.JWT.Secret, e.JWTSecret)
	setInt(&cfg.Security.BcryptCost, e.BcryptCost)
	setString(&cfg.Email.Username, e.EmailUser)
	setString(&cfg.Email.Password, e.EmailPass)
	setString(&cfg.SMS.AccountSID, e.TwilioSID)
	setString(&cfg.SMS.AuthToken, e.TwilioToken)
	setString(&cfg.SMS.From, e.TwilioPhone)
	setString(&cfg.ML.BaseURL, e.MLBaseURL)
	setString(&cfg.Redis.URL, e.RedisURL)

	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.Username
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.JWT.Expiry <= 0 || c.JWT.AccountExpiry <= 0 {
		return errors.New("jwt expiry must be positive")
	}
	if c.ML.BaseURL == "" {
		return errors.New("ml base url must not be empty")
	}
	return nil
}

// UsesDevSecret reports whether tokens are signed with the development fallback.
func (c *Config) UsesDevSecret() bool {
	return c.JWT.Secret == DevJWTSecret
}
