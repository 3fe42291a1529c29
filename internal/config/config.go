package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the service needs. It is built once in main,
// validated, and passed to component constructors; nothing reads the
// environment after Load returns.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	RateLimit     RateLimitConfig
	SMTP          SMTPConfig
	LogFormat     string // "json" or "text"
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
}

type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type PasswordResetConfig struct {
	TokenLength int
	TTL         time.Duration
	KeyPrefix   string
}

// RateLimitConfig holds per-endpoint request budgets for a fixed window.
type RateLimitConfig struct {
	Window           time.Duration
	Login            int
	ForgotPassword   int
	ResetPassword    int
	VerifyResetToken int
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	ResetURL    string
	SendTimeout time.Duration
}

var errMisconfigured = errors.New("config invalid")

// Load reads the environment (after sourcing .env when present) and returns
// a validated Config. Missing optional values fall back to defaults; a
// missing JWT secret or database URL is a hard error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			Addr:            getenv("SERVER_ADDR", ":8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getenv("JWT_ISSUER", "accounts"),
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		PasswordReset: PasswordResetConfig{
			TokenLength: 32,
			KeyPrefix:   "reset",
		},
		RateLimit: RateLimitConfig{
			Window:           time.Minute,
			Login:            5,
			ForgotPassword:   3,
			ResetPassword:    3,
			VerifyResetToken: 10,
		},
		SMTP: SMTPConfig{
			Host:        os.Getenv("SMTP_HOST"),
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        getenv("SMTP_FROM", "noreply@paystream.io"),
			ResetURL:    getenv("RESET_URL", "http://localhost:8080/reset-password"),
			SendTimeout: 10 * time.Second,
		},
		LogFormat: getenv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.Redis.DB, err = getenvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = getenvInt("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.JWT.AccessTTL, err = getenvDuration("JWT_ACCESS_TTL", 60*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.JWT.RefreshTTL, err = getenvDuration("JWT_REFRESH_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.JWT.RotateRefresh, err = getenvBool("JWT_ROTATE_REFRESH", false); err != nil {
		return Config{}, err
	}
	if cfg.PasswordReset.TTL, err = getenvDuration("RESET_TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", errMisconfigured)
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("%w: JWT_SECRET must be at least 32 bytes", errMisconfigured)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", errMisconfigured)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be positive", errMisconfigured)
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return fmt.Errorf("%w: refresh TTL must exceed access TTL", errMisconfigured)
	}
	if c.PasswordReset.TTL <= 0 {
		return fmt.Errorf("%w: reset token TTL must be positive", errMisconfigured)
	}
	if c.PasswordReset.TokenLength < 16 {
		return fmt.Errorf("%w: reset token length must be at least 16", errMisconfigured)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", errMisconfigured)
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errMisconfigured, key)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s", errMisconfigured, key)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errMisconfigured, key)
	}
	return parsed, nil
}
