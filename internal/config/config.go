package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	SMTP       SMTPConfig
	Invitation InvitationConfig
	OTP        OTPConfig
	RateLimit  RateLimitConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	FrontendURL    string
	AllowedOrigins []string
}

// SMTPConfig holds outgoing mail configuration. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// InvitationConfig holds invitation lifecycle settings
type InvitationConfig struct {
	TTL     time.Duration
	BaseURL string
}

// OTPConfig holds email verification code settings
type OTPConfig struct {
	Issuer        string
	TTL           time.Duration
	EncryptionKey string
	// MaxAttempts failed guesses invalidate the issued code.
	MaxAttempts int
}

// RateLimitConfig holds limits applied to public endpoints
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int

	// Per-email limit on code verification, independent of the client IP.
	VerifyRequestsPerMinute int
	VerifyBurst             int

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

func Load() (*Config, error) {
	// .env is optional; deployments usually inject the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "taskflow"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	allowedOrigins := getEnvSlice("CORS_ALLOWED_ORIGINS")
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontendURL}
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		FrontendURL:    frontendURL,
		AllowedOrigins: allowedOrigins,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@taskflow.local"),
		FromName: getEnv("SMTP_FROM_NAME", "Taskflow"),
	}

	// Invitation configuration
	invitationTTL, err := time.ParseDuration(getEnv("INVITATION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVITATION_TTL: %w", err)
	}

	config.Invitation = InvitationConfig{
		TTL:     invitationTTL,
		BaseURL: strings.TrimRight(getEnv("INVITATION_BASE_URL", frontendURL), "/"),
	}

	// OTP configuration
	otpTTL, err := time.ParseDuration(getEnv("OTP_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
	}

	otpAttempts, err := strconv.Atoi(getEnv("OTP_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %w", err)
	}

	config.OTP = OTPConfig{
		Issuer:        getEnv("OTP_ISSUER", "Taskflow"),
		TTL:           otpTTL,
		EncryptionKey: getEnv("OTP_ENCRYPTION_KEY", ""),
		MaxAttempts:   otpAttempts,
	}

	// Rate limit configuration
	rpm, err := strconv.Atoi(getEnv("RATELIMIT_PUBLIC_REQUESTS_PER_MINUTE", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATELIMIT_PUBLIC_REQUESTS_PER_MINUTE: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("RATELIMIT_PUBLIC_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATELIMIT_PUBLIC_BURST: %w", err)
	}

	verifyRPM, err := strconv.Atoi(getEnv("RATELIMIT_VERIFY_REQUESTS_PER_MINUTE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATELIMIT_VERIFY_REQUESTS_PER_MINUTE: %w", err)
	}
	verifyBurst, err := strconv.Atoi(getEnv("RATELIMIT_VERIFY_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATELIMIT_VERIFY_BURST: %w", err)
	}
	trustProxy, err := strconv.ParseBool(getEnv("RATELIMIT_TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATELIMIT_TRUST_PROXY: %w", err)
	}

	config.RateLimit = RateLimitConfig{
		RequestsPerMinute:       rpm,
		Burst:                   burst,
		VerifyRequestsPerMinute: verifyRPM,
		VerifyBurst:             verifyBurst,
		TrustProxy:              trustProxy,
	}

	// Every command needs the database; the API checks the rest with Validate.
	if err := config.Database.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the database settings.
func (d DatabaseConfig) Validate() error {
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	return nil
}

// Validate checks everything the API server needs.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Invitation.TTL <= 0 {
		return fmt.Errorf("INVITATION_TTL must be positive")
	}
	if c.OTP.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if len(c.OTP.EncryptionKey) < 32 {
		return fmt.Errorf("OTP_ENCRYPTION_KEY must be at least 32 characters")
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0 ||
		c.RateLimit.VerifyRequestsPerMinute <= 0 || c.RateLimit.VerifyBurst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
