package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	Production              bool
	LogLevel                string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	AccessSecret      string
	RefreshSecret     string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	RefreshCookieName string
	SameSite          string

	OTPTTL    time.Duration
	OTPIssuer string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	OTPRateLimitRPM  int

	MailDriver   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURI   string
	GoogleLoginRedirect string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		Production:              strings.EqualFold(getEnv("APP_ENV", "development"), "production"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		AccessSecret:            strings.TrimSpace(os.Getenv("ACCESS_SECRET_KEY")),
		RefreshSecret:           strings.TrimSpace(os.Getenv("REFRESH_SECRET_KEY")),
		AccessTokenTTL:          getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:         getDuration("REFRESH_TOKEN_TTL", 168*time.Hour),
		ResetTokenTTL:           getDuration("RESET_TOKEN_TTL", 10*time.Minute),
		RefreshCookieName:       getEnv("REFRESH_COOKIE_NAME", "refresh-token"),
		SameSite:                strings.ToLower(strings.TrimSpace(os.Getenv("SAMESITE"))),
		OTPTTL:                  getDuration("OTP_TTL", 60*time.Second),
		OTPIssuer:               getEnv("OTP_ISSUER", "Storefront"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		OTPRateLimitRPM:         getInt("OTP_RATE_LIMIT_RPM", 5),
		MailDriver:              strings.ToLower(getEnv("MAIL_DRIVER", "log")),
		SMTPHost:                strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:                getInt("SMTP_PORT", 587),
		SMTPUsername:            strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		MailFrom:                getEnv("MAIL_FROM", "no-reply@storefront.local"),
		GoogleClientID:          strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret:      strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURI:       strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URI")),
		GoogleLoginRedirect:     strings.TrimRight(getEnv("GOOGLE_LOGIN_REDIRECT", "http://localhost:5173"), "/"),
	}

	// The refresh cookie is only Secure in production, and browsers drop
	// SameSite=None cookies that are not Secure.
	if cfg.SameSite == "" {
		cfg.SameSite = "lax"
		if cfg.Production {
			cfg.SameSite = "none"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("ACCESS_SECRET_KEY is required")
	}

	if c.RefreshSecret == "" {
		return fmt.Errorf("REFRESH_SECRET_KEY is required")
	}

	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("ACCESS_SECRET_KEY and REFRESH_SECRET_KEY must differ")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}

	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}

	if _, err := parseSameSite(c.SameSite); err != nil {
		return err
	}

	if c.SameSite == "none" && !c.Production {
		return fmt.Errorf("SAMESITE=none needs a Secure cookie, which is only set when APP_ENV=production")
	}

	if c.Production && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	switch c.MailDriver {
	case "log":
		if c.Production {
			return fmt.Errorf("MAIL_DRIVER=log is not allowed in production")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
	default:
		return fmt.Errorf("unsupported MAIL_DRIVER %q", c.MailDriver)
	}

	if c.GoogleEnabled() && c.GoogleRedirectURI == "" {
		return fmt.Errorf("GOOGLE_REDIRECT_URI is required when GOOGLE_CLIENT_ID is set")
	}

	return nil
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SameSiteMode is only valid after Validate has succeeded.
func (c *Config) SameSiteMode() http.SameSite {
	mode, _ := parseSameSite(c.SameSite)
	return mode
}

func parseSameSite(raw string) (http.SameSite, error) {
	switch raw {
	case "none":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return http.SameSiteDefaultMode, fmt.Errorf("SAMESITE must be one of none, lax, strict (got %q)", raw)
	}
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
