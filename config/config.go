package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-driven setting of the API server.
type Config struct {
	Port        string
	StoreDriver string // postgres | memory
	DBURL       string

	JWTSecret      string
	JWTExpiryHours int

	LogLevel  string
	LogFormat string

	CORSOrigins []string
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client address is always the peer address.
	TrustedProxies []string

	RedisURL        string
	PublicRateLimit int

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	StripePriceStarter     string
	StripePricePro         string
	CheckoutSuccessURL     string
	CheckoutCancelURL      string

	PublicBaseURL     string
	ReminderCron      string
	ReminderLeadHours int
}

// Load reads the configuration from the process environment.
func Load() *Config {
	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", "postgres"))
	cfg.DBURL = os.Getenv("DB_URL")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.JWTExpiryHours = parseInt(os.Getenv("JWT_EXPIRY_HOURS"), 24)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.PublicRateLimit = parseInt(os.Getenv("PUBLIC_RATE_LIMIT"), 30)

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioPhoneNumber = os.Getenv("TWILIO_PHONE_NUMBER")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnv("SMTP_PORT", "1025")
	cfg.SMTPFrom = getEnv("SMTP_FROM", "no-reply@bookingdesk.local")

	cfg.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.StripeWebhookSecret = strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET"))
	tol := parseInt(os.Getenv("STRIPE_WEBHOOK_TOLERANCE_SECONDS"), 300)
	if tol <= 0 {
		tol = 300
	}
	cfg.StripeWebhookTolerance = time.Duration(tol) * time.Second
	cfg.StripePriceStarter = strings.TrimSpace(os.Getenv("STRIPE_PRICE_STARTER"))
	cfg.StripePricePro = strings.TrimSpace(os.Getenv("STRIPE_PRICE_PRO"))
	cfg.CheckoutSuccessURL = strings.TrimSpace(os.Getenv("CHECKOUT_SUCCESS_URL"))
	cfg.CheckoutCancelURL = strings.TrimSpace(os.Getenv("CHECKOUT_CANCEL_URL"))

	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/")
	cfg.ReminderCron = getEnv("REMINDER_CRON", "0 * * * *")
	cfg.ReminderLeadHours = parseInt(os.Getenv("REMINDER_LEAD_HOURS"), 24)
	return cfg
}

// Validate reports the first missing or malformed required setting.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DBURL == "" {
			return fmt.Errorf("DB_URL is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory (got %q)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port (got %q)", c.Port)
	}
	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
			}
		}
	}
	return nil
}

// JWTExpiry is the lifetime of issued session tokens.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

// StripePriceFor maps a plan code to its configured Stripe price.
func (c *Config) StripePriceFor(plan string) string {
	switch plan {
	case "starter":
		return c.StripePriceStarter
	case "pro":
		return c.StripePricePro
	}
	return ""
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
