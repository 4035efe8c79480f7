// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`

	IdentityURL        string `env:"IDENTITY_URL"`
	IdentityServiceKey string `env:"IDENTITY_SERVICE_KEY"`

	CloudinaryURL  string `env:"CLOUDINARY_URL"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"noreply@foodshare.local"`

	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	SignupWindow     time.Duration `env:"SIGNUP_WINDOW" envDefault:"1h"`
	SignupIPLimit    int           `env:"SIGNUP_IP_LIMIT" envDefault:"5"`
	SignupEmailLimit int           `env:"SIGNUP_EMAIL_LIMIT" envDefault:"3"`
	ExpirySchedule   string        `env:"EXPIRY_SCHEDULE" envDefault:"*/5 * * * *"`

	// TrustedProxies перечисляет адреса или подсети прокси, чьим заголовкам
	// X-Forwarded-For и X-Real-IP можно доверять. По умолчанию не доверяем никому.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envIdentityURL := cfg.IdentityURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing session tokens")
	flag.StringVar(&cfg.IdentityURL, "i", "", "external identity provider address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envIdentityURL != "" {
		cfg.IdentityURL = envIdentityURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SignupWindow <= 0 {
		return fmt.Errorf("signup window must be positive, got %s", c.SignupWindow)
	}
	if c.SignupIPLimit <= 0 || c.SignupEmailLimit <= 0 {
		return fmt.Errorf("signup limits must be positive")
	}
	if c.IdentityURL != "" && c.IdentityServiceKey == "" {
		return fmt.Errorf("IDENTITY_SERVICE_KEY is required with an external identity provider")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes разбирает TrustedProxies. Одиночный адрес превращается в подсеть из одного адреса.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var res []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			res = append(res, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		res = append(res, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return res, nil
}
