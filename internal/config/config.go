package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env           string
	Port          string
	DBPath        string
	LogLevel      string
	CSRFKey       []byte
	SessionKey    []byte
	CookieDomain  string
	CookieSecure  bool
	BrandName     string
	PublicBaseURL string

	PayUKey            string
	PayUSalt           string
	PayUURL            string
	PayUVerifyCallback bool

	MasterEmail    string
	MasterPassword string

	UploadDir     string
	UploadBaseURL string
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8585")
	v.SetDefault("DB_PATH", "./kouprey.db")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BRAND_NAME", "Kouprey")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("PAYU_KEY", "")
	v.SetDefault("PAYU_SALT", "")
	v.SetDefault("PAYU_URL", "https://test.payu.in/_payment")
	v.SetDefault("PAYU_VERIFY_CALLBACK", false)
	v.SetDefault("MASTER_EMAIL", "")
	v.SetDefault("MASTER_PASSWORD", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_BASE_URL", "/uploads")
}

// LoadConfig reads settings from the environment, optionally layered over a
// YAML file named by CONFIG_FILE (default ./config.yaml, skipped if absent).
func LoadConfig() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		Port:               v.GetString("PORT"),
		DBPath:             v.GetString("DB_PATH"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		CookieDomain:       v.GetString("COOKIE_DOMAIN"),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		BrandName:          v.GetString("BRAND_NAME"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		PayUKey:            v.GetString("PAYU_KEY"),
		PayUSalt:           v.GetString("PAYU_SALT"),
		PayUURL:            v.GetString("PAYU_URL"),
		PayUVerifyCallback: v.GetBool("PAYU_VERIFY_CALLBACK"),
		MasterEmail:        strings.ToLower(strings.TrimSpace(v.GetString("MASTER_EMAIL"))),
		MasterPassword:     v.GetString("MASTER_PASSWORD"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		UploadBaseURL:      strings.TrimRight(v.GetString("UPLOAD_BASE_URL"), "/"),
	}

	// CSRF Key (critical for security)
	cfg.CSRFKey = secretKey(v.GetString("CSRF_KEY"), "CSRF_KEY")
	// Session Key (critical for security)
	cfg.SessionKey = secretKey(v.GetString("SESSION_KEY"), "SESSION_KEY")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT setting. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}

	if cfg.PayUKey == "" || cfg.PayUSalt == "" {
		slog.Warn("PAYU_KEY or PAYU_SALT not set. Checkout will refuse to start payments until both are configured.")
	}

	return cfg
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// BaseURL is the public origin used for provider callback URLs. It falls
// back to localhost on the configured port.
func (c *Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	return "http://localhost:" + c.Port
}

func secretKey(encoded, name string) []byte {
	if encoded == "" {
		slog.Warn(name + " not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		// Only here so startup does not panic; never rely on it.
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		padded := make([]byte, n)
		copy(padded, fallbackKey)
		return padded
	}
	return b
}
