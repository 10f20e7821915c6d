package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type EmailConfig struct {
	Provider           string `yaml:"provider"`
	APIKey             string `yaml:"api_key"`
	From               string `yaml:"from"`
	Subject            string `yaml:"subject"`
	APIURL             string `yaml:"api_url"`
	HTMLTemplate       string `yaml:"html_template"`
	SESRegion          string `yaml:"ses_region"`
	SESAccessKeyID     string `yaml:"ses_access_key_id"`
	SESSecretAccessKey string `yaml:"ses_secret_access_key"`
}

type SMSConfig struct {
	AccountSID         string  `yaml:"account_sid"`
	AuthToken          string  `yaml:"auth_token"`
	From               string  `yaml:"from"`
	MessagingServiceID string  `yaml:"messaging_service_id"`
	APIURL             string  `yaml:"api_url"`
	RatePerSecond      float64 `yaml:"rate_per_second"`
}

type APIConfig struct {
	Port           string        `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_allowed_origins"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	HTTPMaxRetries int           `yaml:"http_max_retries"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	ServiceName    string        `yaml:"service_name"`

	Email EmailConfig `yaml:"email"`
	SMS   SMSConfig   `yaml:"sms"`
}

var API APIConfig

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// firstEnv returns the first non-empty variable among keys, so older
// deployments using provider-specific names keep working.
func firstEnv(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func defaults() APIConfig {
	return APIConfig{
		Port:           "8080",
		HTTPTimeout:    15 * time.Second,
		HTTPMaxRetries: 2,
		ServiceName:    "notify-api",
		Email: EmailConfig{
			Provider:  "resend",
			Subject:   "Bulk Message",
			APIURL:    "https://api.resend.com",
			SESRegion: "us-east-1",
		},
		SMS: SMSConfig{
			APIURL: "https://api.twilio.com",
		},
	}
}

// LoadAPI reads .env (if present), then CONFIG_FILE (if set), then the
// environment. Later sources win. Provider credentials are optional here;
// the dispatchers report them missing per request.
func LoadAPI() (APIConfig, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return APIConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return APIConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getenv("PORT", cfg.Port)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return APIConfig{}, fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v := os.Getenv("HTTP_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return APIConfig{}, fmt.Errorf("HTTP_MAX_RETRIES: invalid value %q", v)
		}
		cfg.HTTPMaxRetries = n
	}
	cfg.OTLPEndpoint = getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getenv("OTEL_SERVICE_NAME", cfg.ServiceName)

	e := &cfg.Email
	e.Provider = strings.ToLower(getenv("EMAIL_PROVIDER", e.Provider))
	e.APIKey = firstEnv(e.APIKey, "EMAIL_API_KEY", "RESEND_API_KEY")
	e.From = firstEnv(e.From, "EMAIL_FROM", "RESEND_FROM")
	e.Subject = getenv("EMAIL_SUBJECT", e.Subject)
	e.APIURL = getenv("EMAIL_API_URL", e.APIURL)
	e.SESRegion = firstEnv(e.SESRegion, "SES_REGION", "AWS_REGION")
	e.SESAccessKeyID = getenv("SES_ACCESS_KEY_ID", e.SESAccessKeyID)
	e.SESSecretAccessKey = getenv("SES_SECRET_ACCESS_KEY", e.SESSecretAccessKey)
	if e.Provider != "resend" && e.Provider != "ses" {
		return APIConfig{}, fmt.Errorf("EMAIL_PROVIDER: unknown provider %q", e.Provider)
	}

	s := &cfg.SMS
	s.AccountSID = firstEnv(s.AccountSID, "SMS_ACCOUNT_SID", "TWILIO_ACCOUNT_SID", "TWILIO_SID")
	s.AuthToken = firstEnv(s.AuthToken, "SMS_AUTH_TOKEN", "TWILIO_AUTH_TOKEN")
	s.From = firstEnv(s.From, "SMS_FROM", "TWILIO_FROM", "TWILIO_PHONE")
	s.MessagingServiceID = firstEnv(s.MessagingServiceID, "SMS_MESSAGING_SERVICE_ID", "TWILIO_MESSAGING_SERVICE_SID")
	s.APIURL = getenv("SMS_API_URL", s.APIURL)
	if v := os.Getenv("SMS_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return APIConfig{}, fmt.Errorf("SMS_RATE_PER_SECOND: invalid value %q", v)
		}
		s.RatePerSecond = f
	}

	return cfg, nil
}

func MustLoadAPI() {
	cfg, err := LoadAPI()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	API = cfg
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
