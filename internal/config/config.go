package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Email     EmailConfig     `yaml:"email"`
	Stripe    StripeConfig    `yaml:"stripe"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Recaptcha RecaptchaConfig `yaml:"recaptcha"`
	Portal    PortalConfig    `yaml:"portal"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig represents object storage configuration
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicObjects bool   `yaml:"public_objects"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// RendererConfig represents the PDF renderer service configuration
type RendererConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmailConfig represents transactional email configuration
type EmailConfig struct {
	PublicKey         string   `yaml:"public_key"`
	PrivateKey        string   `yaml:"private_key"`
	SenderEmail       string   `yaml:"sender_email"`
	SenderName        string   `yaml:"sender_name"`
	OperatorEmails    []string `yaml:"operator_emails"`
	WelcomeTemplateID int      `yaml:"welcome_template_id"`
	SignupTemplateID  int      `yaml:"signup_template_id"`
}

// StripeConfig represents billing configuration
type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// WhatsAppConfig represents the inbound webhook configuration.
// Outbound credentials live on each business integration.
type WhatsAppConfig struct {
	VerifyToken string `yaml:"verify_token"`
	GraphURL    string `yaml:"graph_url"`
}

// RecaptchaConfig represents signup verification configuration
type RecaptchaConfig struct {
	Secret   string  `yaml:"secret"`
	MinScore float64 `yaml:"min_score"`
}

// PortalConfig represents links embedded in onboarding emails and the
// sync endpoints handed to newly provisioned tenants
type PortalConfig struct {
	BaseURL     string `yaml:"base_url"`
	ServerURL   string `yaml:"server_url"`
	ServerPort  string `yaml:"server_port"`
	SandboxURL  string `yaml:"sandbox_url"`
	SandboxPort string `yaml:"sandbox_port"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if stripeKey := os.Getenv("STRIPE_SECRET_KEY"); stripeKey != "" {
		c.Stripe.SecretKey = stripeKey
	}

	if mjPublic := os.Getenv("MJ_APIKEY_PUBLIC"); mjPublic != "" {
		c.Email.PublicKey = mjPublic
	}

	if mjPrivate := os.Getenv("MJ_APIKEY_PRIVATE"); mjPrivate != "" {
		c.Email.PrivateKey = mjPrivate
	}

	if verifyToken := os.Getenv("WHATSAPP_VERIFY_TOKEN"); verifyToken != "" {
		c.WhatsApp.VerifyToken = verifyToken
	}

	if recaptchaSecret := os.Getenv("RECAPTCHA_SECRET"); recaptchaSecret != "" {
		c.Recaptcha.Secret = recaptchaSecret
	}

	if accessKey := os.Getenv("STORAGE_ACCESS_KEY"); accessKey != "" {
		c.Storage.AccessKey = accessKey
	}

	if secretKey := os.Getenv("STORAGE_SECRET_KEY"); secretKey != "" {
		c.Storage.SecretKey = secretKey
	}
}

// setDefaults fills values the file may omit
func (c *Config) setDefaults() {
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Renderer.Timeout == 0 {
		c.Renderer.Timeout = 30 * time.Second
	}
	if c.Recaptcha.MinScore == 0 {
		c.Recaptcha.MinScore = 0.5
	}
	if c.WhatsApp.GraphURL == "" {
		c.WhatsApp.GraphURL = "https://graph.facebook.com/v17.0"
	}
}
