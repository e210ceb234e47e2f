package config

import (
	"errors"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Stripe settings. The secret key may be read from Secret Manager instead
	// of the environment when STRIPE_SECRET_KEY_SECRET names a secret.
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY"`
	StripeSecretKeySecret string `envconfig:"STRIPE_SECRET_KEY_SECRET"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceID         string `envconfig:"STRIPE_PRICE_ID"`
	StripeSuccessURL      string `envconfig:"STRIPE_SUCCESS_URL"`
	StripeCancelURL       string `envconfig:"STRIPE_CANCEL_URL"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL"`

	// Plan & invoicing
	PaidPlan      string  `envconfig:"PAID_PLAN" default:"premium"`
	PlanPriceHT   float64 `envconfig:"PLAN_PRICE_HT" default:"59.99"`
	VATRate       float64 `envconfig:"VAT_RATE" default:"20"`
	Currency      string  `envconfig:"CURRENCY" default:"EUR"`
	SellerName    string  `envconfig:"SELLER_NAME" default:"GaragePro"`
	SellerAddress string  `envconfig:"SELLER_ADDRESS"`
	SellerVATID   string  `envconfig:"SELLER_VAT_ID"`
	PublicBaseURL string  `envconfig:"PUBLIC_BASE_URL" required:"true"`

	// Email
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"GaragePro <factures@garagepro.app>"`

	// Optional S3-compatible archive for rendered invoices
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"auto"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Google Cloud
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	GCPCredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubBillingTopic string `envconfig:"PUBSUB_BILLING_TOPIC"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StripeSecretKey == "" && c.StripeSecretKeySecret == "" {
		return errors.New("one of STRIPE_SECRET_KEY or STRIPE_SECRET_KEY_SECRET is required")
	}
	if c.StripeSecretKeySecret != "" && c.GCPProjectID == "" {
		return errors.New("GCP_PROJECT_ID is required to read STRIPE_SECRET_KEY_SECRET")
	}
	if c.PlanPriceHT <= 0 {
		return errors.New("PLAN_PRICE_HT must be positive")
	}
	if c.VATRate < 0 {
		return errors.New("VAT_RATE must not be negative")
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return nil
}

// IsDevelopment reports whether the service runs against local infrastructure.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ArchiveEnabled reports whether rendered invoices should be copied to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// EventsEnabled reports whether billing events are published to Pub/Sub.
func (c *Config) EventsEnabled() bool {
	return c.PubSubBillingTopic != "" && c.GCPProjectID != ""
}
