package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	RunLocal bool   `envconfig:"RUN_LOCAL" default:"false"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"dynamodb"`

	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint string `envconfig:"AWS_ENDPOINT_OVERRIDE"`

	OrdersTable        string `envconfig:"ORDERS_TABLE" default:"orders"`
	OrderHistoryTable  string `envconfig:"ORDER_HISTORY_TABLE" default:"order_status_history"`
	IdempotencyTable   string `envconfig:"IDEMPOTENCY_TABLE" default:"idempotency"`
	ProductsTable      string `envconfig:"PRODUCTS_TABLE" default:"products"`
	CouponsTable       string `envconfig:"COUPONS_TABLE" default:"coupons"`
	ShippingRatesTable string `envconfig:"SHIPPING_RATES_TABLE" default:"shipping_rates"`
	CartsTable         string `envconfig:"CARTS_TABLE" default:"carts"`

	NotificationsQueueURL string `envconfig:"NOTIFICATIONS_QUEUE_URL"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL  string `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CheckoutCancelURL   string `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:3000/cart"`
	Currency            string `envconfig:"CURRENCY" default:"usd"`

	AdminAPIToken string `envconfig:"ADMIN_API_TOKEN"`

	EmailFrom        string `envconfig:"EMAIL_FROM" default:"orders@example.com"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"Storefront"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"48h"`
	CartTTL        time.Duration `envconfig:"CART_TTL" default:"720h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "load config")
	}
	if cfg.StoreBackend != BackendDynamoDB && cfg.StoreBackend != BackendMemory {
		return cfg, errors.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}
