package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/cart"
	"github.com/imrishuroy/go-storefront/internal/checkout"
	"github.com/imrishuroy/go-storefront/internal/config"
	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/handlers"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/memstore"
	"github.com/imrishuroy/go-storefront/internal/notify"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/payments"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
)

type orderStore interface {
	orders.Repository
	checkout.OrderWriter
}

type keyStore interface {
	orders.EventLog
	checkout.KeyStore
}

// backend is one persistence implementation for every table.
type backend struct {
	orders   orderStore
	keys     keyStore
	products products.Repository
	coupons  coupons.Repository
	rates    shipping.Repository
	carts    cart.Repository
}

func dynamoBackend(client aws.DynamoDBAPI, cfg config.Config) backend {
	return backend{
		orders: orders.NewStore(client, orders.Tables{
			Orders:      cfg.OrdersTable,
			History:     cfg.OrderHistoryTable,
			Idempotency: cfg.IdempotencyTable,
			Products:    cfg.ProductsTable,
			Coupons:     cfg.CouponsTable,
		}, cfg.IdempotencyTTL),
		keys:     idempotency.NewStore(client, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		products: products.NewStore(client, cfg.ProductsTable),
		coupons:  coupons.NewStore(client, cfg.CouponsTable),
		rates:    shipping.NewStore(client, cfg.ShippingRatesTable),
		carts:    cart.NewStore(client, cfg.CartsTable, cfg.CartTTL),
	}
}

func memoryBackend(cfg config.Config) backend {
	st := memstore.New(cfg.IdempotencyTTL)
	return backend{
		orders:   st.Orders(),
		keys:     st.Idempotency(),
		products: st.Products(),
		coupons:  st.Coupons(),
		rates:    st.ShippingRates(),
		carts:    st.Carts(),
	}
}

func buildRouter(ctx context.Context, cfg config.Config, log *logrus.Entry) (*gin.Engine, error) {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		be       backend
		notifier orders.Notifier
		metrics  *aws.Metrics
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on restart")
		be = memoryBackend(cfg)
	default:
		clients, err := aws.NewAWSClients(ctx, aws.Options{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
		if err != nil {
			return nil, errors.Wrap(err, "init aws clients")
		}
		be = dynamoBackend(clients.DynamoDB, cfg)
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, log)
		if cfg.NotificationsQueueURL != "" {
			notifier = notify.NewNotifier(aws.NewPublisher(clients.SQS, cfg.NotificationsQueueURL))
		}
	}
	if notifier == nil {
		log.Warn("NOTIFICATIONS_QUEUE_URL not set; confirmation emails are disabled")
	}
	if cfg.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN not set; admin routes reject every request")
	}

	stripeAPI := payments.NewClient(cfg.StripeSecretKey)
	productSvc := products.NewService(be.products)
	evaluator := coupons.NewEvaluator(be.coupons)
	selector := shipping.NewSelector(be.rates)
	cartSvc := cart.NewService(be.carts, productSvc)

	return handlers.NewRouter(handlers.HandlerConfig{
		Coupons:   coupons.NewService(be.coupons),
		Evaluator: evaluator,
		Shipping:  shipping.NewService(be.rates),
		Selector:  selector,
		Products:  productSvc,
		Carts:     cartSvc,
		Checkout: checkout.NewService(checkout.Deps{
			Catalog:  productSvc,
			Coupons:  evaluator,
			Shipping: selector,
			Orders:   be.orders,
			Keys:     be.keys,
			Payments: payments.NewCheckout(stripeAPI.CheckoutSessions, payments.CheckoutConfig{
				SuccessURL: cfg.CheckoutSuccessURL,
				CancelURL:  cfg.CheckoutCancelURL,
				Currency:   cfg.Currency,
			}),
			Metrics: metrics,
			Log:     log,
		}),
		Orders: orders.NewService(orders.Deps{
			Repo:     be.orders,
			Events:   be.keys,
			Notifier: notifier,
			Carts:    cartSvc,
			Refunder: payments.NewRefunder(stripeAPI.Refunds),
			Metrics:  metrics,
			Log:      log,
		}),
		Verifier:   payments.NewVerifier(cfg.StripeWebhookSecret),
		AdminToken: cfg.AdminAPIToken,
		Log:        log,
	}), nil
}
