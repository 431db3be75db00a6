package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/cart"
	"github.com/imrishuroy/go-storefront/internal/checkout"
	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/payments"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

// HandlerConfig groups the services behind the HTTP API.
type HandlerConfig struct {
	Coupons   *coupons.Service
	Evaluator *coupons.Evaluator
	Shipping  *shipping.Service
	Selector  *shipping.Selector
	Products  *products.Service
	Carts     *cart.Service
	Checkout  *checkout.Service
	Orders    *orders.Service
	Verifier  *payments.Verifier

	AdminToken string
	Log        logrus.FieldLogger
}

type api struct {
	HandlerConfig
	v *validatorv10.Validate
}

// NewRouter builds the gin engine with every public and admin route.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	a := &api{HandlerConfig: cfg, v: validation.New()}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a.registerStorefrontRoutes(r)
	a.registerOrdersRoutes(r)
	r.POST("/webhooks/stripe", a.stripeWebhook)

	admin := r.Group("/admin", adminAuth(cfg.AdminToken))
	a.registerAdminRoutes(admin)
	return r
}
