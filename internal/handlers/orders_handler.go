package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront/internal/validation"
)

func (a *api) registerOrdersRoutes(r *gin.Engine) {
	r.POST("/checkout", a.checkout)
	r.GET("/orders/:orderNumber", a.trackOrder)
}

// checkout places an order under the client's Idempotency-Key. Repeats of a
// key get the first response back, 202 while it is still running, or 500 if
// it failed.
func (a *api) checkout(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}

	replay, err := a.Checkout.Checkout(c.Request.Context(), c.GetHeader("Idempotency-Key"), req.Checkout())
	if err != nil {
		writeError(c, err)
		return
	}
	writeReplay(c, replay)
}

func (a *api) trackOrder(c *gin.Context) {
	view, err := a.Orders.Track(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
