package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront/internal/validation"
)

func (a *api) registerStorefrontRoutes(r *gin.Engine) {
	r.POST("/coupons/validate", a.validateCoupon)
	r.POST("/shipping/rates", a.shippingRates)

	r.GET("/products", a.listProducts)
	r.GET("/products/:id", a.getProduct)

	carts := r.Group("/carts/:cartId")
	carts.GET("", a.getCart)
	carts.DELETE("", a.clearCart)
	carts.POST("/items", a.addCartItem)
	carts.PATCH("/items/:productId", a.setCartQuantity)
	carts.DELETE("/items/:productId", a.removeCartItem)
}

func (a *api) validateCoupon(c *gin.Context) {
	var req validation.CouponValidateRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	ev, err := a.Evaluator.Evaluate(c.Request.Context(), req.Code, req.SubtotalCents)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"coupon":        ev.Coupon.Summary(),
		"discountCents": ev.DiscountCents,
	})
}

func (a *api) shippingRates(c *gin.Context) {
	var req validation.ShippingRatesRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	opts, err := a.Selector.Select(c.Request.Context(), req.SubtotalCents)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": opts})
}

func (a *api) listProducts(c *gin.Context) {
	list, err := a.Products.List(c.Request.Context(), true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (a *api) getProduct(c *gin.Context) {
	p, err := a.Products.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *api) getCart(c *gin.Context) {
	cart, err := a.Carts.Get(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.Document())
}

func (a *api) clearCart(c *gin.Context) {
	if err := a.Carts.Clear(c.Request.Context(), c.Param("cartId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) addCartItem(c *gin.Context) {
	var req validation.CartItemRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	cart, err := a.Carts.AddItem(c.Request.Context(), c.Param("cartId"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.Document())
}

func (a *api) setCartQuantity(c *gin.Context) {
	var req validation.QuantityRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	cart, err := a.Carts.SetQuantity(c.Request.Context(), c.Param("cartId"), c.Param("productId"), *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.Document())
}

func (a *api) removeCartItem(c *gin.Context) {
	cart, err := a.Carts.RemoveItem(c.Request.Context(), c.Param("cartId"), c.Param("productId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.Document())
}
