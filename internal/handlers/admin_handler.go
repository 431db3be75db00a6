package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

func (a *api) registerAdminRoutes(g *gin.RouterGroup) {
	g.POST("/refunds", a.refund)
	g.GET("/orders", a.listOrders)
	g.GET("/orders/:id", a.getOrder)
	g.PATCH("/orders/:id/fulfillment", a.updateFulfillment)

	g.GET("/coupons", a.listCoupons)
	g.POST("/coupons", a.createCoupon)
	g.GET("/coupons/:code", a.getCoupon)
	g.PUT("/coupons/:code", a.updateCoupon)
	g.DELETE("/coupons/:code", a.deleteCoupon)

	g.GET("/shipping-rates", a.listShippingRates)
	g.POST("/shipping-rates", a.createShippingRate)
	g.GET("/shipping-rates/:id", a.getShippingRate)
	g.PUT("/shipping-rates/:id", a.updateShippingRate)
	g.DELETE("/shipping-rates/:id", a.deleteShippingRate)

	g.GET("/products", a.adminListProducts)
	g.POST("/products", a.createProduct)
	g.GET("/products/:id", a.adminGetProduct)
	g.PUT("/products/:id", a.updateProduct)
}

func (a *api) refund(c *gin.Context) {
	var req validation.RefundRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	out, err := a.Orders.Refund(c.Request.Context(), orders.RefundCommand{
		OrderID:     req.OrderID,
		AmountCents: req.Amount,
		Reason:      req.Reason,
		Actor:       actorFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) listOrders(c *gin.Context) {
	list, err := a.Orders.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (a *api) getOrder(c *gin.Context) {
	view, err := a.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *api) updateFulfillment(c *gin.Context) {
	var req validation.FulfillmentRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	o, err := a.Orders.UpdateFulfillment(c.Request.Context(), orders.FulfillmentCommand{
		OrderID:        c.Param("id"),
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		Note:           req.Note,
		Actor:          actorFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// coupons

func (a *api) listCoupons(c *gin.Context) {
	list, err := a.Coupons.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": list})
}

func (a *api) getCoupon(c *gin.Context) {
	cp, err := a.Coupons.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (a *api) createCoupon(c *gin.Context) {
	var req validation.CouponRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	cp, err := a.Coupons.Create(c.Request.Context(), req.Coupon())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}

func (a *api) updateCoupon(c *gin.Context) {
	var req validation.CouponRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	cp, err := a.Coupons.Update(c.Request.Context(), c.Param("code"), req.Coupon())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (a *api) deleteCoupon(c *gin.Context) {
	if err := a.Coupons.Delete(c.Request.Context(), c.Param("code")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// shipping rates

func (a *api) listShippingRates(c *gin.Context) {
	list, err := a.Shipping.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": list})
}

func (a *api) getShippingRate(c *gin.Context) {
	r, err := a.Shipping.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *api) createShippingRate(c *gin.Context) {
	var req validation.ShippingRateRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	r, err := a.Shipping.Create(c.Request.Context(), req.Rate())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (a *api) updateShippingRate(c *gin.Context) {
	var req validation.ShippingRateRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	r, err := a.Shipping.Update(c.Request.Context(), c.Param("id"), req.Rate())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *api) deleteShippingRate(c *gin.Context) {
	if err := a.Shipping.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// products

func (a *api) adminListProducts(c *gin.Context) {
	list, err := a.Products.List(c.Request.Context(), false)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (a *api) adminGetProduct(c *gin.Context) {
	p, err := a.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *api) createProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	p, err := a.Products.Create(c.Request.Context(), req.Product())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *api) updateProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	p, err := a.Products.Update(c.Request.Context(), c.Param("id"), req.Product(), req.Stock)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
