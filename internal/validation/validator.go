package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the struct-level rules registered.
// Field errors are reported by their JSON names.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(couponStructValidation, CouponRequest{})
	v.RegisterStructValidation(shippingRateStructValidation, ShippingRateRequest{})
	return v
}

func couponStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CouponRequest)
	if req.DiscountType == "percentage" && req.DiscountValue > 100 {
		sl.ReportError(req.DiscountValue, "discountValue", "DiscountValue", "max_percentage", "100")
	}
}

func shippingRateStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ShippingRateRequest)
	if req.MinOrderCents != nil && req.MaxOrderCents != nil && *req.MinOrderCents > *req.MaxOrderCents {
		sl.ReportError(req.MaxOrderCents, "maxOrderCents", "MaxOrderCents", "band_order", "")
	}
	if req.EstimatedDaysMax < req.EstimatedDaysMin {
		sl.ReportError(req.EstimatedDaysMax, "estimatedDaysMax", "EstimatedDaysMax", "days_order", "")
	}
}
