package validation

import (
	"fmt"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

// Error is a failed request validation. Fields maps JSON paths to messages.
type Error struct {
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string          { return e.Message }
func (e *Error) ErrorKind() apperr.Kind { return apperr.KindValidation }

// BindAndValidate binds the JSON body into out and runs validation. The
// returned error is a *Error the handler passes to its error responder.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return &Error{Message: "Invalid request body", Fields: map[string]string{"body": err.Error()}}
	}
	if err := v.Struct(out); err != nil {
		return &Error{Message: "Validation failed", Fields: validationErrorsToMap(err)}
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// fieldPath drops the top-level struct name: "CheckoutRequest.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "unique":
		return "must not repeat " + fe.Param()
	case "max_percentage":
		return "percentage discount cannot exceed 100"
	case "band_order":
		return "must not be below minOrderCents"
	case "days_order":
		return "must not be below estimatedDaysMin"
	default:
		return fe.Error()
	}
}
