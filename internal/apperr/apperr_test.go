package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type couponErr struct{}

func (couponErr) Error() string   { return "Coupon has expired" }
func (couponErr) ErrorKind() Kind { return KindValidation }

func TestKindMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", Validation("code is required"), http.StatusBadRequest, "code is required"},
		{"auth", Auth("missing token"), http.StatusUnauthorized, "missing token"},
		{"forbidden", Forbidden("not an admin"), http.StatusForbidden, "not an admin"},
		{"not found", NotFound("order not found"), http.StatusNotFound, "order not found"},
		{"conflict", Conflict("coupon code already exists"), http.StatusBadRequest, "coupon code already exists"},
		{"upstream", Upstream("refund failed", errors.New("card_declined")), http.StatusInternalServerError, "refund failed: card_declined"},
		{"wrapped kinded", errors.Wrap(couponErr{}, "evaluate"), http.StatusBadRequest, "Coupon has expired"},
		{"plain", errors.New("dynamo exploded"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, KindOf(tc.err).HTTPStatus())
			assert.Equal(t, tc.msg, PublicMessage(tc.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Upstream("processor", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "processor: boom", err.Error())
}
