package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

// writeError maps err onto its status and the {"error": ...} body. Internal
// errors are logged and hidden.
func writeError(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(c *gin.Context, err error) (int, gin.H) {
	kind := apperr.KindOf(err)
	log := loggerFrom(c).WithField("kind", kind.String())
	switch kind {
	case apperr.KindInternal:
		log.WithError(err).Error("internal error")
	case apperr.KindUpstream:
		log.WithError(err).Warn("upstream failure")
	}

	body := gin.H{"error": apperr.PublicMessage(err)}
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	return kind.HTTPStatus(), body
}

// writeReplay sends an idempotent response: the stored JSON body when there
// is one, a message otherwise.
func writeReplay(c *gin.Context, r *idempotency.Replay) {
	if r.Body != nil {
		c.Data(r.Status, "application/json; charset=utf-8", r.Body)
		return
	}
	if r.Status >= 400 {
		c.JSON(r.Status, gin.H{"error": r.Message})
		return
	}
	c.JSON(r.Status, gin.H{"message": r.Message})
}
