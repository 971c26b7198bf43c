package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/megusto0/tgintegration/internal"
	"github.com/megusto0/tgintegration/internal/media"
	"github.com/megusto0/tgintegration/internal/nightscout"
	"github.com/megusto0/tgintegration/internal/response"
	"github.com/megusto0/tgintegration/internal/treatment"
)

// HandleError maps a domain error onto the HTTP taxonomy and logs it.
// Client errors carry the error text; upstream failures do not, to keep
// remote details out of responses.
func HandleError(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString("request_id")

	switch {
	case errors.Is(err, treatment.ErrInvalidValue):
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(400, response.BadRequest(err.Error()))
	case errors.Is(err, nightscout.ErrNotFound):
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(404, response.NotFound(msg))
	case errors.Is(err, media.ErrTooLarge):
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(413, response.PayloadTooLarge(msg))
	case errors.Is(err, media.ErrUnsupportedType):
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(415, response.UnsupportedMediaType(msg))
	case errors.Is(err, nightscout.ErrUpstream):
		logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(502, response.Upstream(msg))
	default:
		logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
		c.JSON(500, response.InternalError(msg))
	}
}
