package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/megusto0/tgintegration/internal/config"
	"github.com/megusto0/tgintegration/internal/response"
)

// IdentityKey is the gin context key holding the verified user.
const IdentityKey = "identity"

// Middleware verifies the initData carried in the query string or form
// body and aborts with 403 on any failure.
func Middleware(cfg *config.Config) gin.HandlerFunc {
	allowed := cfg.AllowedUsers()
	return func(c *gin.Context) {
		initData := c.Query("initData")
		if initData == "" {
			initData = c.PostForm("initData")
		}
		identity, err := Verify(initData, cfg.TGToken, allowed)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden(reasonFor(err)))
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "malformed_payload"
	}
}
