package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"digistore-backend/internal/shared/response"
	"digistore-backend/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope instead of a dropped
// connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(
					"panic in "+c.Request.Method+" "+c.Request.URL.Path,
					fmt.Errorf("%v (request_id=%s)", r, c.GetString("request_id")),
				)
				response.InternalServerError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
