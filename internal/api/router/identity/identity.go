package identity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// contextKey is where the authenticated uploader id lives on the gin context.
// Authentication itself happens upstream; this middleware only extracts the
// principal the gateway forwards.
const contextKey = "uploader_id"

// HeaderName carries the authenticated uploader's numeric id
const HeaderName = "X-Uploader-ID"

// Middleware extracts the uploader identity from the request headers
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderName)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "uploader identity is required",
			})
			return
		}

		uploaderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || uploaderID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "uploader identity is invalid",
			})
			return
		}

		c.Set(contextKey, uploaderID)
		c.Next()
	}
}

// UploaderID returns the uploader id set by Middleware, or zero when unset
func UploaderID(c *gin.Context) int64 {
	id, _ := c.Get(contextKey)
	uploaderID, _ := id.(int64)
	return uploaderID
}
