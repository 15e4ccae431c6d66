package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterUploads serves the local upload directory under /uploads. Files come
// from anonymous respondents, so they are always downloaded, never rendered
// on this origin.
func RegisterUploads(r *gin.Engine, dir string) {
	group := r.Group("/uploads", uploadHeaders())
	group.StaticFS("/", gin.Dir(dir, false))
}

func uploadHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("Content-Disposition", "attachment")
		header.Set("Content-Security-Policy", "default-src 'none'; sandbox")
		header.Set("Cross-Origin-Resource-Policy", "cross-origin")
		c.Next()
	}
}
