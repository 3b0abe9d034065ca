package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/utils"
)

// multipartOverhead leaves room for boundaries and part headers around the file.
const multipartOverhead = 1 << 20

// UploadBodyLimit is the largest request body accepted on the proxy upload route.
func UploadBodyLimit(config *config.EnvConfig) int64 {
	largest := config.Media.MaxImageMB
	if config.Media.MaxAudioMB > largest {
		largest = config.Media.MaxAudioMB
	}
	return largest*1024*1024 + multipartOverhead
}

func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			utils.JSON400(c, fmt.Sprintf("file too large: request body exceeds the upload limit of %d bytes", limit))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
