// internal/middleware/cors_middleware.go
package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sensolog/internal/config"
)

// CORSMiddleware creates CORS middleware
func CORSMiddleware(config *config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}

	return cors.New(corsConfig)
}
