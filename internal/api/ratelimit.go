package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mr1hm/safespot-alerts/internal/config"
)

// RateLimitMiddleware applies one global token bucket to every route except
// the exempt route patterns. Rejected requests are told how long until the
// next token.
func RateLimitMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	burst := cfg.RateLimitBurst
	if burst < cfg.RateLimitRPS {
		burst = cfg.RateLimitRPS
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)

	exempt := make(map[string]bool, len(cfg.RateLimitExempt))
	for _, p := range cfg.RateLimitExempt {
		exempt[p] = true
	}

	return func(c *gin.Context) {
		if exempt[c.FullPath()] {
			c.Next()
			return
		}

		r := limiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			secs := int(delay.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
