package server

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

// limitWrites spends one token from the caller's bucket for action.
// Limiter failures admit the request.
func (s *Server) limitWrites(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		actor, ok := s.actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		res, err := s.limiter.AllowActor(c.Request.Context(), actor.ID, action)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("action", action), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, withDetails(ErrRateLimited, map[string]any{
				"retry_after_seconds": seconds,
				"limit":               res.Limit,
			}))
			return
		}
		c.Next()
	}
}
