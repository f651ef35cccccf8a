package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters lazily tracks one token bucket per client IP.
type clientLimiters struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.RLock()
	limiter, ok := cl.limiters[ip]
	cl.mu.RUnlock()
	if ok {
		return limiter
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if limiter, ok = cl.limiters[ip]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(cl.r, cl.b)
	cl.limiters[ip] = limiter
	return limiter
}

// RateLimiter rejects clients exceeding r requests per second (burst b) with
// 429. The kiosk's own UI and forwarder are well under any sane limit; this
// guards against something on the venue network hammering the API.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	cl := &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
	return func(c *gin.Context) {
		if !cl.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
