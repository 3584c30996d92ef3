package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientLimiter хранит отдельный token bucket на каждый IP клиента
type ClientLimiter struct {
	clients map[string]*rate.Limiter
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
}

func NewClientLimiter(limit rate.Limit, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Allow проверяет и расходует токен клиента
func (l *ClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.clients[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimit ограничивает частоту запросов по IP. limit <= 0 отключает ограничение.
func RateLimit(limit rate.Limit, burst int, log *logrus.Logger) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := NewClientLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			log.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"path":      c.FullPath(),
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "слишком много запросов"})
			return
		}
		c.Next()
	}
}
