package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// ConnectionsLimiter caps the number of concurrently leased connections.
// Applied to the websocket endpoint only; plain requests are cheap enough to
// leave to the rate limiter.
type ConnectionsLimiter struct {
	mux     sync.Mutex
	current int
	limit   int
}

func NewConnectionsLimiter(limit int) *ConnectionsLimiter {
	return &ConnectionsLimiter{limit: limit}
}

// LeaseConnection reserves a slot and returns its release func, or an error
// when the cap is reached.
func (l *ConnectionsLimiter) LeaseConnection(r *http.Request) (func(), error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	if l.current >= l.limit {
		return nil, fmt.Errorf("connections limit reached: %d", l.limit)
	}
	l.current++

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mux.Lock()
			l.current--
			l.mux.Unlock()
		})
	}, nil
}

// ConnectionsLimitMiddleware rejects requests over the cap with 429.
func ConnectionsLimitMiddleware(counter *ConnectionsLimiter, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}
			release, err := counter.LeaseConnection(c.Request())
			if err != nil {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
			}
			defer release()
			return next(c)
		}
	}
}
