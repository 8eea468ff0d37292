package middleware

import (
	"golang.org/x/time/rate"

	"callrpc/transport"
)

// RateLimitMiddleware applies a token bucket to outgoing sends. A rejected send never reaches
// the network; it resolves at once with a failure event carrying transport.ErrRateLimited.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next transport.SendFunc) transport.SendFunc {
		return func(method, url string, body []byte) <-chan transport.Event {
			if !limiter.Allow() {
				return transport.Immediate(transport.Event{Err: transport.ErrRateLimited})
			}
			return next(method, url, body)
		}
	}
}
