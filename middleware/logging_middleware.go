package middleware

import (
	"time"

	"callrpc/logger"
	"callrpc/transport"
)

// LoggingMiddleware logs every send once its event arrives: url, status and wall time.
// The event is forwarded unchanged on a fresh channel.
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(next transport.SendFunc) transport.SendFunc {
		return func(method, url string, body []byte) <-chan transport.Event {
			start := time.Now()
			in := next(method, url, body)
			out := make(chan transport.Event, 1)
			go func() {
				ev := <-in
				fields := []interface{}{
					"method", method,
					"url", url,
					"status", ev.Status,
					"duration", time.Since(start),
					"request_bytes", len(body),
					"response_bytes", len(ev.Body),
				}
				if ev.Err != nil {
					fields = append(fields, "error", ev.Err)
				}
				if ev.Failed() {
					log.Warnw("transport send failed", fields...)
				} else {
					log.Debugw("transport send", fields...)
				}
				out <- ev
			}()
			return out
		}
	}
}
