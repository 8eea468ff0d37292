// Package middleware wraps a transport.SendFunc with cross-cutting behaviour.
//
// Middlewares compose as an onion around the transport:
//
//	Chain(A, B)(send) → A(B(send))
//	dispatch order: A → B → send; the Event flows back through B, then A.
package middleware

import (
	"callrpc/transport"
)

type Middleware func(next transport.SendFunc) transport.SendFunc

// Chain composes middlewares; the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next transport.SendFunc) transport.SendFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Wrap applies middlewares to a Transport.
func Wrap(t transport.Transport, middlewares ...Middleware) transport.SendFunc {
	return Chain(middlewares...)(t.Send)
}
