// Package protocol holds the wire-level constants of the JSON-over-HTTP RPC protocol.
//
// Two status layers exist and must not be confused:
//
//	HTTP status    – transport level, decided by the web server (network / proxy problems)
//	status_code    – application level, carried inside the response envelope
//
// A call whose HTTP exchange succeeded can still carry a failing status_code.
package protocol

// Every call is a single POST of one JSON envelope.
const (
	HTTPMethod  = "POST"
	ContentType = "application/json"
)

// Application status codes used by the bundled server. Clients only rely on the 2xx window.
const (
	StatusOK            = 200
	StatusBadRequest    = 400
	StatusNotFound      = 404
	StatusInternalError = 500
)

// IsSuccess reports whether an application status_code means success: 200 <= code < 300.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
