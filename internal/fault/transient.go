package fault

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient returns true if the error looks like a temporary network or
// server-side condition. The generation orchestrator uses this to decide
// whether a failed provider call deserves one retry before the segment is
// counted as failed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wire clients surface non-2xx responses as errors carrying the status
	// code. Classify those by status rather than by message text.
	var statusErr interface{ HTTPStatus() int }
	if errors.As(err, &statusErr) {
		return IsTransientHTTPStatus(statusErr.HTTPStatus())
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// condition that may clear on its own.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
