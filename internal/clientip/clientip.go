package clientip

import (
	"net"
	"net/http"
	"strings"
)

// UnknownBucket is returned when no caller address can be derived. All such
// callers share one rate-limit bucket; an accepted approximation.
const UnknownBucket = "unknown"

// FromRequest extracts the best-effort caller address with proxy-aware
// precedence: first X-Forwarded-For hop, then X-Real-IP, then the socket
// address.
func FromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return normalize(first)
		}
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return normalize(real)
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			return normalize(host)
		}
		return normalize(r.RemoteAddr)
	}

	return UnknownBucket
}

func normalize(ip string) string {
	switch ip {
	case "::1":
		return "127.0.0.1"
	default:
		if strings.HasPrefix(ip, "::ffff:") {
			return ip[7:]
		}
	}
	return ip
}
