package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_ForwardedForFirstHop(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	req.Header.Set("X-Real-IP", "198.51.100.9")

	assert.Equal(t, "203.0.113.7", FromRequest(req))
}

func TestFromRequest_RealIPFallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.9")

	assert.Equal(t, "198.51.100.9", FromRequest(req))
}

func TestFromRequest_SocketAddress(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.44:51234"

	assert.Equal(t, "192.0.2.44", FromRequest(req))
}

func TestFromRequest_UnknownBucket(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = ""

	assert.Equal(t, UnknownBucket, FromRequest(req))
}

func TestFromRequest_NormalizesMappedIPv6(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "::ffff:192.0.2.10")

	assert.Equal(t, "192.0.2.10", FromRequest(req))

	req.Header.Set("X-Real-IP", "::1")
	assert.Equal(t, "127.0.0.1", FromRequest(req))
}
