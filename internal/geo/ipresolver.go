package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IPResolver resolves a network address to city-level location through an
// ip-api.com compatible endpoint.
type IPResolver struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewIPResolver(baseURL string, timeout time.Duration, log *zap.Logger) *IPResolver {
	return &IPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// Lookup returns the coarse location for ip. Private, loopback, and
// unparsable addresses resolve to the zero Location without a provider call.
func (r *IPResolver) Lookup(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return Location{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.baseURL, ip), nil)
	if err != nil {
		return Location{}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Debug("IP location lookup failed", zap.String("ip", ip), zap.Error(err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Debug("IP location lookup returned non-200", zap.Int("status", resp.StatusCode))
		return Location{}
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.log.Debug("IP location response decode failed", zap.Error(err))
		return Location{}
	}
	if body.Status != "success" {
		return Location{}
	}

	return Location{
		Country: strptr(body.Country),
		Region:  strptr(body.RegionName),
		City:    strptr(body.City),
	}
}
