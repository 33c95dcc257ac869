package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReverseGeocoder resolves device coordinates to an address through a
// nominatim-compatible reverse endpoint. Callers are expected to pass
// coordinates already range-validated by the sanitizer.
type ReverseGeocoder struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewReverseGeocoder(baseURL string, timeout time.Duration, log *zap.Logger) *ReverseGeocoder {
	return &ReverseGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type nominatimResponse struct {
	Address struct {
		Country string `json:"country"`
		State   string `json:"state"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

func (g *ReverseGeocoder) Reverse(ctx context.Context, lat, lon float64) Location {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&format=json&zoom=14", g.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug("Reverse geocode failed", zap.Error(err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.log.Debug("Reverse geocode returned non-200", zap.Int("status", resp.StatusCode))
		return Location{}
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.log.Debug("Reverse geocode decode failed", zap.Error(err))
		return Location{}
	}

	town := body.Address.Town
	if town == "" {
		town = body.Address.Village
	}

	return Location{
		Country: strptr(body.Address.Country),
		Region:  strptr(body.Address.State),
		City:    strptr(body.Address.City),
		Town:    strptr(town),
	}
}
