package logging

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// generateRequestID generates a random request ID.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp if random generation fails
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}

// Transport is an http.RoundTripper that tags each outbound request with an
// X-Request-ID header and logs it once the response headers arrive.
type Transport struct {
	// Base performs the request. Nil means http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = GetRequestID(ctx)
	}
	if requestID == "" {
		requestID = generateRequestID()
	}
	ctx = WithRequestID(ctx, requestID)

	// RoundTrippers must not modify the caller's request.
	req := r.Clone(ctx)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		WarnContext(ctx, "http_request_failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	HTTPRequestContext(ctx, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// NewClient returns an http.Client whose requests go through Transport.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{},
	}
}
