package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FocuswithJustin/DeepEL/internal/cache"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// CacheTTL bounds how long a retrieval answer is reused.
const CacheTTL = 30 * time.Minute

// HTTPCandidateGenerator queries a retrieval service over HTTP. It posts
// {context_left, mention, context_right, top_k} and expects
// {"candidates": [...]}. Identical requests are answered from Cache when set.
type HTTPCandidateGenerator struct {
	URL    string
	Client *http.Client
	Cache  *cache.TTLCache[candidateRequest, []string]
}

// NewHTTPCandidateGenerator returns a generator whose requests are logged
// and tagged with a request id.
func NewHTTPCandidateGenerator(url string, timeout time.Duration) *HTTPCandidateGenerator {
	return &HTTPCandidateGenerator{
		URL:    url,
		Client: logging.NewClient(timeout),
		Cache:  cache.New[candidateRequest, []string](CacheTTL),
	}
}

type candidateRequest struct {
	MentionContext
	TopK int `json:"top_k"`
}

type candidateResponse struct {
	Candidates []string `json:"candidates"`
}

// Candidates implements CandidateGenerator.
func (g *HTTPCandidateGenerator) Candidates(ctx context.Context, mc MentionContext, k int) ([]string, error) {
	key := candidateRequest{MentionContext: mc, TopK: k}
	if g.Cache != nil {
		if hit, ok := g.Cache.Get(key); ok {
			return hit, nil
		}
	}
	body, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		logging.CollaboratorError(ctx, "retrieval", "candidates", err, "url", g.URL)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("retrieval service returned %s: %s", resp.Status, bytes.TrimSpace(msg))
		logging.CollaboratorError(ctx, "retrieval", "candidates", err, "url", g.URL)
		return nil, err
	}

	var out candidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}
	if g.Cache != nil {
		g.Cache.Set(key, out.Candidates)
	}
	return out.Candidates, nil
}
