package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPGenerator forwards prompts to a Gemini-style generateContent endpoint.
type HTTPGenerator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPGenerator(url, apiKey string) *HTTPGenerator {
	return &HTTPGenerator{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("x-goog-api-key", g.apiKey)
	}

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var obj generateResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	var out strings.Builder
	for _, cand := range obj.Candidates {
		for _, p := range cand.Content.Parts {
			out.WriteString(p.Text)
		}
		break
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrUnavailable)
	}
	return text, nil
}
