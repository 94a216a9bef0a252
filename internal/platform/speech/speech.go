// Package speech wraps the external speech API: audio in, text out and
// the reverse. Calls are single-shot; callers retry by repeating the
// request.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the boundary to the speech API.
type Client interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// HTTPClient posts audio and text to transcribe/synthesize endpoints.
type HTTPClient struct {
	transcribeURL string
	synthesizeURL string
	apiKey        string
	http          *http.Client
}

func NewHTTPClient(transcribeURL, synthesizeURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		transcribeURL: transcribeURL,
		synthesizeURL: synthesizeURL,
		apiKey:        apiKey,
		http:          &http.Client{Timeout: 60 * time.Second},
	}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (c *HTTPClient) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transcribeURL, audio)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call transcribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe returned status %d", resp.StatusCode)
	}

	var decoded transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return decoded.Text, nil
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

func (c *HTTPClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.synthesizeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call synthesize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesize returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
