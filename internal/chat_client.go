package internal

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

// DefaultEndpoint is the chat server used when nothing else is configured
const DefaultEndpoint = "http://127.0.0.1:8000"

// NoResponseText replaces an empty reply from the endpoint
const NoResponseText = "[No response]"

// ChatClient sends one user message and returns the assistant's reply
type ChatClient interface {
	Reply(ctx context.Context, text string) (string, error)
}

// HTTPChatClient talks to POST {endpoint}/chat
type HTTPChatClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewHTTPChatClient creates a client for endpoint
func NewHTTPChatClient(endpoint string) *HTTPChatClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPChatClient{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Reply *string `json:"reply"`
}

// Reply posts text and decodes the reply. Any non-success status, malformed
// body or missing reply field is an error.
func (c *HTTPChatClient) Reply(ctx context.Context, text string) (string, error) {
	url := c.Endpoint + "/chat"

	body, err := json.Marshal(chatRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &EndpointError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &EndpointError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &EndpointError{URL: url, Status: resp.StatusCode}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &EndpointError{URL: url, Status: resp.StatusCode, Err: &ParseError{Source: "endpoint", Key: url, Err: err}}
	}
	if decoded.Reply == nil {
		return "", &EndpointError{URL: url, Status: resp.StatusCode, Err: ErrMissingReply}
	}
	if *decoded.Reply == "" {
		return NoResponseText, nil
	}
	return *decoded.Reply, nil
}

// Health checks GET {endpoint}/health
func (c *HTTPChatClient) Health(ctx context.Context) error {
	url := c.Endpoint + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &EndpointError{URL: url, Err: err}
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &EndpointError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &EndpointError{URL: url, Status: resp.StatusCode}
	}
	return nil
}
