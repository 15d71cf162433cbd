// Package ollama provides a caption model backend over the Ollama API.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// CaptionPrompt asks the vision model for a caption only, no commentary.
const CaptionPrompt = `Describe this image in one short factual sentence. ` +
	`Respond with the sentence only: no preamble, no quotes, no markdown.`

const defaultTimeout = 300 * time.Second

// Client wraps the Ollama API client as a caption backend. Decoding
// parameters are fixed at construction so captions are deterministic for a
// given model and input.
type Client struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewClient creates a caption client for the given Ollama server URL and model.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Base URL only; the api client appends its own paths.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
		options: map[string]any{
			"temperature": 0.0,
			"seed":        0,
		},
	}, nil
}

// Caption generates a one-sentence description of the image.
func (c *Client) Caption(ctx context.Context, imgB64 string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: CaptionPrompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Options: c.options,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %v", err)
	}

	caption := sanitizeCaption(responseContent)
	if caption == "" {
		return "", fmt.Errorf("empty caption from ollama")
	}
	return caption, nil
}

// sanitizeCaption strips quotes, fences and surrounding whitespace that
// vision models occasionally wrap captions in.
func sanitizeCaption(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")
	raw = strings.Trim(raw, `"'`)
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
