// Package clipserver provides an embedding model backend over an HTTP
// CLIP-style inference server. The server exposes pooled image embeddings,
// text embeddings, and the pre-pooling patch feature grid.
package clipserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-propaganda-spotter/pkg/types"
)

// Client talks to a CLIP embedding server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type embedImageRequest struct {
	Image string `json:"image"`
}

type embedTextRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// featuresResponse carries the patch grid as a flat row-major array of
// width*height*channels values.
type featuresResponse struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
	Features []float32 `json:"features"`
}

// NewClient creates a client for the given server URL.
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8090"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// EmbedImage returns the pooled, L2-normalized embedding for a base64 image.
func (c *Client) EmbedImage(ctx context.Context, imgB64 string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/embed/image", embedImageRequest{Image: imgB64}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("clipserver: empty image embedding")
	}
	return resp.Embedding, nil
}

// EmbedText returns the L2-normalized embedding for a text string.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/embed/text", embedTextRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("clipserver: empty text embedding")
	}
	return resp.Embedding, nil
}

// SpatialFeatures returns the pre-pooling patch feature grid for a base64 image.
func (c *Client) SpatialFeatures(ctx context.Context, imgB64 string) (*types.FeatureGrid, error) {
	var resp featuresResponse
	if err := c.post(ctx, "/v1/features", embedImageRequest{Image: imgB64}, &resp); err != nil {
		return nil, err
	}
	return unflattenFeatures(&resp)
}

func unflattenFeatures(resp *featuresResponse) (*types.FeatureGrid, error) {
	if resp.Width <= 0 || resp.Height <= 0 || resp.Channels <= 0 {
		return nil, fmt.Errorf("clipserver: invalid feature grid %dx%dx%d",
			resp.Width, resp.Height, resp.Channels)
	}
	want := resp.Width * resp.Height * resp.Channels
	if len(resp.Features) != want {
		return nil, fmt.Errorf("clipserver: feature payload has %d values, want %d",
			len(resp.Features), want)
	}

	grid := &types.FeatureGrid{
		Width:    resp.Width,
		Height:   resp.Height,
		Channels: resp.Channels,
		Features: make([][][]float32, resp.Height),
	}
	i := 0
	for y := 0; y < resp.Height; y++ {
		grid.Features[y] = make([][]float32, resp.Width)
		for x := 0; x < resp.Width; x++ {
			grid.Features[y][x] = resp.Features[i : i+resp.Channels : i+resp.Channels]
			i += resp.Channels
		}
	}
	return grid, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clipserver %s returned HTTP %d: %s", path, resp.StatusCode,
			strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %v", path, err)
	}
	return nil
}
