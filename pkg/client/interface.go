package client

import (
	"context"

	"go-propaganda-spotter/pkg/types"
)

// CaptionClient wraps an image captioning model. Caption takes a base64
// encoded image and returns a short natural-language description.
type CaptionClient interface {
	Caption(ctx context.Context, imgB64 string) (string, error)
}

// EmbeddingClient wraps a joint image/text embedding model. EmbedImage and
// EmbedText produce L2-normalized vectors in the same space. SpatialFeatures
// exposes the pre-pooling patch feature grid that the attention extractor
// backpropagates the similarity score through; this capability is what the
// rest of the pipeline depends on beyond plain scoring.
type EmbeddingClient interface {
	EmbedImage(ctx context.Context, imgB64 string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	SpatialFeatures(ctx context.Context, imgB64 string) (*types.FeatureGrid, error)
}
