// Package saliency produces per-concept attention maps via gradient-based
// class-activation mapping over the embedding model's patch feature grid.
package saliency

import (
	"context"
	"fmt"
	"math"

	"go-propaganda-spotter/pkg/client"
	"go-propaganda-spotter/pkg/types"
)

// Extractor computes attention maps. It is the only component that uses the
// embedding backend's spatial feature capability.
type Extractor struct {
	embedder client.EmbeddingClient
}

// New creates an extractor over the given embedding backend.
func New(embedder client.EmbeddingClient) *Extractor {
	return &Extractor{embedder: embedder}
}

// AttentionFor returns the normalized saliency grid for one concept. textVec
// is the concept's text embedding (callers reuse the scorer's cache).
func (e *Extractor) AttentionFor(ctx context.Context, imgB64, conceptID string, textVec []float32) (*types.AttentionMap, error) {
	grid, err := e.GridFor(ctx, imgB64)
	if err != nil {
		return nil, err
	}
	return GradCAM(grid, conceptID, textVec)
}

// GridFor fetches the patch feature grid once. The grid depends only on the
// image, so callers fanning out over several concepts fetch it a single time
// and run GradCAM per concept.
func (e *Extractor) GridFor(ctx context.Context, imgB64 string) (*types.FeatureGrid, error) {
	grid, err := e.embedder.SpatialFeatures(ctx, imgB64)
	if err != nil {
		return nil, fmt.Errorf("spatial features: %w", err)
	}
	return grid, nil
}

// GradCAM backpropagates the cosine similarity between the pooled image
// embedding and textVec down to the patch grid.
//
// The image embedding is e = p/|p| with p the mean of the patch features, so
// the gradient of s = e·t at every position is the same channel vector
// g = (t/|t| - s·e) / (|p|·H·W). The channel weights of classic Grad-CAM are
// the global average of the gradient, which is exactly g; each position's
// activation is then the weighted channel sum, rectified so only features
// that positively support the concept contribute, and min-max normalized
// per map (absolute magnitudes are not comparable across concepts).
func GradCAM(grid *types.FeatureGrid, conceptID string, textVec []float32) (*types.AttentionMap, error) {
	if grid.Width <= 0 || grid.Height <= 0 || grid.Channels <= 0 {
		return nil, fmt.Errorf("gradcam: empty feature grid")
	}
	if len(textVec) != grid.Channels {
		return nil, fmt.Errorf("gradcam: text embedding has %d dims, grid has %d channels",
			len(textVec), grid.Channels)
	}

	cells := float64(grid.Width * grid.Height)

	// Mean-pool the patch features.
	pooled := make([]float64, grid.Channels)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			patch := grid.At(x, y)
			for c, v := range patch {
				pooled[c] += float64(v)
			}
		}
	}
	for c := range pooled {
		pooled[c] /= cells
	}

	var pNorm, tNorm float64
	for _, v := range pooled {
		pNorm += v * v
	}
	pNorm = math.Sqrt(pNorm)
	for _, v := range textVec {
		tNorm += float64(v) * float64(v)
	}
	tNorm = math.Sqrt(tNorm)

	out := &types.AttentionMap{
		ConceptID: conceptID,
		Width:     grid.Width,
		Height:    grid.Height,
		Grid:      zeroGrid(grid.Width, grid.Height),
	}
	if pNorm == 0 || tNorm == 0 {
		// Degenerate input (e.g. an all-zero feature map): uniformly zero
		// attention, no normalization possible.
		return out, nil
	}

	// s = e·t̂ and the per-channel gradient weights.
	var s float64
	for c := range pooled {
		s += (pooled[c] / pNorm) * (float64(textVec[c]) / tNorm)
	}
	weights := make([]float64, grid.Channels)
	for c := range weights {
		tHat := float64(textVec[c]) / tNorm
		eC := pooled[c] / pNorm
		weights[c] = (tHat - s*eC) / (pNorm * cells)
	}

	// Weighted channel sum with rectification.
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			patch := grid.At(x, y)
			var sum float64
			for c, v := range patch {
				sum += weights[c] * float64(v)
			}
			if sum < 0 {
				sum = 0
			}
			out.Grid[y][x] = sum
		}
	}

	normalizeGrid(out.Grid)
	return out, nil
}

// normalizeGrid rescales values to [0,1] by the grid's own min/max. A flat
// nonzero grid maps to all ones; a flat zero grid stays zero.
func normalizeGrid(grid [][]float64) {
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, row := range grid {
		for _, v := range row {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	if maxV == minV {
		if maxV > 0 {
			for _, row := range grid {
				for x := range row {
					row[x] = 1
				}
			}
		}
		return
	}
	scale := maxV - minV
	for _, row := range grid {
		for x := range row {
			row[x] = (row[x] - minV) / scale
		}
	}
}

func zeroGrid(width, height int) [][]float64 {
	grid := make([][]float64, height)
	for y := range grid {
		grid[y] = make([]float64, width)
	}
	return grid
}
