// Package regions converts attention maps into bounding boxes by
// thresholding the grid and collecting connected components.
package regions

import (
	"github.com/google/uuid"

	"go-propaganda-spotter/pkg/concepts"
	"go-propaganda-spotter/pkg/types"
)

// Config holds region extraction policy constants.
type Config struct {
	// ThresholdFraction binarizes each grid at this fraction of its own
	// maximum, adapting to the map's dynamic range.
	ThresholdFraction float64
	// MinArea drops components with fewer hot cells, suppressing
	// single-pixel noise.
	MinArea int
}

// DefaultConfig returns the documented default policy.
func DefaultConfig() Config {
	return Config{
		ThresholdFraction: 0.5,
		MinArea:           4,
	}
}

// Extractor extracts boxes from attention maps. Purely numerical; no model
// dependency.
type Extractor struct {
	config Config
}

// New creates an extractor with the default configuration.
func New() *Extractor {
	return &Extractor{config: DefaultConfig()}
}

// NewWithConfig creates an extractor with a custom configuration.
func NewWithConfig(config Config) *Extractor {
	return &Extractor{config: config}
}

// Rect is a component bounding rectangle in grid cell coordinates.
type Rect struct {
	MinX int
	MinY int
	MaxX int
	MaxY int
	Area int
}

// ExtractBoxes converts an attention map into zero or more bounding boxes in
// percentage-of-image coordinates, tagged with the concept's label and color.
// Confidence is the concept's overall similarity score, not re-derived from
// local attention, so confidence stays comparable across concepts.
func (e *Extractor) ExtractBoxes(m *types.AttentionMap, concept concepts.Concept, confidence float64) []types.BoundingBox {
	rects := ExtractRects(m.Grid, e.config.ThresholdFraction, e.config.MinArea)
	if len(rects) == 0 {
		return nil
	}

	boxes := make([]types.BoundingBox, 0, len(rects))
	for _, r := range rects {
		x, y, w, h := rectToPercent(r, m.Width, m.Height)
		boxes = append(boxes, types.BoundingBox{
			ID:         uuid.NewString(),
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Label:      concept.Name,
			Color:      concept.Color,
			Confidence: confidence,
		})
	}
	return boxes
}

// ExtractRects binarizes the grid at thresholdFraction of its maximum and
// returns the bounding rectangle of every 4-connected component whose cell
// count reaches minArea. Components are reported in scan order. A uniformly
// zero grid yields no rectangles: cells must exceed the threshold strictly.
func ExtractRects(grid [][]float64, thresholdFraction float64, minArea int) []Rect {
	height := len(grid)
	if height == 0 {
		return nil
	}
	width := len(grid[0])
	if width == 0 {
		return nil
	}

	var maxV float64
	for _, row := range grid {
		for _, v := range row {
			if v > maxV {
				maxV = v
			}
		}
	}
	threshold := thresholdFraction * maxV

	hot := make([]bool, width*height)
	for y, row := range grid {
		for x, v := range row {
			hot[y*width+x] = v > threshold
		}
	}

	// Iterative queue flood fill over cell indices keeps memory bounded and
	// avoids recursion depth limits on large grids.
	visited := make([]bool, width*height)
	queue := make([]int, 0, width*height)
	var rects []Rect

	for start := 0; start < width*height; start++ {
		if !hot[start] || visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		r := Rect{MinX: start % width, MinY: start / width, MaxX: start % width, MaxY: start / width}

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%width, idx/width
			r.Area++
			if x < r.MinX {
				r.MinX = x
			}
			if x > r.MaxX {
				r.MaxX = x
			}
			if y < r.MinY {
				r.MinY = y
			}
			if y > r.MaxY {
				r.MaxY = y
			}

			for _, n := range [4]int{idx - width, idx + width, idx - 1, idx + 1} {
				if n < 0 || n >= width*height {
					continue
				}
				// Horizontal neighbours must stay on the same row.
				if (n == idx-1 || n == idx+1) && n/width != y {
					continue
				}
				if hot[n] && !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}

		if r.Area >= minArea {
			rects = append(rects, r)
		}
	}
	return rects
}

// rectToPercent rescales a grid rectangle to percentage-of-image coordinates,
// using the grid dimensions as the normalization base and clipping to bounds.
func rectToPercent(r Rect, gridW, gridH int) (x, y, w, h float64) {
	fw, fh := float64(gridW), float64(gridH)
	x = float64(r.MinX) / fw * 100
	y = float64(r.MinY) / fh * 100
	w = float64(r.MaxX-r.MinX+1) / fw * 100
	h = float64(r.MaxY-r.MinY+1) / fh * 100
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > 100 {
		w = 100 - x
	}
	if y+h > 100 {
		h = 100 - y
	}
	return x, y, w, h
}
