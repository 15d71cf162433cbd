package saliency

import (
	"testing"

	"go-propaganda-spotter/pkg/types"
)

// makeFeatureGrid builds a grid where every patch holds the background
// vector, with optional hot patches set afterwards.
func makeFeatureGrid(width, height int, background []float32) *types.FeatureGrid {
	grid := &types.FeatureGrid{
		Width:    width,
		Height:   height,
		Channels: len(background),
		Features: make([][][]float32, height),
	}
	for y := 0; y < height; y++ {
		grid.Features[y] = make([][]float32, width)
		for x := 0; x < width; x++ {
			patch := make([]float32, len(background))
			copy(patch, background)
			grid.Features[y][x] = patch
		}
	}
	return grid
}

func TestGradCAMHotPatchLocalized(t *testing.T) {
	// One patch aligned with the text direction against an orthogonal
	// background: attention must peak exactly there.
	grid := makeFeatureGrid(4, 4, []float32{0, 1, 0})
	grid.Features[2][1] = []float32{5, 1, 0}
	textVec := []float32{1, 0, 0}

	m, err := GradCAM(grid, "test-concept", textVec)
	if err != nil {
		t.Fatalf("GradCAM failed: %v", err)
	}

	if m.ConceptID != "test-concept" {
		t.Errorf("Expected concept id preserved, got %q", m.ConceptID)
	}
	if m.Width != 4 || m.Height != 4 {
		t.Errorf("Expected 4x4 map, got %dx%d", m.Width, m.Height)
	}
	if m.Grid[2][1] != 1.0 {
		t.Errorf("Expected hot patch normalized to 1.0, got %f", m.Grid[2][1])
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x == 1 && y == 2 {
				continue
			}
			if m.Grid[y][x] >= m.Grid[2][1] {
				t.Errorf("Cell (%d,%d)=%f should be below the hot patch", x, y, m.Grid[y][x])
			}
		}
	}
}

func TestGradCAMValuesNormalized(t *testing.T) {
	grid := makeFeatureGrid(6, 5, []float32{0.2, -0.3, 0.5, 0.1})
	grid.Features[0][0] = []float32{1, 0.5, -0.2, 0.9}
	grid.Features[4][5] = []float32{-0.5, 0.8, 0.3, -0.1}
	textVec := []float32{0.7, -0.1, 0.4, 0.2}

	m, err := GradCAM(grid, "c", textVec)
	if err != nil {
		t.Fatalf("GradCAM failed: %v", err)
	}

	sawOne := false
	allZero := true
	for _, row := range m.Grid {
		for _, v := range row {
			if v < 0 || v > 1 {
				t.Fatalf("Grid value %f outside [0,1]", v)
			}
			if v == 1 {
				sawOne = true
			}
			if v != 0 {
				allZero = false
			}
		}
	}
	if !allZero && !sawOne {
		t.Error("Normalized non-zero map must contain a cell equal to 1")
	}
}

func TestGradCAMZeroFeatures(t *testing.T) {
	// An all-zero feature map (e.g. a blank image) yields uniformly zero
	// attention rather than an error.
	grid := makeFeatureGrid(7, 7, []float32{0, 0, 0})

	m, err := GradCAM(grid, "c", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("GradCAM failed: %v", err)
	}
	for _, row := range m.Grid {
		for _, v := range row {
			if v != 0 {
				t.Fatalf("Expected uniformly zero map, found %f", v)
			}
		}
	}
}

func TestGradCAMDimensionMismatch(t *testing.T) {
	grid := makeFeatureGrid(3, 3, []float32{1, 2, 3})
	if _, err := GradCAM(grid, "c", []float32{1, 2}); err == nil {
		t.Error("Expected error for mismatched text embedding dimension")
	}
}

func TestGradCAMEmptyGrid(t *testing.T) {
	grid := &types.FeatureGrid{}
	if _, err := GradCAM(grid, "c", []float32{1}); err == nil {
		t.Error("Expected error for empty feature grid")
	}
}

func TestGradCAMDeterministic(t *testing.T) {
	grid := makeFeatureGrid(5, 5, []float32{0.1, 0.2, 0.3})
	grid.Features[1][3] = []float32{0.9, -0.4, 0.6}
	textVec := []float32{0.5, 0.5, -0.2}

	m1, err := GradCAM(grid, "c", textVec)
	if err != nil {
		t.Fatalf("GradCAM failed: %v", err)
	}
	m2, err := GradCAM(grid, "c", textVec)
	if err != nil {
		t.Fatalf("GradCAM failed: %v", err)
	}
	for y := range m1.Grid {
		for x := range m1.Grid[y] {
			if m1.Grid[y][x] != m2.Grid[y][x] {
				t.Fatalf("Non-deterministic value at (%d,%d)", x, y)
			}
		}
	}
}

func TestNormalizeGridFlatNonzero(t *testing.T) {
	grid := [][]float64{{0.5, 0.5}, {0.5, 0.5}}
	normalizeGrid(grid)
	for _, row := range grid {
		for _, v := range row {
			if v != 1 {
				t.Errorf("Flat nonzero grid should normalize to all ones, got %f", v)
			}
		}
	}
}
