package regions

import (
	"testing"

	"go-propaganda-spotter/pkg/concepts"
	"go-propaganda-spotter/pkg/types"
)

// makeGrid creates a zeroed grid with the given dimensions.
func makeGrid(width, height int) [][]float64 {
	grid := make([][]float64, height)
	for y := range grid {
		grid[y] = make([]float64, width)
	}
	return grid
}

func TestExtractRectsSingleHotSquare(t *testing.T) {
	// 3x3 hot square at (2,2)-(4,4) in a 10x10 grid.
	grid := makeGrid(10, 10)
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			grid[y][x] = 1.0
		}
	}

	rects := ExtractRects(grid, 0.5, 4)
	if len(rects) != 1 {
		t.Fatalf("Expected exactly one rect, got %d", len(rects))
	}

	r := rects[0]
	if r.MinX != 2 || r.MinY != 2 || r.MaxX != 4 || r.MaxY != 4 {
		t.Errorf("Expected rect (2,2)-(4,4), got (%d,%d)-(%d,%d)", r.MinX, r.MinY, r.MaxX, r.MaxY)
	}
	if r.Area != 9 {
		t.Errorf("Expected area 9, got %d", r.Area)
	}
}

func TestExtractBoxesPercentCoordinates(t *testing.T) {
	grid := makeGrid(10, 10)
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			grid[y][x] = 1.0
		}
	}
	m := &types.AttentionMap{ConceptID: "leader-worship", Grid: grid, Width: 10, Height: 10}
	concept := concepts.Concept{ID: "leader-worship", Name: "Leader Worship", Color: "#8b5cf6"}

	extractor := New()
	boxes := extractor.ExtractBoxes(m, concept, 0.42)
	if len(boxes) != 1 {
		t.Fatalf("Expected exactly one box, got %d", len(boxes))
	}

	box := boxes[0]
	if box.X != 20 || box.Y != 20 || box.Width != 30 || box.Height != 30 {
		t.Errorf("Expected box 20,20 30x30, got %.1f,%.1f %.1fx%.1f", box.X, box.Y, box.Width, box.Height)
	}
	if box.Confidence != 0.42 {
		t.Errorf("Expected confidence 0.42 (concept similarity), got %f", box.Confidence)
	}
	if box.Label != "Leader Worship" {
		t.Errorf("Expected concept name as label, got %q", box.Label)
	}
	if box.Color != "#8b5cf6" {
		t.Errorf("Expected concept color, got %q", box.Color)
	}
	if box.ID == "" {
		t.Error("Expected a non-empty box id")
	}
}

func TestExtractRectsUniformZeroGrid(t *testing.T) {
	grid := makeGrid(7, 7)
	if rects := ExtractRects(grid, 0.5, 4); len(rects) != 0 {
		t.Errorf("Expected no rects for a uniformly zero grid, got %d", len(rects))
	}
}

func TestExtractRectsAreaFloor(t *testing.T) {
	// A lone hot cell and a 2x2 block: only the block reaches the floor.
	grid := makeGrid(8, 8)
	grid[0][7] = 1.0
	grid[5][2], grid[5][3], grid[6][2], grid[6][3] = 1, 1, 1, 1

	rects := ExtractRects(grid, 0.5, 4)
	if len(rects) != 1 {
		t.Fatalf("Expected only the 2x2 block to survive, got %d rects", len(rects))
	}
	if rects[0].Area != 4 {
		t.Errorf("Expected area 4, got %d", rects[0].Area)
	}
}

func TestExtractRectsDiagonalNotConnected(t *testing.T) {
	// Two 2x2 blocks touching only at a corner: 4-connectivity keeps them apart.
	grid := makeGrid(8, 8)
	grid[1][1], grid[1][2], grid[2][1], grid[2][2] = 1, 1, 1, 1
	grid[3][3], grid[3][4], grid[4][3], grid[4][4] = 1, 1, 1, 1

	rects := ExtractRects(grid, 0.5, 4)
	if len(rects) != 2 {
		t.Fatalf("Expected two separate components, got %d", len(rects))
	}
}

func TestExtractRectsThresholdAdaptsToMax(t *testing.T) {
	// Max of 0.4: a 0.3 block exceeds 0.5*max even though it is below 0.5.
	grid := makeGrid(6, 6)
	grid[0][0] = 0.4
	for y := 3; y <= 4; y++ {
		for x := 3; x <= 4; x++ {
			grid[y][x] = 0.3
		}
	}

	rects := ExtractRects(grid, 0.5, 4)
	if len(rects) != 1 {
		t.Fatalf("Expected the 0.3 block to pass the relative threshold, got %d rects", len(rects))
	}
}

func TestExtractBoxesClippingInvariant(t *testing.T) {
	// Hot cells flush with every border.
	grid := makeGrid(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			grid[y][x] = 1.0
		}
	}
	m := &types.AttentionMap{ConceptID: "c", Grid: grid, Width: 5, Height: 5}

	boxes := New().ExtractBoxes(m, concepts.Concept{ID: "c", Name: "C", Color: "#ef4444"}, 0.5)
	for _, box := range boxes {
		if box.X < 0 || box.Y < 0 {
			t.Errorf("Box origin out of bounds: %.1f,%.1f", box.X, box.Y)
		}
		if box.X+box.Width > 100 || box.Y+box.Height > 100 {
			t.Errorf("Box extends past 100%%: %.1f+%.1f, %.1f+%.1f", box.X, box.Width, box.Y, box.Height)
		}
	}
}

func TestExtractBoxesMultipleComponents(t *testing.T) {
	grid := makeGrid(10, 10)
	for y := 0; y <= 2; y++ {
		for x := 0; x <= 2; x++ {
			grid[y][x] = 1.0
		}
	}
	for y := 6; y <= 9; y++ {
		for x := 6; x <= 9; x++ {
			grid[y][x] = 0.9
		}
	}
	m := &types.AttentionMap{ConceptID: "c", Grid: grid, Width: 10, Height: 10}

	boxes := New().ExtractBoxes(m, concepts.Concept{ID: "c", Name: "C", Color: "#ef4444"}, 0.7)
	if len(boxes) != 2 {
		t.Fatalf("Expected two boxes, got %d", len(boxes))
	}
	if boxes[0].ID == boxes[1].ID {
		t.Error("Box ids must be unique per response")
	}
	for _, box := range boxes {
		if box.Confidence != 0.7 {
			t.Errorf("All boxes share the concept similarity, got %f", box.Confidence)
		}
	}
}
