package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"go-propaganda-spotter/pkg/types"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeBytes(t *testing.T) {
	p := NewProcessor()

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, solidImage(4, 4, color.RGBA{255, 0, 0, 255})); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	var jpgBuf bytes.Buffer
	if err := jpeg.Encode(&jpgBuf, solidImage(4, 4, color.RGBA{255, 0, 0, 255}), nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"png", pngBuf.Bytes(), false},
		{"jpeg", jpgBuf.Bytes(), false},
		{"garbage", []byte("definitely not an image"), true},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.DecodeBytes(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	p := NewProcessor()

	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"small unchanged", 640, 480, 640, 480},
		{"wide capped", 2048, 1024, 1024, 512},
		{"tall capped", 512, 2048, 256, 1024},
		{"exact limit unchanged", 1024, 1024, 1024, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Preprocess(solidImage(tt.w, tt.h, color.RGBA{A: 255}))
			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Preprocess(%dx%d) = %dx%d, want %dx%d",
					tt.w, tt.h, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPreprocessDisabled(t *testing.T) {
	p := &Processor{MaxSide: 0, Quality: 90}
	out := p.Preprocess(solidImage(2048, 2048, color.RGBA{A: 255}))
	if out.Bounds().Dx() != 2048 {
		t.Error("MaxSide 0 should disable resizing")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(solidImage(8, 8, color.RGBA{0, 255, 0, 255}))
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("Output is not valid base64: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("Output is not a decodable JPEG: %v", err)
	}
}

func TestCreateOverlay(t *testing.T) {
	p := NewProcessor()
	img := solidImage(100, 100, color.RGBA{0, 0, 0, 255})

	boxes := []types.BoundingBox{
		{ID: "b1", X: 20, Y: 20, Width: 40, Height: 40, Color: "#ef4444", Confidence: 0.5},
	}
	out := p.CreateOverlay(img, boxes)

	// The stroke runs along the box edge at pixel (20, 20).
	r, g, b, _ := out.At(20, 20).RGBA()
	if r>>8 != 0xef || g>>8 != 0x44 || b>>8 != 0x44 {
		t.Errorf("Expected stroke color at box corner, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
	// The box interior stays untouched.
	r, g, b, _ = out.At(40, 40).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("Expected untouched interior, got r=%d g=%d b=%d", r, g, b)
	}
	// The input image is not mutated.
	r, g, b, _ = img.At(20, 20).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("CreateOverlay mutated its input")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ef4444", color.NRGBA{0xef, 0x44, 0x44, 255}},
		{"3b82f6", color.NRGBA{0x3b, 0x82, 0xf6, 255}},
		{"#fff", color.NRGBA{107, 114, 128, 255}},
		{"not-a-color", color.NRGBA{107, 114, 128, 255}},
		{"", color.NRGBA{107, 114, 128, 255}},
	}

	for _, tt := range tests {
		if got := parseHexColor(tt.in); got != tt.want {
			t.Errorf("parseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBoxToPixels(t *testing.T) {
	box := types.BoundingBox{X: 25, Y: 50, Width: 25, Height: 25}
	x0, y0, x1, y1 := boxToPixels(box, 200, 100)

	if x0 != 50 || y0 != 50 || x1 != 100 || y1 != 75 {
		t.Errorf("Unexpected pixel box: (%d,%d)-(%d,%d)", x0, y0, x1, y1)
	}
}

func TestBoxToPixelsDegenerate(t *testing.T) {
	// A zero-size box still produces a drawable 1px rectangle.
	box := types.BoundingBox{X: 50, Y: 50, Width: 0, Height: 0}
	x0, y0, x1, y1 := boxToPixels(box, 100, 100)
	if x1 <= x0 || y1 <= y0 {
		t.Errorf("Degenerate box not widened: (%d,%d)-(%d,%d)", x0, y0, x1, y1)
	}
}
