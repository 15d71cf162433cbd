// Package processing handles image decoding, preprocessing and overlay
// rendering around the detection pipeline.
package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	apperrors "go-propaganda-spotter/pkg/errors"
	"go-propaganda-spotter/pkg/types"
)

// Processor handles image processing operations.
type Processor struct {
	// MaxSide caps the longer image side before model calls; 0 disables.
	MaxSide int
	// Quality is the JPEG quality for model payloads and saved overlays.
	Quality int
}

// NewProcessor creates a processor with the preprocessing defaults.
func NewProcessor() *Processor {
	return &Processor{
		MaxSide: 1024,
		Quality: 90,
	}
}

// DecodeBytes decodes an uploaded image, trying registered decoders first and
// falling back to explicit WebP decoding.
func (p *Processor) DecodeBytes(data []byte) (image.Image, error) {
	reader := bytes.NewReader(data)
	if img, _, err := image.Decode(reader); err == nil {
		return img, nil
	}

	reader = bytes.NewReader(data)
	if img, err := webp.Decode(reader); err == nil {
		return img, nil
	}

	return nil, apperrors.NewDecodeError("unknown or unsupported image format", nil)
}

// LoadImage loads an image from a file path with WebP support.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.DecodeBytes(data)
}

// LoadImageFromURL downloads and decodes an image from an HTTP(S) URL.
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s", parsedURL.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return p.DecodeBytes(data)
}

// LoadImageSmart loads an image from either a file path or URL.
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// Preprocess shrinks oversized images so model payloads stay bounded.
func (p *Processor) Preprocess(img image.Image) image.Image {
	if p.MaxSide <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= p.MaxSide && h <= p.MaxSide {
		return img
	}
	if w >= h {
		return imaging.Resize(img, p.MaxSide, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, p.MaxSide, imaging.Lanczos)
}

// PrepareImageForModel converts an image to base64 JPEG for the model backends.
func (p *Processor) PrepareImageForModel(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// CreateOverlay renders the detected bounding boxes onto a copy of the image,
// mapping percentage coordinates to this image's pixel dimensions.
func (p *Processor) CreateOverlay(img image.Image, boxes []types.BoundingBox) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	for _, box := range boxes {
		drawBox(nrgba, box, w, h, parseHexColor(box.Color), stroke)
	}
	return nrgba
}

// SaveImage saves an image with the specified format and quality.
func (p *Processor) SaveImage(img image.Image, path, format string) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Quality: float32(p.Quality)}
		return webp.Encode(f, img, opts)
	case "png":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(f, img)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(p.Quality))
	}
}

// parseHexColor parses "#rrggbb" display colors, falling back to gray.
func parseHexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{107, 114, 128, 255}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{107, 114, 128, 255}
	}
	return color.NRGBA{r, g, b, 255}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func boxToPixels(box types.BoundingBox, w, h int) (int, int, int, int) {
	x0 := int(clamp(box.X/100, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(box.Y/100, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp((box.X+box.Width)/100, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp((box.Y+box.Height)/100, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawBox(img *image.NRGBA, box types.BoundingBox, w, h int, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := boxToPixels(box, w, h)
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
