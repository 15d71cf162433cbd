// Package propagandaspotter analyzes images for propaganda techniques and
// produces a structured report: a natural-language caption, ranked technique
// matches with confidence scores, and bounding boxes locating the image
// regions that drove each match.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		spotter "go-propaganda-spotter"
//		"go-propaganda-spotter/internal/config"
//	)
//
//	func main() {
//		s, err := spotter.New(config.Default())
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		data, err := os.ReadFile("poster.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		report := s.AnalyzeBytes(context.Background(), data)
//		fmt.Println(report.AnalysisText)
//		for _, box := range report.BoundingBoxes {
//			fmt.Printf("%s: %.0f%%,%.0f%% %+.0fx%+.0f (%.2f)\n",
//				box.Label, box.X, box.Y, box.Width, box.Height, box.Confidence)
//		}
//	}
//
// The detection pipeline runs a captioning model for scene context, scores
// the image against a fixed catalog of technique concepts in a shared
// image/text embedding space, computes gradient-based attention maps for the
// top-scoring concepts, and converts the hottest attention regions into
// percentage-coordinate bounding boxes.
package propagandaspotter

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"go-propaganda-spotter/internal/config"
	"go-propaganda-spotter/internal/metrics"
	"go-propaganda-spotter/pkg/clipserver"
	"go-propaganda-spotter/pkg/concepts"
	"go-propaganda-spotter/pkg/ollama"
	"go-propaganda-spotter/pkg/pipeline"
	"go-propaganda-spotter/pkg/regions"
	"go-propaganda-spotter/pkg/types"
)

// Version of the propaganda spotter library
const Version = "1.0.0"

// Spotter provides a high-level interface to the detection pipeline.
type Spotter struct {
	pipeline       *pipeline.Pipeline
	catalog        *concepts.Catalog
	metricsHandler http.Handler
}

// New creates a Spotter wired to the configured model backends.
func New(cfg *config.Config) (*Spotter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	captioner, err := ollama.NewClient(cfg.Models.OllamaURL, cfg.Models.CaptionModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create caption client: %w", err)
	}
	embedder, err := clipserver.NewClient(cfg.Models.ClipServerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	catalog := concepts.Default()
	m, metricsHandler := metrics.New()
	p := pipeline.New(
		pipeline.Config{
			TopK:            cfg.Pipeline.TopK,
			ScoreFloor:      cfg.Pipeline.ScoreFloor,
			RequestTimeout:  cfg.RequestTimeout(),
			SerializeDevice: cfg.Pipeline.SerializeDevice,
		},
		catalog,
		captioner,
		embedder,
		regions.Config{
			ThresholdFraction: cfg.Regions.ThresholdFraction,
			MinArea:           cfg.Regions.MinArea,
		},
		m,
		logrus.StandardLogger(),
	)

	return &Spotter{pipeline: p, catalog: catalog, metricsHandler: metricsHandler}, nil
}

// AnalyzeBytes runs the detection pipeline on raw image bytes. The returned
// report always has a definite Success flag; it never panics or hangs beyond
// the configured request timeout.
func (s *Spotter) AnalyzeBytes(ctx context.Context, imageBytes []byte) *types.AnalysisReport {
	return s.pipeline.Analyze(ctx, imageBytes)
}

// AnalyzeFile runs the detection pipeline on an image file.
func (s *Spotter) AnalyzeFile(ctx context.Context, path string) (*types.AnalysisReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return s.pipeline.Analyze(ctx, data), nil
}

// Catalog returns the concept catalog the spotter scores against.
func (s *Spotter) Catalog() *concepts.Catalog {
	return s.catalog
}

// MetricsHandler serves the pipeline's Prometheus registry.
func (s *Spotter) MetricsHandler() http.Handler {
	return s.metricsHandler
}
