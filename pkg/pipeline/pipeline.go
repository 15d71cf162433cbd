// Package pipeline sequences the detection stages per request and enforces
// the request contract: timeout, model-device serialization and the
// graceful-degradation policy.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-propaganda-spotter/internal/metrics"
	"go-propaganda-spotter/pkg/client"
	"go-propaganda-spotter/pkg/composer"
	"go-propaganda-spotter/pkg/concepts"
	apperrors "go-propaganda-spotter/pkg/errors"
	"go-propaganda-spotter/pkg/processing"
	"go-propaganda-spotter/pkg/regions"
	"go-propaganda-spotter/pkg/saliency"
	"go-propaganda-spotter/pkg/scorer"
	"go-propaganda-spotter/pkg/types"
)

// Config holds the orchestration policy constants.
type Config struct {
	// TopK bounds how many top-scoring concepts get attention extraction.
	TopK int
	// ScoreFloor excludes concepts below this similarity from detections.
	ScoreFloor float64
	// RequestTimeout is the overall per-request budget.
	RequestTimeout time.Duration
	// SerializeDevice funnels all model calls through one mutex for compute
	// devices that cannot serve parallel inference.
	SerializeDevice bool
}

// DefaultConfig returns the documented default policy.
func DefaultConfig() Config {
	return Config{
		TopK:            5,
		ScoreFloor:      0.18,
		RequestTimeout:  120 * time.Second,
		SerializeDevice: true,
	}
}

// Pipeline is the entry point the request boundary calls.
type Pipeline struct {
	config    Config
	catalog   *concepts.Catalog
	captioner client.CaptionClient
	scorer    *scorer.Scorer
	attention *saliency.Extractor
	regions   *regions.Extractor
	composer  *composer.Composer
	processor *processing.Processor
	metrics   *metrics.Metrics
	log       *logrus.Logger

	deviceMu sync.Mutex
}

// New wires a pipeline from its components. metrics and log may be nil.
func New(config Config, catalog *concepts.Catalog, captioner client.CaptionClient,
	embedder client.EmbeddingClient, regionCfg regions.Config,
	m *metrics.Metrics, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		config:    config,
		catalog:   catalog,
		captioner: captioner,
		scorer:    scorer.New(catalog, embedder),
		attention: saliency.New(embedder),
		regions:   regions.NewWithConfig(regionCfg),
		composer:  composer.New(),
		processor: processing.NewProcessor(),
		metrics:   m,
		log:       log,
	}
}

// stepOutcome carries one sub-step's result so the orchestrator can decide
// continue-vs-abort per step instead of propagating errors through the chain.
type stepOutcome[T any] struct {
	value T
	err   error
}

// Analyze runs the full detection pipeline on raw image bytes. It always
// returns a report: fatal failures (undecodable image, scorer failure,
// timeout) yield Success=false with a one-sentence ErrorMessage, everything
// else degrades into a report with fewer boxes or an empty caption.
func (p *Pipeline) Analyze(ctx context.Context, imageBytes []byte) *types.AnalysisReport {
	start := time.Now()
	req := newRequest(p.log)

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	// Decode and preprocess. Undecodable input is the first terminal failure.
	img, err := p.processor.DecodeBytes(imageBytes)
	if err != nil {
		return p.finish(req.fail(err, "The uploaded image could not be decoded."), start)
	}
	imgB64, err := p.processor.PrepareImageForModel(p.processor.Preprocess(img))
	if err != nil {
		return p.finish(req.fail(apperrors.NewDecodeError("re-encode failed", err),
			"The uploaded image could not be processed."), start)
	}

	// Caption and scoring only need the image, so they run independently;
	// the device mutex still serializes their model calls.
	var wg sync.WaitGroup
	var captionOut stepOutcome[string]
	var scoresOut stepOutcome[[]types.ConceptScore]

	wg.Add(2)
	go func() {
		defer wg.Done()
		p.withDevice(func() {
			captionOut.value, captionOut.err = p.captioner.Caption(ctx, imgB64)
		})
	}()
	go func() {
		defer wg.Done()
		p.withDevice(func() {
			scoresOut.value, scoresOut.err = p.scorer.ScoreAll(ctx, imgB64)
		})
	}()
	wg.Wait()

	// Caption is supplementary context: on failure the pipeline continues
	// with an empty caption.
	if captionOut.err != nil {
		req.log.WithError(captionOut.err).Warn("Caption generation failed, continuing without caption")
		captionOut.value = ""
	} else {
		req.advance(stateCaptioned)
	}

	// Scores are the primary signal: without them nothing downstream can run.
	if scoresOut.err != nil {
		if timedOut(ctx, scoresOut.err) {
			return p.finish(req.fail(scoresOut.err, "The analysis did not finish within the time budget."), start)
		}
		return p.finish(req.fail(apperrors.NewInferenceError("concept scoring failed", scoresOut.err),
			"The image could not be scored against the technique catalog."), start)
	}
	req.advance(stateScored)

	detections := p.attend(ctx, req, imgB64, scoresOut.value)
	req.advance(stateAttended)

	if ctx.Err() != nil {
		return p.finish(req.fail(apperrors.NewTimeoutError("request budget exceeded", ctx.Err()),
			"The analysis did not finish within the time budget."), start)
	}

	composed := p.composer.Compose(captionOut.value, detections)
	req.advance(stateComposed)

	report := &types.AnalysisReport{
		Success:          true,
		AnalysisText:     composed.AnalysisText,
		HighlightedWords: composed.HighlightedWords,
		ConfidenceScore:  composed.ConfidenceScore,
	}
	for _, det := range detections {
		report.BoundingBoxes = append(report.BoundingBoxes, det.Boxes...)
	}
	req.report = report
	req.advance(stateDone)
	return p.finish(req, start)
}

// attend fans attention extraction out over the top-K scoring concepts. Each
// concept's failure is isolated: it is logged, counted and dropped without
// blocking the others. The patch grid depends only on the image, so it is
// fetched once; a grid failure degrades every concept to score-only.
func (p *Pipeline) attend(ctx context.Context, req *request, imgB64 string, scores []types.ConceptScore) []composer.Detection {
	selected := p.selectDetections(scores)
	if len(selected) == 0 {
		return nil
	}

	var grid *types.FeatureGrid
	var gridErr error
	p.withDevice(func() {
		grid, gridErr = p.attention.GridFor(ctx, imgB64)
	})
	if gridErr != nil {
		req.log.WithError(gridErr).Warn("Spatial feature extraction failed, reporting score-only detections")
		return selected
	}

	// GradCAM and region extraction are pure CPU work, safe to run per
	// concept in parallel off the device. A concept whose extraction fails
	// is dropped from the attended set: it stays in the report with its
	// score but carries no boxes, and it never blocks the other concepts.
	var wg sync.WaitGroup
	for i := range selected {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			det := &selected[i]

			textVec, err := p.scorer.ConceptEmbedding(ctx, det.Concept.ID)
			if err == nil {
				var attMap *types.AttentionMap
				attMap, err = saliency.GradCAM(grid, det.Concept.ID, textVec)
				if err == nil {
					det.Boxes = p.regions.ExtractBoxes(attMap, det.Concept, det.Similarity)
					req.log.WithFields(logrus.Fields{
						"concept": det.Concept.ID,
						"boxes":   len(det.Boxes),
					}).Debug("Attention extraction complete")
					return
				}
			}
			req.log.WithError(err).WithField("concept", det.Concept.ID).Warn("Dropping concept from attended set")
			if p.metrics != nil {
				p.metrics.ConceptFailures.Inc()
			}
		}(i)
	}
	wg.Wait()
	return selected
}

// selectDetections keeps the top-K scores above the floor, in rank order.
func (p *Pipeline) selectDetections(scores []types.ConceptScore) []composer.Detection {
	var selected []composer.Detection
	for _, score := range scores {
		if len(selected) == p.config.TopK {
			break
		}
		if score.Similarity < p.config.ScoreFloor {
			break
		}
		concept, err := p.catalog.Get(score.ConceptID)
		if err != nil {
			continue
		}
		selected = append(selected, composer.Detection{
			Concept:    concept,
			Similarity: score.Similarity,
		})
	}
	return selected
}

// withDevice serializes model inference when the compute device cannot serve
// parallel calls.
func (p *Pipeline) withDevice(f func()) {
	if p.config.SerializeDevice {
		p.deviceMu.Lock()
		defer p.deviceMu.Unlock()
	}
	f()
}

func (p *Pipeline) finish(req *request, start time.Time) *types.AnalysisReport {
	report := req.report
	report.ProcessingTime = time.Since(start).Seconds()

	outcome := "success"
	if !report.Success {
		outcome = "failure"
	}
	p.metrics.ObserveAnalysis(outcome, report.ProcessingTime, len(report.BoundingBoxes))

	req.log.WithFields(logrus.Fields{
		"state":           req.state,
		"success":         report.Success,
		"boxes":           len(report.BoundingBoxes),
		"processing_time": report.ProcessingTime,
	}).Info("Analysis complete")
	return report
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}
