// Package composer assembles caption, concept scores and extracted regions
// into the final report text. Pure aggregation: no model calls, deterministic
// for identical inputs.
package composer

import (
	"fmt"
	"strings"

	"go-propaganda-spotter/pkg/concepts"
	"go-propaganda-spotter/pkg/types"
)

// typeNarratives explains each technique type to the reader.
var typeNarratives = map[concepts.TechniqueType]string{
	concepts.TypeAuthority:  "Authority Appeal: authority figures or institutional symbols designed to inspire trust and compliance through perceived credibility and power.",
	concepts.TypeEmotional:  "Emotional Manipulation: visual elements crafted to evoke strong emotional responses, bypassing rational analysis.",
	concepts.TypeFear:       "Fear-based Messaging: imagery designed to create anxiety or fear to motivate specific behaviors or beliefs.",
	concepts.TypePatriotic:  "Patriotic Symbolism: national symbols, colors or imagery used to create emotional resonance with national identity.",
	concepts.TypeLeader:     "Leadership Cult: imagery promoting reverence or worship of specific leaders or personalities.",
	concepts.TypeConflict:   "Us vs Them Framing: visual elements that create divisions between groups, promoting in-group loyalty and out-group hostility.",
	concepts.TypeAction:     "Call to Action: visual cues designed to motivate specific behaviors or responses from the viewer.",
	concepts.TypeHistorical: "Historical References: historical imagery used to legitimize current messages or create emotional connections.",
	concepts.TypeGeneral:    "General Persuasion: persuasive visual composition without a single dominant technique.",
}

// Detection is one concept the pipeline ran attention extraction for,
// together with whatever boxes survived region extraction.
type Detection struct {
	Concept    concepts.Concept
	Similarity float64
	Boxes      []types.BoundingBox
}

// Result is the composed, model-free portion of the final report.
type Result struct {
	AnalysisText     string
	HighlightedWords []types.HighlightedWord
	ConfidenceScore  float64
}

// Composer builds report text from pipeline outputs.
type Composer struct{}

// New creates a composer.
func New() *Composer {
	return &Composer{}
}

// Compose builds the narrative. detections must be in descending score order;
// caption may be empty (caption failure degrades to a report without the
// scene-setting clause). The overall confidence is the similarity of the
// single top-ranked detection, zero when nothing was detected.
func (c *Composer) Compose(caption string, detections []Detection) Result {
	var result Result
	var parts []string

	if caption != "" {
		parts = append(parts, fmt.Sprintf("**Image Analysis**: %s", caption))
	}

	if len(detections) == 0 {
		parts = append(parts, "No significant propaganda techniques detected in this image.")
		return Result{AnalysisText: strings.Join(parts, "\n\n")}
	}

	result.ConfidenceScore = detections[0].Similarity

	parts = append(parts, "**Detected Propaganda Techniques**:")
	for _, det := range detections {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**: %s.", det.Concept.Name, det.Concept.Description)
		if narrative, ok := typeNarratives[det.Concept.Type]; ok {
			fmt.Fprintf(&b, " %s", narrative)
		}
		switch n := len(det.Boxes); {
		case n == 1:
			b.WriteString(" One region of the image is highlighted for this technique.")
		case n > 1:
			fmt.Fprintf(&b, " %d regions of the image are highlighted for this technique.", n)
		}
		fmt.Fprintf(&b, " *Confidence: %.1f%%*", det.Similarity*100)
		parts = append(parts, b.String())

		for _, box := range det.Boxes {
			result.HighlightedWords = append(result.HighlightedWords, types.HighlightedWord{
				Word:  det.Concept.Name,
				ID:    box.ID,
				Color: box.Color,
			})
		}
	}

	parts = append(parts, overallAssessment(result.ConfidenceScore))
	result.AnalysisText = strings.Join(parts, "\n\n")
	return result
}

// overallAssessment tiers the closing statement on the top similarity.
func overallAssessment(confidence float64) string {
	switch {
	case confidence > 0.3:
		return "**Overall Assessment**: This image shows strong indicators of propaganda techniques. " +
			"The combination of visual elements appears designed to influence opinion or behavior " +
			"through emotional and psychological appeals rather than factual argumentation."
	case confidence > 0.2:
		return "**Overall Assessment**: This image contains moderate propaganda elements. " +
			"Some visual techniques may be intended to influence perception, though the overall " +
			"effect is less pronounced."
	default:
		return "**Overall Assessment**: This image shows minimal propaganda characteristics. " +
			"While some persuasive elements may be present, they appear relatively subtle or incidental."
	}
}
