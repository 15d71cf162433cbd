package types

// BoundingBox locates one detected image region. All geometry is expressed as
// percentages of the image dimensions in [0,100], so the consumer can rescale
// to whatever size it is currently rendering at.
type BoundingBox struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	Confidence float64 `json:"confidence"`
}

// HighlightedWord links a word in the analysis text to the box with the same id.
type HighlightedWord struct {
	Word  string `json:"word"`
	ID    string `json:"id"`
	Color string `json:"color"`
}

// AnalysisReport is the sole artifact returned to the request boundary.
// ErrorMessage is populated only when Success is false.
type AnalysisReport struct {
	Success          bool              `json:"success"`
	AnalysisText     string            `json:"analysis_text"`
	BoundingBoxes    []BoundingBox     `json:"bounding_boxes"`
	HighlightedWords []HighlightedWord `json:"highlighted_words"`
	ConfidenceScore  float64           `json:"confidence_score"`
	ProcessingTime   float64           `json:"processing_time"`
	ErrorMessage     string            `json:"error_message,omitempty"`
}

// ConceptScore is one concept's cosine similarity against the image, with its
// position in the descending ranking.
type ConceptScore struct {
	ConceptID  string  `json:"concept_id"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// AttentionMap is a saliency grid at the model's internal feature resolution,
// normalized to [0,1]. Grid is row-major: Grid[y][x].
type AttentionMap struct {
	ConceptID string
	Grid      [][]float64
	Width     int
	Height    int
}

// FeatureGrid is the pre-pooling spatial feature map of the embedding model:
// a Height x Width grid of Channels-dimensional patch features in the joint
// image/text space. The pooled image embedding is the L2-normalized mean of
// the patch features; that fixed pooling structure is what makes the gradient
// path computable outside the model.
type FeatureGrid struct {
	Width    int
	Height   int
	Channels int
	// Features is indexed [y][x][c].
	Features [][][]float32
}

// At returns the patch feature vector at grid position (x, y).
func (g *FeatureGrid) At(x, y int) []float32 {
	return g.Features[y][x]
}
