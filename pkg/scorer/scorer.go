// Package scorer ranks catalog concepts by similarity to an image using the
// shared image/text embedding space.
package scorer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"go-propaganda-spotter/pkg/client"
	"go-propaganda-spotter/pkg/concepts"
	"go-propaganda-spotter/pkg/types"
)

// Scorer scores an image against every concept in the catalog. Concept text
// embeddings are cached for the process lifetime: the catalog is immutable,
// so the cache is write-once per concept id and recomputation is idempotent.
type Scorer struct {
	catalog  *concepts.Catalog
	embedder client.EmbeddingClient

	mu        sync.RWMutex
	textCache map[string][]float32
}

// New creates a scorer over the given catalog and embedding backend.
func New(catalog *concepts.Catalog, embedder client.EmbeddingClient) *Scorer {
	return &Scorer{
		catalog:   catalog,
		embedder:  embedder,
		textCache: make(map[string][]float32),
	}
}

// ScoreAll embeds the image once, compares it to every concept description and
// returns scores sorted by descending similarity with ranks 0..N-1. Ties keep
// catalog insertion order.
func (s *Scorer) ScoreAll(ctx context.Context, imgB64 string) ([]types.ConceptScore, error) {
	imgVec, err := s.embedder.EmbedImage(ctx, imgB64)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}

	catalogConcepts := s.catalog.List()
	scores := make([]types.ConceptScore, 0, len(catalogConcepts))
	for _, concept := range catalogConcepts {
		textVec, err := s.conceptEmbedding(ctx, concept)
		if err != nil {
			return nil, fmt.Errorf("embed concept %q: %w", concept.ID, err)
		}
		scores = append(scores, types.ConceptScore{
			ConceptID:  concept.ID,
			Similarity: CosineSimilarity(imgVec, textVec),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	for i := range scores {
		scores[i].Rank = i
	}
	return scores, nil
}

// ConceptEmbedding returns the cached text embedding for a concept id,
// computing and storing it on first use.
func (s *Scorer) ConceptEmbedding(ctx context.Context, id string) ([]float32, error) {
	concept, err := s.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return s.conceptEmbedding(ctx, concept)
}

func (s *Scorer) conceptEmbedding(ctx context.Context, concept concepts.Concept) ([]float32, error) {
	s.mu.RLock()
	vec, ok := s.textCache[concept.ID]
	s.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := s.embedder.EmbedText(ctx, NormalizeText(concept.Description))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// A concurrent request may have filled the key already; both computed the
	// same value, so either copy is fine.
	if cached, ok := s.textCache[concept.ID]; ok {
		vec = cached
	} else {
		s.textCache[concept.ID] = vec
	}
	s.mu.Unlock()
	return vec, nil
}

// CosineSimilarity computes the cosine similarity of two vectors, returning 0
// for mismatched or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NormalizeText performs Unicode NFKC normalization and strips control
// characters so concept text embeds consistently.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return normed
}
