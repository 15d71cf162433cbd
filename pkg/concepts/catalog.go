// Package concepts holds the fixed catalog of propaganda-technique concepts
// that images are scored against. The catalog is loaded once and read-only.
package concepts

import (
	apperrors "go-propaganda-spotter/pkg/errors"
)

// TechniqueType groups related concepts for narrative and display purposes.
type TechniqueType string

const (
	TypeAuthority  TechniqueType = "authority"
	TypeEmotional  TechniqueType = "emotional"
	TypeFear       TechniqueType = "fear"
	TypePatriotic  TechniqueType = "patriotic"
	TypeLeader     TechniqueType = "leader"
	TypeConflict   TechniqueType = "conflict"
	TypeAction     TechniqueType = "action"
	TypeHistorical TechniqueType = "historical"
	TypeGeneral    TechniqueType = "general"
)

// typeColors maps each technique type to its display color.
var typeColors = map[TechniqueType]string{
	TypeAuthority:  "#ef4444",
	TypeEmotional:  "#f97316",
	TypeFear:       "#dc2626",
	TypePatriotic:  "#3b82f6",
	TypeLeader:     "#8b5cf6",
	TypeConflict:   "#059669",
	TypeAction:     "#eab308",
	TypeHistorical: "#6b7280",
	TypeGeneral:    "#6b7280",
}

// Concept is one propaganda technique. Description is both the text side of
// the embedding comparison and the explanation inserted into the analysis.
type Concept struct {
	ID          string
	Name        string
	Description string
	Type        TechniqueType
	Color       string
}

// Catalog is an ordered, immutable set of concepts.
type Catalog struct {
	concepts []Concept
	byID     map[string]int
}

// defaultConcepts is the built-in technique set.
var defaultConcepts = []Concept{
	{ID: "authority-uniform", Name: "Authority Figure", Description: "authority figure in uniform", Type: TypeAuthority},
	{ID: "military-poster", Name: "Military Poster", Description: "military propaganda poster", Type: TypeConflict},
	{ID: "political-rally", Name: "Political Rally", Description: "political rally with flags", Type: TypePatriotic},
	{ID: "emotional-manipulation", Name: "Emotional Manipulation", Description: "emotional manipulation imagery", Type: TypeEmotional},
	{ID: "fear-inducing", Name: "Fear Appeal", Description: "fear-inducing propaganda", Type: TypeFear},
	{ID: "patriotic-symbols", Name: "Patriotic Symbolism", Description: "patriotic symbols and colors", Type: TypePatriotic},
	{ID: "leader-worship", Name: "Leader Worship", Description: "leader worship imagery", Type: TypeLeader},
	{ID: "us-vs-them", Name: "Us vs Them", Description: "us versus them messaging", Type: TypeConflict},
	{ID: "call-to-action", Name: "Call to Action", Description: "call to action propaganda", Type: TypeAction},
	{ID: "historical-art", Name: "Historical Propaganda", Description: "historical propaganda art", Type: TypeHistorical},
	{ID: "war-poster", Name: "War Poster", Description: "war propaganda poster", Type: TypeConflict},
	{ID: "campaign-imagery", Name: "Campaign Imagery", Description: "political campaign imagery", Type: TypeGeneral},
}

// NewCatalog creates a catalog from the given concepts, filling display colors
// from the type color map where unset.
func NewCatalog(concepts []Concept) *Catalog {
	c := &Catalog{
		concepts: make([]Concept, len(concepts)),
		byID:     make(map[string]int, len(concepts)),
	}
	for i, concept := range concepts {
		if concept.Color == "" {
			concept.Color = ColorFor(concept.Type)
		}
		c.concepts[i] = concept
		c.byID[concept.ID] = i
	}
	return c
}

// Default returns the catalog with the built-in technique set.
func Default() *Catalog {
	return NewCatalog(defaultConcepts)
}

// List returns the concepts in catalog order.
func (c *Catalog) List() []Concept {
	out := make([]Concept, len(c.concepts))
	copy(out, c.concepts)
	return out
}

// Get returns the concept with the given id.
func (c *Catalog) Get(id string) (Concept, error) {
	i, ok := c.byID[id]
	if !ok {
		return Concept{}, apperrors.NewNotFoundError("unknown concept id: "+id, nil)
	}
	return c.concepts[i], nil
}

// Size returns the number of concepts in the catalog.
func (c *Catalog) Size() int {
	return len(c.concepts)
}

// ColorFor returns the display color for a technique type.
func ColorFor(t TechniqueType) string {
	if color, ok := typeColors[t]; ok {
		return color
	}
	return typeColors[TypeGeneral]
}
