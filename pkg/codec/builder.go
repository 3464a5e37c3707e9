package codec

import (
	"fmt"
	"image"

	"github.com/ssargent/riskmap/pkg/rkmap"
)

// Builder accumulates decoded fields and produces the immutable map once
// decoding completes. Setting a field twice keeps the last value.
type Builder struct {
	codename    *string
	displayName *string
	author      *string
	territories []rkmap.Territory
	borders     []rkmap.Border
	hasVertices bool
	hasEdges    bool
	baseLayer   image.Image
	textLayer   image.Image
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetCodename(s string) *Builder {
	b.codename = &s
	return b
}

func (b *Builder) SetDisplayName(s string) *Builder {
	b.displayName = &s
	return b
}

func (b *Builder) SetAuthor(s string) *Builder {
	b.author = &s
	return b
}

func (b *Builder) SetTerritories(t []rkmap.Territory) *Builder {
	b.territories = t
	b.hasVertices = true
	return b
}

func (b *Builder) SetBorders(borders []rkmap.Border) *Builder {
	b.borders = borders
	b.hasEdges = true
	return b
}

func (b *Builder) SetBaseLayer(img image.Image) *Builder {
	b.baseLayer = img
	return b
}

func (b *Builder) SetTextLayer(img image.Image) *Builder {
	b.textLayer = img
	return b
}

// Build returns the map, or an error wrapping ErrMissingField naming the
// first field that was never set.
func (b *Builder) Build() (*rkmap.Map, error) {
	missing := []struct {
		field Field
		unset bool
	}{
		{FieldCodeName, b.codename == nil},
		{FieldDisplayName, b.displayName == nil},
		{FieldAuthorName, b.author == nil},
		{FieldVertices, !b.hasVertices},
		{FieldEdges, !b.hasEdges},
		{FieldImageBase, b.baseLayer == nil},
		{FieldImageText, b.textLayer == nil},
	}
	for _, m := range missing {
		if m.unset {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, m.field)
		}
	}
	return rkmap.New(rkmap.Params{
		Codename:    *b.codename,
		DisplayName: *b.displayName,
		Author:      *b.author,
		Territories: b.territories,
		Borders:     b.borders,
		BaseLayer:   b.baseLayer,
		TextLayer:   b.textLayer,
	}), nil
}
