// Package rkmap holds the immutable map values carried by an .rkm file:
// territories, their nuclei, the borders between them and the two raster
// layers drawn underneath.
package rkmap

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

// ErrUnknownTerritory is returned by Validate when a border names a territory
// the map does not contain.
var ErrUnknownTerritory = errors.New("border references unknown territory")

// Params collects everything needed to construct a Map.
type Params struct {
	Codename    string
	DisplayName string
	Author      string
	Territories []Territory
	Borders     []Border
	BaseLayer   image.Image
	TextLayer   image.Image
}

// Map is a decoded game map. It is immutable after New returns.
type Map struct {
	codename    string
	displayName string
	author      string
	territories map[Identity]Territory
	borders     map[Border]struct{}
	baseLayer   image.Image
	textLayer   image.Image
}

// New builds a Map from p. Territories are unique by identity (the last one
// with a given identity wins) and borders are unique as ordered pairs.
func New(p Params) *Map {
	m := &Map{
		codename:    p.Codename,
		displayName: p.DisplayName,
		author:      p.Author,
		territories: make(map[Identity]Territory, len(p.Territories)),
		borders:     make(map[Border]struct{}, len(p.Borders)),
		baseLayer:   p.BaseLayer,
		textLayer:   p.TextLayer,
	}
	for _, t := range p.Territories {
		m.territories[t.identity] = t
	}
	for _, b := range p.Borders {
		m.borders[b] = struct{}{}
	}
	return m
}

// Codename returns the short stable identifier of the map.
func (m *Map) Codename() string { return m.codename }

// DisplayName returns the human readable map name.
func (m *Map) DisplayName() string { return m.displayName }

// Author returns the map author.
func (m *Map) Author() string { return m.author }

// BaseLayer returns the base raster layer.
func (m *Map) BaseLayer() image.Image { return m.baseLayer }

// TextLayer returns the text raster layer.
func (m *Map) TextLayer() image.Image { return m.textLayer }

// Territories returns the territories sorted by identity.
func (m *Map) Territories() []Territory {
	out := make([]Territory, 0, len(m.territories))
	for _, t := range m.territories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].identity < out[j].identity })
	return out
}

// Territory looks up a territory by identity.
func (m *Map) Territory(id Identity) (Territory, bool) {
	t, ok := m.territories[id]
	return t, ok
}

// Borders returns the borders sorted by source, then target.
func (m *Map) Borders() []Border {
	out := make([]Border, 0, len(m.borders))
	for b := range m.borders {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// HasBorder reports whether the exact ordered pair b is present.
func (m *Map) HasBorder(b Border) bool {
	_, ok := m.borders[b]
	return ok
}

// Adjacent reports whether a and b share a border in either direction.
func (m *Map) Adjacent(a, b Identity) bool {
	return m.HasBorder(Border{Source: a, Target: b}) || m.HasBorder(Border{Source: b, Target: a})
}

// Validate checks that every border endpoint names a territory of the map.
// The codec does not call it; it round-trips whatever identities it is given.
func (m *Map) Validate() error {
	for _, b := range m.Borders() {
		for _, id := range [...]Identity{b.Source, b.Target} {
			if _, ok := m.territories[id]; !ok {
				return fmt.Errorf("%w: %q in border %s", ErrUnknownTerritory, id, b)
			}
		}
	}
	return nil
}
