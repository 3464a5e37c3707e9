package rkmap

import (
	"fmt"
	"sort"
)

// Identity is the opaque key of a territory, unique within a map.
type Identity string

// String returns the identity text.
func (id Identity) String() string { return string(id) }

// Nucleus is an interior reference point of a territory.
type Nucleus struct {
	X int32
	Y int32
}

// Less orders nuclei by X, then Y.
func (n Nucleus) Less(o Nucleus) bool {
	if n.X != o.X {
		return n.X < o.X
	}
	return n.Y < o.Y
}

// Territory is a named region with a set of nuclei.
type Territory struct {
	identity Identity
	nuclei   []Nucleus // sorted, no duplicates
}

// NewTerritory creates a territory. Duplicate nuclei collapse.
func NewTerritory(id Identity, nuclei ...Nucleus) Territory {
	set := make(map[Nucleus]struct{}, len(nuclei))
	sorted := make([]Nucleus, 0, len(nuclei))
	for _, n := range nuclei {
		if _, ok := set[n]; ok {
			continue
		}
		set[n] = struct{}{}
		sorted = append(sorted, n)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return Territory{identity: id, nuclei: sorted}
}

// Identity returns the territory key.
func (t Territory) Identity() Identity { return t.identity }

// Nuclei returns a copy of the nucleus set in (X, Y) order.
func (t Territory) Nuclei() []Nucleus {
	out := make([]Nucleus, len(t.nuclei))
	copy(out, t.nuclei)
	return out
}

// Border is an adjacency between two territories. It is stored as an ordered
// pair; use SameEdge or Canonical when direction must not matter.
type Border struct {
	Source Identity
	Target Identity
}

// String formats the border as "source->target".
func (b Border) String() string {
	return fmt.Sprintf("%s->%s", b.Source, b.Target)
}

// Less orders borders by source, then target.
func (b Border) Less(o Border) bool {
	if b.Source != o.Source {
		return b.Source < o.Source
	}
	return b.Target < o.Target
}

// Canonical returns the border with the lexically smaller identity first.
func (b Border) Canonical() Border {
	if b.Target < b.Source {
		return Border{Source: b.Target, Target: b.Source}
	}
	return b
}

// SameEdge reports whether b and o connect the same two territories.
func (b Border) SameEdge(o Border) bool {
	return b.Canonical() == o.Canonical()
}
