// Package manifest reads and writes the YAML authoring form of a map.
//
// A manifest names the map, lists its territories and borders, and points at
// two PNG files for the raster layers:
//
//	codename: abc
//	display_name: ABC Land
//	author: tester
//	base_layer: base.png
//	text_layer: text.png
//	territories:
//	  - id: t1
//	    nuclei: [[0, 0]]
//	borders:
//	  - [t1, t2]
//
// Layer paths are resolved relative to the manifest file.
package manifest

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

// Layer file names written by Export.
const (
	BaseLayerFile = "base.png"
	TextLayerFile = "text.png"
	ManifestFile  = "map.yaml"
)

// ErrInvalidManifest is wrapped by every content error Load returns.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is the YAML document.
type Manifest struct {
	Codename    string      `yaml:"codename"`
	DisplayName string      `yaml:"display_name"`
	Author      string      `yaml:"author"`
	BaseLayer   string      `yaml:"base_layer"`
	TextLayer   string      `yaml:"text_layer"`
	Territories []Territory `yaml:"territories"`
	Borders     [][2]string `yaml:"borders"`
}

// Territory is one territory entry; nuclei are [x, y] pairs.
type Territory struct {
	ID     string     `yaml:"id"`
	Nuclei [][2]int32 `yaml:"nuclei"`
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &m, nil
}

// Load reads the manifest at path and builds the map it describes.
func Load(path string) (*rkmap.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	man, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return man.Build(filepath.Dir(path), raster.NewPNG())
}

// Build resolves the layer files against dir and assembles the map.
func (man *Manifest) Build(dir string, images raster.ImageCodec) (*rkmap.Map, error) {
	for _, f := range []struct{ name, value string }{
		{"codename", man.Codename},
		{"display_name", man.DisplayName},
		{"author", man.Author},
		{"base_layer", man.BaseLayer},
		{"text_layer", man.TextLayer},
	} {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidManifest, f.name)
		}
	}

	base, err := readLayer(dir, man.BaseLayer, images)
	if err != nil {
		return nil, err
	}
	text, err := readLayer(dir, man.TextLayer, images)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(man.Territories))
	territories := make([]rkmap.Territory, 0, len(man.Territories))
	for _, t := range man.Territories {
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate territory %q", ErrInvalidManifest, t.ID)
		}
		seen[t.ID] = true
		nuclei := make([]rkmap.Nucleus, 0, len(t.Nuclei))
		for _, n := range t.Nuclei {
			nuclei = append(nuclei, rkmap.Nucleus{X: n[0], Y: n[1]})
		}
		territories = append(territories, rkmap.NewTerritory(rkmap.Identity(t.ID), nuclei...))
	}

	borders := make([]rkmap.Border, 0, len(man.Borders))
	for _, b := range man.Borders {
		borders = append(borders, rkmap.Border{Source: rkmap.Identity(b[0]), Target: rkmap.Identity(b[1])})
	}

	m := rkmap.New(rkmap.Params{
		Codename:    man.Codename,
		DisplayName: man.DisplayName,
		Author:      man.Author,
		Territories: territories,
		Borders:     borders,
		BaseLayer:   base,
		TextLayer:   text,
	})
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, nil
}

func readLayer(dir, name string, images raster.ImageCodec) (image.Image, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer %s: %w", name, err)
	}
	img, err := images.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: layer %s: %v", ErrInvalidManifest, name, err)
	}
	return img, nil
}

// FromMap returns the manifest describing m, with the default layer names.
func FromMap(m *rkmap.Map) *Manifest {
	man := &Manifest{
		Codename:    m.Codename(),
		DisplayName: m.DisplayName(),
		Author:      m.Author(),
		BaseLayer:   BaseLayerFile,
		TextLayer:   TextLayerFile,
	}
	for _, t := range m.Territories() {
		entry := Territory{ID: t.Identity().String()}
		for _, n := range t.Nuclei() {
			entry.Nuclei = append(entry.Nuclei, [2]int32{n.X, n.Y})
		}
		man.Territories = append(man.Territories, entry)
	}
	for _, b := range m.Borders() {
		man.Borders = append(man.Borders, [2]string{b.Source.String(), b.Target.String()})
	}
	return man
}

// Export writes m to dir as a manifest plus its two PNG layers and returns
// the manifest path.
func Export(m *rkmap.Map, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	images := raster.NewPNG()
	man := FromMap(m)

	for _, layer := range []struct {
		name string
		img  image.Image
	}{
		{man.BaseLayer, m.BaseLayer()},
		{man.TextLayer, m.TextLayer()},
	} {
		data, err := images.Encode(layer.img)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", layer.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, layer.name), data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", layer.name, err)
		}
	}

	data, err := yaml.Marshal(man)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}
