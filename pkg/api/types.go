package api

import (
	"context"
	"image"

	"github.com/ssargent/riskmap/pkg/rkmap"
	"github.com/ssargent/riskmap/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	MaxBodyBytes   int64
	MaxImagePixels int64 // per raster layer; zero means raster.DefaultMaxPixels
}

// Archive is the subset of storage.Archive the server needs.
type Archive interface {
	Put(ctx context.Context, blob []byte) (*storage.Revision, error)
	Get(ctx context.Context, id string) (*storage.Revision, error)
	Latest(ctx context.Context, codename string) (*storage.Revision, error)
	History(ctx context.Context, codename string) ([]*storage.Revision, error)
	List(ctx context.Context) ([]*storage.Revision, error)
	Blob(ctx context.Context, id string) ([]byte, error)
}

// MapSummary is the JSON view of a decoded map.
type MapSummary struct {
	Codename    string             `json:"codename"`
	DisplayName string             `json:"display_name"`
	Author      string             `json:"author"`
	Territories []TerritorySummary `json:"territories"`
	Borders     []BorderSummary    `json:"borders"`
	BaseLayer   ImageSummary       `json:"base_layer"`
	TextLayer   ImageSummary       `json:"text_layer"`
}

// TerritorySummary lists a territory and its nuclei as [x, y] pairs.
type TerritorySummary struct {
	ID     string     `json:"id"`
	Nuclei [][2]int32 `json:"nuclei"`
}

// BorderSummary is a directed border.
type BorderSummary struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ImageSummary describes a raster layer without its pixels.
type ImageSummary struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func summarize(m *rkmap.Map) MapSummary {
	s := MapSummary{
		Codename:    m.Codename(),
		DisplayName: m.DisplayName(),
		Author:      m.Author(),
		Territories: []TerritorySummary{},
		Borders:     []BorderSummary{},
		BaseLayer:   imageSummary(m.BaseLayer()),
		TextLayer:   imageSummary(m.TextLayer()),
	}
	for _, t := range m.Territories() {
		ts := TerritorySummary{ID: t.Identity().String(), Nuclei: [][2]int32{}}
		for _, n := range t.Nuclei() {
			ts.Nuclei = append(ts.Nuclei, [2]int32{n.X, n.Y})
		}
		s.Territories = append(s.Territories, ts)
	}
	for _, b := range m.Borders() {
		s.Borders = append(s.Borders, BorderSummary{Source: b.Source.String(), Target: b.Target.String()})
	}
	return s
}

func imageSummary(img image.Image) ImageSummary {
	if img == nil {
		return ImageSummary{}
	}
	b := img.Bounds()
	return ImageSummary{Width: b.Dx(), Height: b.Dy()}
}
