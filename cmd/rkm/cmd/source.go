package cmd

import (
	"context"
	"strings"

	"github.com/ssargent/riskmap/pkg/codec"
	"github.com/ssargent/riskmap/pkg/config"
	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// imageCodec returns the PNG codec bounded by the configured pixel limit.
func imageCodec(cfg *config.Config) *raster.PNG {
	images := raster.NewPNG()
	images.MaxPixels = cfg.Codec.MaxImagePixels
	return images
}

// decodeSource decodes a map from a local path or an http(s) URL.
func decodeSource(ctx context.Context, cfg *config.Config, src string) (*rkmap.Map, error) {
	dec := codec.NewDecoder(
		codec.WithMaxFetchBytes(cfg.Codec.MaxFetchBytes),
		codec.WithDecoderImageCodec(imageCodec(cfg)),
	)
	if !isURL(src) {
		return dec.DecodeFile(src)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Codec.FetchTimeout)
	defer cancel()
	return dec.DecodeURL(ctx, src)
}
