package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

// DefaultMaxFetchBytes caps how much DecodeURL reads from a remote resource.
const DefaultMaxFetchBytes = 64 << 20

// Decoder reads maps in the .rkm container format. A Decoder holds only
// configuration and is safe for concurrent use.
type Decoder struct {
	images        raster.ImageCodec
	fetcher       Fetcher
	maxFetchBytes int64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithDecoderImageCodec sets the codec used to decompress the raster layers.
func WithDecoderImageCodec(c raster.ImageCodec) DecoderOption {
	return func(d *Decoder) { d.images = c }
}

// WithFetcher sets the HTTP client used by DecodeURL.
func WithFetcher(f Fetcher) DecoderOption {
	return func(d *Decoder) { d.fetcher = f }
}

// WithMaxFetchBytes caps the size of resources read by DecodeURL.
func WithMaxFetchBytes(n int64) DecoderOption {
	return func(d *Decoder) { d.maxFetchBytes = n }
}

// NewDecoder creates a decoder with the PNG image codec.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		images:        raster.NewPNG(),
		fetcher:       defaultFetcher,
		maxFetchBytes: DefaultMaxFetchBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads a whole stream of the given total size and returns the map.
//
// Records are read in file order until the checksum record. Payloads are
// interpreted only after the checksum has been verified, so a corrupted
// payload surfaces as an integrity error rather than a parse failure.
// Unknown tags are read and skipped. No partial map is ever returned.
func (d *Decoder) Decode(r io.Reader, size int64) (*rkmap.Map, error) {
	fr, err := newFrameReader("decode", r, size)
	if err != nil {
		return nil, err
	}

	var slots [fieldCount]*frame
	for {
		f, err := fr.next()
		if err != nil {
			return nil, err
		}

		switch f.field {
		case FieldUnknown:
			// Forward compatibility: hashed, otherwise ignored.
		case FieldCodeName, FieldDisplayName, FieldAuthorName,
			FieldVertices, FieldEdges, FieldImageBase, FieldImageText:
			slots[f.field] = f
		case FieldChecksum:
			if err := fr.verify(f); err != nil {
				return nil, err
			}
			if err := fr.finish(); err != nil {
				return nil, err
			}
			return d.build(&slots)
		}

		fr.accept(f)
	}
}

// DecodeBytes decodes an in-memory stream.
func (d *Decoder) DecodeBytes(data []byte) (*rkmap.Map, error) {
	if data == nil {
		return nil, newError(KindValidation, "decode", FieldUnknown, -1, ErrNilStream)
	}
	return d.Decode(bytes.NewReader(data), int64(len(data)))
}

func (d *Decoder) build(slots *[fieldCount]*frame) (*rkmap.Map, error) {
	b := NewBuilder()
	for _, f := range slots {
		if f == nil {
			continue
		}
		if err := d.apply(b, f); err != nil {
			return nil, newError(KindStructural, "decode", f.field, f.offset, err)
		}
	}
	m, err := b.Build()
	if err != nil {
		return nil, newError(KindStructural, "decode", FieldUnknown, -1, err)
	}
	return m, nil
}

func (d *Decoder) apply(b *Builder, f *frame) error {
	switch f.field {
	case FieldCodeName, FieldDisplayName, FieldAuthorName:
		s, err := decodeText(f.payload)
		if err != nil {
			return err
		}
		switch f.field {
		case FieldCodeName:
			b.SetCodename(s)
		case FieldDisplayName:
			b.SetDisplayName(s)
		default:
			b.SetAuthor(s)
		}
	case FieldVertices:
		territories, err := decodeVertices(f.payload)
		if err != nil {
			return err
		}
		b.SetTerritories(territories)
	case FieldEdges:
		borders, err := decodeEdges(f.payload)
		if err != nil {
			return err
		}
		b.SetBorders(borders)
	case FieldImageBase, FieldImageText:
		img, err := d.images.Decode(f.payload)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		if f.field == FieldImageBase {
			b.SetBaseLayer(img)
		} else {
			b.SetTextLayer(img)
		}
	}
	return nil
}
