package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"math"

	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

// Encoder writes maps in the .rkm container format. An Encoder holds only
// configuration and is safe for concurrent use.
type Encoder struct {
	images    raster.ImageCodec
	closeSink bool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithImageCodec sets the codec used to compress the raster layers.
func WithImageCodec(c raster.ImageCodec) EncoderOption {
	return func(e *Encoder) { e.images = c }
}

// WithCloseSink makes Encode close the sink when it implements io.Closer,
// whether or not encoding succeeded.
func WithCloseSink(enabled bool) EncoderOption {
	return func(e *Encoder) { e.closeSink = enabled }
}

// NewEncoder creates an encoder. The default image codec is PNG and the
// sink is left open.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{images: raster.NewPNG()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type record struct {
	field   Field
	payload []byte
}

// Encode writes m to w: signature, code name, display name, author,
// vertices, edges, base image, text image and finally the checksum.
// Every payload is built and validated before the first byte is written.
func (e *Encoder) Encode(m *rkmap.Map, w io.Writer) (err error) {
	if w == nil {
		return newError(KindValidation, "encode", FieldUnknown, -1, ErrNilStream)
	}
	if c, ok := w.(io.Closer); ok && e.closeSink {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = newError(KindIO, "encode", FieldUnknown, -1, cerr)
			}
		}()
	}
	if m == nil {
		return newError(KindValidation, "encode", FieldUnknown, -1, ErrNilMap)
	}

	records, err := e.records(m)
	if err != nil {
		return err
	}

	rw, err := newRecordWriter(w)
	if err != nil {
		return err
	}
	if err := rw.writeSignature(); err != nil {
		return err
	}
	for _, r := range records {
		if err := rw.writeRecord(r.field, r.payload); err != nil {
			return err
		}
	}
	return rw.writeChecksum()
}

// EncodeBytes encodes m into a new byte slice.
func (e *Encoder) EncodeBytes(m *rkmap.Map) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) records(m *rkmap.Map) ([]record, error) {
	records := make([]record, 0, len(encodeOrder))
	for _, f := range encodeOrder {
		payload, err := e.payload(f, m)
		if err != nil {
			return nil, newError(KindValidation, "encode", f, -1, err)
		}
		if len(payload) < 1 {
			return nil, newError(KindValidation, "encode", f, -1,
				fmt.Errorf("%w: invalid field length of %d", ErrEmptyField, len(payload)))
		}
		if len(payload) > math.MaxInt32 {
			return nil, newError(KindValidation, "encode", f, -1, ErrFieldTooLarge)
		}
		records = append(records, record{field: f, payload: payload})
	}
	return records, nil
}

func (e *Encoder) payload(f Field, m *rkmap.Map) ([]byte, error) {
	switch f {
	case FieldCodeName:
		return []byte(m.Codename()), nil
	case FieldDisplayName:
		return []byte(m.DisplayName()), nil
	case FieldAuthorName:
		return []byte(m.Author()), nil
	case FieldVertices:
		return encodeVertices(m.Territories())
	case FieldEdges:
		return encodeEdges(m.Borders())
	case FieldImageBase:
		return e.images.Encode(m.BaseLayer())
	case FieldImageText:
		return e.images.Encode(m.TextLayer())
	default:
		return nil, errors.New("field is not encodable")
	}
}

// recordWriter is the single write path for a stream. Everything before the
// checksum record goes through out, which tees into the sink and the digest,
// so the hashed bytes are exactly the written bytes.
type recordWriter struct {
	sink   io.Writer
	digest hash.Hash
	out    io.Writer
	offset int64
}

func newRecordWriter(sink io.Writer) (*recordWriter, error) {
	digest, err := newDigest()
	if err != nil {
		return nil, newError(KindResource, "encode", FieldChecksum, -1, err)
	}
	return &recordWriter{
		sink:   sink,
		digest: digest,
		out:    io.MultiWriter(sink, digest),
	}, nil
}

func (rw *recordWriter) writeSignature() error {
	return rw.write(rw.out, FieldUnknown, signature[:])
}

func (rw *recordWriter) writeRecord(f Field, payload []byte) error {
	return rw.frame(rw.out, f, payload)
}

// writeChecksum seals the stream. The checksum record itself is not hashed.
func (rw *recordWriter) writeChecksum() error {
	return rw.frame(rw.sink, FieldChecksum, rw.digest.Sum(nil))
}

func (rw *recordWriter) frame(w io.Writer, f Field, payload []byte) error {
	var header [HeaderSize]byte
	tag := f.Tag()
	copy(header[:TagSize], tag[:])
	binary.BigEndian.PutUint32(header[TagSize:], uint32(len(payload)))
	if err := rw.write(w, f, header[:]); err != nil {
		return err
	}
	return rw.write(w, f, payload)
}

func (rw *recordWriter) write(w io.Writer, f Field, p []byte) error {
	n, err := w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return newError(KindIO, "encode", f, rw.offset, err)
	}
	rw.offset += int64(n)
	return nil
}
