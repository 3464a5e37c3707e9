package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/riskmap/pkg/rkmap"
)

var sampleColor = color.RGBA{G: 128, A: 255}

func pixel(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return img
}

// sampleMap is the reference map: two territories, one border, 1x1 layers.
func sampleMap() *rkmap.Map {
	return rkmap.New(rkmap.Params{
		Codename:    "abc",
		DisplayName: "ABC Land",
		Author:      "tester",
		Territories: []rkmap.Territory{
			rkmap.NewTerritory("t1", rkmap.Nucleus{X: 0, Y: 0}),
			rkmap.NewTerritory("t2", rkmap.Nucleus{X: 10, Y: 10}),
		},
		Borders:   []rkmap.Border{{Source: "t1", Target: "t2"}},
		BaseLayer: pixel(color.RGBA{R: 255, A: 255}),
		TextLayer: pixel(color.RGBA{B: 255, A: 255}),
	})
}

func encodeSample(t testing.TB) []byte {
	t.Helper()
	data, err := NewEncoder().EncodeBytes(sampleMap())
	require.NoError(t, err)
	return data
}

// rawStream assembles streams by hand for malformed-input tests.
type rawStream struct {
	buf bytes.Buffer
}

func newRawStream() *rawStream {
	s := &rawStream{}
	s.buf.Write(Signature())
	return s
}

func (s *rawStream) record(tag string, payload []byte) *rawStream {
	return s.recordLen(tag, int32(len(payload)), payload)
}

func (s *rawStream) recordLen(tag string, length int32, payload []byte) *rawStream {
	s.buf.WriteString(tag)
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(length))
	s.buf.Write(l[:])
	s.buf.Write(payload)
	return s
}

// seal appends a valid checksum record and returns the stream.
func (s *rawStream) seal(t testing.TB) []byte {
	t.Helper()
	sum, err := Sum(s.buf.Bytes())
	require.NoError(t, err)
	s.record("CHKS", sum[:])
	return s.buf.Bytes()
}

func (s *rawStream) bytes() []byte {
	return s.buf.Bytes()
}

// body strips the trailing checksum record from an encoded stream.
func body(data []byte) []byte {
	out := make([]byte, len(data)-HeaderSize-ChecksumSize)
	copy(out, data)
	return out
}

// countingReader records how many bytes were read through it.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func int32Bytes(v ...int32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, x := range v {
		out = binary.BigEndian.AppendUint32(out, uint32(x))
	}
	return out
}

type rawRecord struct {
	tag     string
	payload []byte
}

// recordsOf lists the records of an encoded stream, checksum excluded.
func recordsOf(t testing.TB, data []byte) []rawRecord {
	t.Helper()
	layout, err := InspectBytes(data)
	require.NoError(t, err)

	var out []rawRecord
	for _, rec := range layout.Records {
		if rec.Field == FieldChecksum.String() {
			break
		}
		start := rec.Offset + HeaderSize
		out = append(out, rawRecord{tag: rec.Tag, payload: data[start : start+int64(rec.Length)]})
	}
	return out
}

// rewrite re-frames every record of an encoded stream through edit and seals
// the result with a fresh checksum.
func rewrite(t testing.TB, data []byte, edit func(s *rawStream, tag string, payload []byte)) []byte {
	t.Helper()
	s := newRawStream()
	for _, r := range recordsOf(t, data) {
		edit(s, r.tag, r.payload)
	}
	return s.seal(t)
}

func territoryView(m *rkmap.Map) map[rkmap.Identity][]rkmap.Nucleus {
	out := make(map[rkmap.Identity][]rkmap.Nucleus)
	for _, ter := range m.Territories() {
		out[ter.Identity()] = ter.Nuclei()
	}
	return out
}
