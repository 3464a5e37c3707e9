package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/ssargent/riskmap/pkg/rkmap"
)

// Vertices: count | {idLen id nucleusCount {x y}*}*
// Edges:    count | {srcLen src tgtLen tgt}*
// All integers are big-endian int32; string lengths are UTF-8 byte lengths.

type payloadWriter struct {
	buf bytes.Buffer
	err error
}

func (w *payloadWriter) putInt32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *payloadWriter) putCount(n int) {
	if n > math.MaxInt32 {
		w.fail(fmt.Errorf("%w: count %d", ErrFieldTooLarge, n))
		return
	}
	w.putInt32(int32(n))
}

func (w *payloadWriter) putString(s string) {
	w.putCount(len(s))
	w.buf.WriteString(s)
}

func (w *payloadWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func encodeVertices(territories []rkmap.Territory) ([]byte, error) {
	var w payloadWriter
	w.putCount(len(territories))
	for _, t := range territories {
		w.putString(t.Identity().String())
		nuclei := t.Nuclei()
		w.putCount(len(nuclei))
		for _, n := range nuclei {
			w.putInt32(n.X)
			w.putInt32(n.Y)
		}
	}
	return w.buf.Bytes(), w.err
}

func encodeEdges(borders []rkmap.Border) ([]byte, error) {
	var w payloadWriter
	w.putCount(len(borders))
	for _, b := range borders {
		w.putString(b.Source.String())
		w.putString(b.Target.String())
	}
	return w.buf.Bytes(), w.err
}

// payloadReader walks a field payload. Every read is bounds checked against
// the payload so hostile counts cannot over-read or over-allocate.
type payloadReader struct {
	data []byte
	pos  int
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *payloadReader) readInt32() (int32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes at %d, have %d", ErrMalformedPayload, r.pos, r.remaining())
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

// readCount reads a non-negative element count whose elements need at least
// minSize bytes each.
func (r *payloadReader) readCount(minSize int) (int, error) {
	n, err := r.readInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrMalformedPayload, n)
	}
	if int64(n)*int64(minSize) > int64(r.remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds payload", ErrMalformedPayload, n)
	}
	return int(n), nil
}

func (r *payloadReader) readString() (string, error) {
	n, err := r.readCount(1)
	if err != nil {
		return "", err
	}
	s := r.data[r.pos : r.pos+n]
	r.pos += n
	if !utf8.Valid(s) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformedPayload)
	}
	return string(s), nil
}

func (r *payloadReader) done() error {
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d unread bytes", ErrMalformedPayload, r.remaining())
	}
	return nil
}

func decodeVertices(data []byte) ([]rkmap.Territory, error) {
	r := &payloadReader{data: data}
	// smallest territory: empty id length + nucleus count
	count, err := r.readCount(8)
	if err != nil {
		return nil, err
	}
	territories := make([]rkmap.Territory, 0, count)
	for i := 0; i < count; i++ {
		id, err := r.readString()
		if err != nil {
			return nil, err
		}
		nucleusCount, err := r.readCount(8)
		if err != nil {
			return nil, err
		}
		nuclei := make([]rkmap.Nucleus, nucleusCount)
		for n := range nuclei {
			if nuclei[n].X, err = r.readInt32(); err != nil {
				return nil, err
			}
			if nuclei[n].Y, err = r.readInt32(); err != nil {
				return nil, err
			}
		}
		territories = append(territories, rkmap.NewTerritory(rkmap.Identity(id), nuclei...))
	}
	return territories, r.done()
}

func decodeEdges(data []byte) ([]rkmap.Border, error) {
	r := &payloadReader{data: data}
	count, err := r.readCount(8)
	if err != nil {
		return nil, err
	}
	borders := make([]rkmap.Border, 0, count)
	for i := 0; i < count; i++ {
		source, err := r.readString()
		if err != nil {
			return nil, err
		}
		target, err := r.readString()
		if err != nil {
			return nil, err
		}
		borders = append(borders, rkmap.Border{Source: rkmap.Identity(source), Target: rkmap.Identity(target)})
	}
	return borders, r.done()
}

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformedPayload)
	}
	return string(data), nil
}
