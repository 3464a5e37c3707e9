package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash"
	"io"
)

// frame is one tag+length+payload record as read from a stream.
type frame struct {
	header  [HeaderSize]byte
	tag     Tag
	field   Field
	offset  int64
	payload []byte
}

// frameReader walks the records of a stream of known total size. It keeps
// the running digest of every accepted record and never reads past size.
type frameReader struct {
	op     string
	r      io.Reader
	size   int64
	pos    int64
	digest hash.Hash
}

// newFrameReader validates the length floor and the signature, and seeds the
// digest with the signature bytes.
func newFrameReader(op string, r io.Reader, size int64) (*frameReader, error) {
	if r == nil {
		return nil, newError(KindValidation, op, FieldUnknown, -1, ErrNilStream)
	}
	if size < MinStreamSize {
		return nil, newError(KindStructural, op, FieldUnknown, -1, ErrTooShort)
	}
	digest, err := newDigest()
	if err != nil {
		return nil, newError(KindResource, op, FieldChecksum, -1, err)
	}
	fr := &frameReader{op: op, r: io.LimitReader(r, size), size: size, digest: digest}

	sig := make([]byte, SignatureSize)
	if err := fr.readFull(sig, FieldUnknown, 0); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, signature[:]) {
		return nil, newError(KindStructural, op, FieldUnknown, 0, ErrBadSignature)
	}
	fr.digest.Write(sig)
	return fr, nil
}

// next reads the next record. The declared length is checked against the
// bytes left in the stream before any payload is read.
func (fr *frameReader) next() (*frame, error) {
	f := &frame{offset: fr.pos}
	left := fr.size - fr.pos
	if left == 0 {
		return nil, newError(KindStructural, fr.op, FieldUnknown, f.offset, ErrUnterminated)
	}
	if left < HeaderSize {
		return nil, newError(KindStructural, fr.op, FieldUnknown, f.offset, ErrTruncated)
	}
	if err := fr.readFull(f.header[:], FieldUnknown, f.offset); err != nil {
		return nil, err
	}
	copy(f.tag[:], f.header[:TagSize])
	f.field = FieldOf(f.tag)

	length := int32(binary.BigEndian.Uint32(f.header[TagSize:]))
	if length < 1 {
		return nil, newError(KindStructural, fr.op, f.field, f.offset, ErrInvalidLength)
	}
	if int64(length) > fr.size-fr.pos {
		return nil, newError(KindStructural, fr.op, f.field, f.offset, ErrLengthOverflow)
	}

	f.payload = make([]byte, length)
	if err := fr.readFull(f.payload, f.field, f.offset); err != nil {
		return nil, err
	}
	return f, nil
}

// accept appends a processed record to the checksum input.
func (fr *frameReader) accept(f *frame) {
	fr.digest.Write(f.header[:])
	fr.digest.Write(f.payload)
}

// verify compares the checksum record against the accumulated digest.
func (fr *frameReader) verify(f *frame) error {
	if !bytes.Equal(fr.digest.Sum(nil), f.payload) {
		return newError(KindIntegrity, fr.op, FieldChecksum, f.offset, ErrChecksumMismatch)
	}
	return nil
}

// finish rejects bytes declared after the checksum record.
func (fr *frameReader) finish() error {
	if fr.pos != fr.size {
		return newError(KindStructural, fr.op, FieldUnknown, fr.pos, ErrTrailingData)
	}
	return nil
}

func (fr *frameReader) readFull(p []byte, field Field, offset int64) error {
	n, err := io.ReadFull(fr.r, p)
	fr.pos += int64(n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(KindStructural, fr.op, field, offset, ErrTruncated)
	}
	return newError(KindIO, fr.op, field, offset, err)
}
