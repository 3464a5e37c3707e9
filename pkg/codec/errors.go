package codec

import (
	"errors"
	"strconv"
	"strings"
)

// Kind classifies a codec failure.
type Kind uint8

const (
	KindStructural Kind = iota + 1 // framing, signature, lengths, truncation
	KindIntegrity                  // checksum mismatch
	KindValidation                 // refused to encode
	KindIO                         // source or sink failure
	KindResource                   // environment fault, e.g. digest unavailable
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindIntegrity:
		return "integrity"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Sentinel causes. Match them with errors.Is.
var (
	ErrTooShort          = errors.New("stream is too short to be a valid rkm file")
	ErrBadSignature      = errors.New("file signature is invalid")
	ErrInvalidLength     = errors.New("field length cannot be negative or zero")
	ErrLengthOverflow    = errors.New("field length is longer than the remaining bytes in the stream")
	ErrTruncated         = errors.New("stream ended before the declared length")
	ErrUnterminated      = errors.New("stream has no checksum field")
	ErrTrailingData      = errors.New("data follows the checksum field")
	ErrMalformedPayload  = errors.New("malformed field payload")
	ErrMissingField      = errors.New("required field is missing")
	ErrChecksumMismatch  = errors.New("invalid checksum")
	ErrEmptyField        = errors.New("field length must be greater than or equal to 1")
	ErrFieldTooLarge     = errors.New("field does not fit a 32-bit length")
	ErrNilMap            = errors.New("map is nil")
	ErrNilStream         = errors.New("stream is nil")
	ErrDigestUnavailable = errors.New("SHA-512 digest is unavailable")
	ErrFetchTooLarge     = errors.New("fetched resource exceeds the size limit")
)

// Error is returned by every codec operation.
type Error struct {
	Kind   Kind
	Op     string // "encode", "decode" or "inspect"
	Field  Field
	Offset int64 // byte offset of the record, -1 when not applicable
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rkm ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Field != FieldUnknown {
		b.WriteString(" in ")
		b.WriteString(e.Field.String())
	}
	if e.Offset >= 0 {
		b.WriteString(" at offset ")
		b.WriteString(strconv.FormatInt(e.Offset, 10))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: KindIntegrity})
// works without knowing the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

func newError(kind Kind, op string, field Field, offset int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Offset: offset, Err: err}
}

// KindOf returns the kind of a codec error, or 0 when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsStructural reports whether err is a malformed-stream error.
func IsStructural(err error) bool { return KindOf(err) == KindStructural }

// IsIntegrity reports whether err is a checksum mismatch.
func IsIntegrity(err error) bool { return KindOf(err) == KindIntegrity }

// IsValidation reports whether err is an encode-side validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsIO reports whether err came from the underlying source or sink.
func IsIO(err error) bool { return KindOf(err) == KindIO }
