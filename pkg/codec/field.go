package codec

import (
	"crypto/sha512"
	"fmt"
)

// Layout constants of an .rkm stream.
const (
	SignatureSize = 8
	TagSize       = 4
	LengthSize    = 4
	HeaderSize    = TagSize + LengthSize
	ChecksumSize  = sha512.Size

	// MinStreamSize is the smallest stream that can possibly be valid:
	// signature plus a checksum record.
	MinStreamSize = SignatureSize + HeaderSize + ChecksumSize
)

// signature is \x83 R K M \r \n \x1a \n. The high-bit first byte and the
// CR/LF/EOF bytes make text-mode transfers detectable as corruption.
var signature = [SignatureSize]byte{0x83, 0x52, 0x4B, 0x4D, 0x0D, 0x0A, 0x1A, 0x0A}

// Signature returns a copy of the 8-byte magic prefix.
func Signature() []byte {
	out := make([]byte, SignatureSize)
	copy(out, signature[:])
	return out
}

// Tag is the 4-byte name of a record.
type Tag [TagSize]byte

// String returns the tag as text, quoting non-printable bytes.
func (t Tag) String() string {
	for _, b := range t {
		if b < 0x20 || b > 0x7e {
			return fmt.Sprintf("%q", string(t[:]))
		}
	}
	return string(t[:])
}

// Field is the semantic role of a record. The set is closed; any tag this
// version does not know is FieldUnknown and is skipped by the decoder.
type Field uint8

const (
	FieldUnknown Field = iota
	FieldCodeName
	FieldDisplayName
	FieldAuthorName
	FieldVertices
	FieldEdges
	FieldImageBase
	FieldImageText
	FieldChecksum

	fieldCount
)

var fieldTags = [fieldCount]Tag{
	FieldCodeName:    {'M', 'C', 'N', 'M'},
	FieldDisplayName: {'M', 'D', 'N', 'M'},
	FieldAuthorName:  {'M', 'A', 'T', 'H'},
	FieldVertices:    {'V', 'E', 'R', 'T'},
	FieldEdges:       {'E', 'D', 'G', 'E'},
	FieldImageBase:   {'I', 'M', 'G', 'B'},
	FieldImageText:   {'I', 'M', 'G', 'T'},
	FieldChecksum:    {'C', 'H', 'K', 'S'},
}

var fieldNames = [fieldCount]string{
	FieldUnknown:     "UNKNOWN",
	FieldCodeName:    "CODE_NAME",
	FieldDisplayName: "DISPLAY_NAME",
	FieldAuthorName:  "AUTHOR_NAME",
	FieldVertices:    "VERTICES",
	FieldEdges:       "EDGES",
	FieldImageBase:   "IMAGE_BASE",
	FieldImageText:   "IMAGE_TEXT",
	FieldChecksum:    "CHECKSUM",
}

// encodeOrder is the order in which the encoder writes fields.
var encodeOrder = [...]Field{
	FieldCodeName,
	FieldDisplayName,
	FieldAuthorName,
	FieldVertices,
	FieldEdges,
	FieldImageBase,
	FieldImageText,
}

// FieldOf maps a tag to its field. Unrecognised tags map to FieldUnknown.
func FieldOf(tag Tag) Field {
	for f := FieldCodeName; f < fieldCount; f++ {
		if fieldTags[f] == tag {
			return f
		}
	}
	return FieldUnknown
}

// Tag returns the wire tag of f. FieldUnknown has no tag and returns zeros.
func (f Field) Tag() Tag {
	if f >= fieldCount {
		return Tag{}
	}
	return fieldTags[f]
}

// String returns the registry name of f.
func (f Field) String() string {
	if f >= fieldCount {
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
	return fieldNames[f]
}
