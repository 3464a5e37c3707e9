package codec

import (
	"bytes"
	"io"
)

// RecordInfo describes one record of a stream.
type RecordInfo struct {
	Tag    string `json:"tag"`
	Field  string `json:"field"`
	Offset int64  `json:"offset"`
	Length int32  `json:"length"`
}

// Layout is the record structure of a stream.
type Layout struct {
	Size          int64        `json:"size"`
	Records       []RecordInfo `json:"records"`
	ChecksumValid bool         `json:"checksum_valid"`
}

// Inspect walks the framing of a stream without interpreting payloads. It
// applies the same structural checks as Decode; a checksum mismatch is
// reported in the layout rather than as an error.
func Inspect(r io.Reader, size int64) (*Layout, error) {
	fr, err := newFrameReader("inspect", r, size)
	if err != nil {
		return nil, err
	}
	layout := &Layout{Size: size}
	for {
		f, err := fr.next()
		if err != nil {
			return nil, err
		}
		layout.Records = append(layout.Records, RecordInfo{
			Tag:    f.tag.String(),
			Field:  f.field.String(),
			Offset: f.offset,
			Length: int32(len(f.payload)),
		})
		if f.field == FieldChecksum {
			layout.ChecksumValid = fr.verify(f) == nil
			if err := fr.finish(); err != nil {
				return nil, err
			}
			return layout, nil
		}
		fr.accept(f)
	}
}

// InspectBytes inspects an in-memory stream.
func InspectBytes(data []byte) (*Layout, error) {
	return Inspect(bytes.NewReader(data), int64(len(data)))
}
