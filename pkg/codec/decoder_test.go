package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image/color"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

func TestDecode_RoundTrip(t *testing.T) {
	src := sampleMap()
	data := encodeSample(t)

	got, err := NewDecoder().DecodeBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "abc", got.Codename())
	assert.Equal(t, "ABC Land", got.DisplayName())
	assert.Equal(t, "tester", got.Author())

	want := map[rkmap.Identity][]rkmap.Nucleus{
		"t1": {{X: 0, Y: 0}},
		"t2": {{X: 10, Y: 10}},
	}
	if diff := cmp.Diff(want, territoryView(got)); diff != "" {
		t.Errorf("territories mismatch (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []rkmap.Border{{Source: "t1", Target: "t2"}}, got.Borders())

	assert.True(t, raster.Equal(src.BaseLayer(), got.BaseLayer()), "base layer differs")
	assert.True(t, raster.Equal(src.TextLayer(), got.TextLayer()), "text layer differs")
}

func TestDecode_RoundTripVariants(t *testing.T) {
	testCases := []struct {
		name   string
		params rkmap.Params
	}{
		{
			name: "no territories or borders",
			params: rkmap.Params{
				Codename: "empty", DisplayName: "Empty", Author: "a",
			},
		},
		{
			name: "unicode identities and names",
			params: rkmap.Params{
				Codename: "eu", DisplayName: "Europe 🗺", Author: "Zoë",
				Territories: []rkmap.Territory{
					rkmap.NewTerritory("île-de-france", rkmap.Nucleus{X: -5, Y: 7}),
					rkmap.NewTerritory("bayern"),
				},
				Borders: []rkmap.Border{{Source: "île-de-france", Target: "bayern"}},
			},
		},
		{
			name: "many nuclei and reversed borders",
			params: rkmap.Params{
				Codename: "grid", DisplayName: "Grid", Author: "gen",
				Territories: []rkmap.Territory{
					rkmap.NewTerritory("a", rkmap.Nucleus{X: 1, Y: 1}, rkmap.Nucleus{X: -2147483648, Y: 2147483647}, rkmap.Nucleus{X: 1, Y: 1}),
					rkmap.NewTerritory("b", rkmap.Nucleus{X: 3, Y: 4}),
				},
				Borders: []rkmap.Border{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.params.BaseLayer = pixel(sampleColor)
			tc.params.TextLayer = pixel(sampleColor)
			src := rkmap.New(tc.params)

			data, err := NewEncoder().EncodeBytes(src)
			require.NoError(t, err)

			got, err := DecodeBytes(data)
			require.NoError(t, err)

			assert.Equal(t, src.Codename(), got.Codename())
			assert.Equal(t, src.DisplayName(), got.DisplayName())
			assert.Equal(t, src.Author(), got.Author())
			if diff := cmp.Diff(territoryView(src), territoryView(got)); diff != "" {
				t.Errorf("territories mismatch (-want +got):\n%s", diff)
			}
			assert.ElementsMatch(t, src.Borders(), got.Borders())
		})
	}
}

func TestDecode_TruncatedByOneByte(t *testing.T) {
	data := encodeSample(t)

	_, err := DecodeBytes(data[:len(data)-1])
	require.Error(t, err)
	assert.True(t, IsStructural(err), "got %v", err)
	assert.ErrorIs(t, err, ErrLengthOverflow)
}

func TestDecode_EveryStrictPrefixFails(t *testing.T) {
	data := encodeSample(t)

	for n := 0; n < len(data); n++ {
		_, err := DecodeBytes(data[:n])
		if err == nil {
			t.Fatalf("prefix of %d bytes decoded successfully", n)
		}
		if !IsStructural(err) {
			t.Fatalf("prefix of %d bytes: want structural error, got %v", n, err)
		}
		if n < MinStreamSize && !errors.Is(err, ErrTooShort) {
			t.Fatalf("prefix of %d bytes: want ErrTooShort, got %v", n, err)
		}
	}
}

func TestDecode_SourceShorterThanDeclared(t *testing.T) {
	data := encodeSample(t)

	_, err := Decode(bytes.NewReader(data[:100]), int64(len(data)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_SingleByteFlips(t *testing.T) {
	data := encodeSample(t)
	layout, err := InspectBytes(data)
	require.NoError(t, err)

	checksum := layout.Records[len(layout.Records)-1]
	require.Equal(t, FieldChecksum.String(), checksum.Field)

	lengthBytes := make(map[int64]bool)
	for _, rec := range layout.Records {
		for i := int64(TagSize); i < HeaderSize; i++ {
			lengthBytes[rec.Offset+i] = true
		}
	}

	for i := int64(0); i < checksum.Offset; i++ {
		flipped := bytes.Clone(data)
		flipped[i] ^= 0xFF

		_, err := DecodeBytes(flipped)
		if err == nil {
			t.Fatalf("flip at %d decoded successfully", i)
		}
		switch {
		case i < SignatureSize:
			if !errors.Is(err, ErrBadSignature) {
				t.Fatalf("flip at %d: want ErrBadSignature, got %v", i, err)
			}
		case lengthBytes[i]:
			// Reframes the stream; any failure is acceptable.
		default:
			if !IsIntegrity(err) {
				t.Fatalf("flip at %d: want integrity error, got %v", i, err)
			}
		}
	}

	t.Run("checksum payload", func(t *testing.T) {
		for i := checksum.Offset + HeaderSize; i < int64(len(data)); i++ {
			flipped := bytes.Clone(data)
			flipped[i] ^= 0x01

			_, err := DecodeBytes(flipped)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChecksumMismatch)
			assert.True(t, errors.Is(err, &Error{Kind: KindIntegrity}))
		}
	})
}

func TestDecode_UnknownRecordIsSkipped(t *testing.T) {
	data := encodeSample(t)

	positions := []string{"MCNM", "VERT", "IMGT"}
	for _, after := range positions {
		t.Run("after "+after, func(t *testing.T) {
			extended := rewrite(t, data, func(s *rawStream, tag string, payload []byte) {
				s.record(tag, payload)
				if tag == after {
					s.record("XTRA", []byte("future field"))
				}
			})
			require.Greater(t, len(extended), len(data))

			got, err := DecodeBytes(extended)
			require.NoError(t, err)
			assert.Equal(t, "abc", got.Codename())
			assert.Len(t, got.Territories(), 2)
		})
	}

	t.Run("before first field", func(t *testing.T) {
		s := newRawStream().record("\x00\x01\x02\x03", []byte{0xFF})
		for _, r := range recordsOf(t, data) {
			s.record(r.tag, r.payload)
		}
		got, err := DecodeBytes(s.seal(t))
		require.NoError(t, err)
		assert.Equal(t, "ABC Land", got.DisplayName())
	})

	t.Run("not rehashed", func(t *testing.T) {
		// Inserting a record without recomputing the checksum must fail.
		raw := append(body(data), []byte("XTRA\x00\x00\x00\x01z")...)
		raw = append(raw, data[len(data)-HeaderSize-ChecksumSize:]...)

		_, err := DecodeBytes(raw)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

func TestDecode_RepeatedFieldLastWins(t *testing.T) {
	data := rewrite(t, encodeSample(t), func(s *rawStream, tag string, payload []byte) {
		s.record(tag, payload)
		if tag == "MCNM" {
			s.record("MCNM", []byte("xyz"))
		}
	})

	got, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "xyz", got.Codename())
}

func TestDecode_LengthBoundCheckedBeforeRead(t *testing.T) {
	stream := newRawStream().
		recordLen("MCNM", 0x7FFFFFFF, bytes.Repeat([]byte{'a'}, 100)).
		bytes()

	cr := &countingReader{r: bytes.NewReader(stream)}
	_, err := Decode(cr, int64(len(stream)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthOverflow)
	assert.True(t, IsStructural(err))
	assert.Equal(t, SignatureSize+HeaderSize, cr.n, "payload must not be read")
}

func TestDecode_StructuralErrors(t *testing.T) {
	pad := bytes.Repeat([]byte{0}, 64)

	testCases := []struct {
		name   string
		stream []byte
		want   error
	}{
		{
			name:   "too short",
			stream: Signature(),
			want:   ErrTooShort,
		},
		{
			name:   "bad signature",
			stream: append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 100)...),
			want:   ErrBadSignature,
		},
		{
			name:   "zero length",
			stream: newRawStream().recordLen("MCNM", 0, pad).bytes(),
			want:   ErrInvalidLength,
		},
		{
			name:   "negative length",
			stream: newRawStream().recordLen("MCNM", -5, pad).bytes(),
			want:   ErrInvalidLength,
		},
		{
			name:   "no checksum",
			stream: newRawStream().record("MCNM", []byte("abc")).record("PADX", pad).bytes(),
			want:   ErrUnterminated,
		},
		{
			name:   "partial header at end",
			stream: append(newRawStream().record("PADX", pad).bytes(), 'C', 'H'),
			want:   ErrTruncated,
		},
		{
			name:   "trailing data",
			stream: append(newRawStream().record("MCNM", []byte("abc")).seal(t), 0x00),
			want:   ErrTrailingData,
		},
		{
			name:   "missing fields",
			stream: newRawStream().record("MCNM", []byte("abc")).record("PADX", pad).seal(t),
			want:   ErrMissingField,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeBytes(tc.stream)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsStructural(err), "got %v", err)
		})
	}
}

func TestDecode_MalformedPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		tag     string
		payload []byte
	}{
		{"hostile vertex count", "VERT", int32Bytes(1 << 30)},
		{"negative vertex count", "VERT", int32Bytes(-1)},
		{"identity longer than payload", "VERT", append(int32Bytes(1, 200), 'x', 'y', 'z', 'w')},
		{"hostile nucleus count", "VERT", append(append(int32Bytes(1, 1), 'a'), int32Bytes(1<<29)...)},
		{"vertices trailing bytes", "VERT", append(int32Bytes(0), 0x01)},
		{"edge count too large", "EDGE", int32Bytes(5)},
		{"invalid utf-8 name", "MDNM", []byte{0xff, 0xfe}},
		{"not an image", "IMGB", []byte("not a png")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := rewrite(t, encodeSample(t), func(s *rawStream, tag string, payload []byte) {
				if tag == tc.tag {
					payload = tc.payload
				}
				s.record(tag, payload)
			})

			_, err := DecodeBytes(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.True(t, IsStructural(err))
		})
	}
}

func TestDecode_OversizedImageHeader(t *testing.T) {
	// A 1x1 PNG whose IHDR claims 2^20 x 2^20 pixels, with a correct chunk CRC.
	small, err := raster.NewPNG().Encode(pixel(color.RGBA{A: 255}))
	require.NoError(t, err)
	forged := append([]byte(nil), small...)
	binary.BigEndian.PutUint32(forged[16:20], 1<<20)
	binary.BigEndian.PutUint32(forged[20:24], 1<<20)
	binary.BigEndian.PutUint32(forged[29:33], crc32.ChecksumIEEE(forged[12:29]))

	data := rewrite(t, encodeSample(t), func(s *rawStream, tag string, payload []byte) {
		if tag == "IMGB" {
			payload = forged
		}
		s.record(tag, payload)
	})

	_, err = DecodeBytes(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrImageTooLarge)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.True(t, IsStructural(err))
}

func TestDecode_NilInput(t *testing.T) {
	_, err := DecodeBytes(nil)
	assert.ErrorIs(t, err, ErrNilStream)

	_, err = NewDecoder().Decode(nil, 100)
	assert.ErrorIs(t, err, ErrNilStream)
}

func TestDecode_Concurrent(t *testing.T) {
	data := encodeSample(t)
	dec := NewDecoder()
	enc := NewEncoder()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := dec.DecodeBytes(data)
			if err != nil {
				errs <- err
				return
			}
			again, err := enc.EncodeBytes(m)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(again, data) {
				errs <- errors.New("re-encoded stream differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
