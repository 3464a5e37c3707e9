package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ssargent/riskmap/pkg/rkmap"
)

// Fetcher performs HTTP requests for DecodeURL. *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

var defaultFetcher Fetcher = http.DefaultClient

// DecodeFile decodes the .rkm file at path.
func (d *Decoder) DecodeFile(path string) (*rkmap.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, err)
	}
	return d.Decode(bufio.NewReader(f), info.Size())
}

// DecodeURL fetches the resource at url and decodes it. The codec has no
// cancellation of its own; bound the fetch with ctx.
func (d *Decoder) DecodeURL(ctx context.Context, url string) (*rkmap.Map, error) {
	data, err := d.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return d.DecodeBytes(data)
}

func (d *Decoder) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, fmt.Errorf("build request: %w", err))
	}
	resp, err := d.fetcher.Do(req)
	if err != nil {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, fmt.Errorf("fetch %s: %s", url, resp.Status))
	}
	if resp.ContentLength > d.maxFetchBytes {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, ErrFetchTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxFetchBytes+1))
	if err != nil {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, err)
	}
	if int64(len(data)) > d.maxFetchBytes {
		return nil, newError(KindIO, "decode", FieldUnknown, -1, ErrFetchTooLarge)
	}
	return data, nil
}

var (
	defaultEncoder = NewEncoder()
	defaultDecoder = NewDecoder()
)

// Encode writes m to w with the default PNG image codec, closing w afterwards
// when closeSink is set and w is an io.Closer.
func Encode(m *rkmap.Map, w io.Writer, closeSink bool) error {
	if closeSink {
		return NewEncoder(WithCloseSink(true)).Encode(m, w)
	}
	return defaultEncoder.Encode(m, w)
}

// Decode reads a stream of known size with the default decoder.
func Decode(r io.Reader, size int64) (*rkmap.Map, error) {
	return defaultDecoder.Decode(r, size)
}

// DecodeBytes decodes data with the default decoder.
func DecodeBytes(data []byte) (*rkmap.Map, error) {
	return defaultDecoder.DecodeBytes(data)
}

// DecodeFile decodes the file at path with the default decoder.
func DecodeFile(path string) (*rkmap.Map, error) {
	return defaultDecoder.DecodeFile(path)
}

// DecodeURL fetches and decodes url with the default decoder.
func DecodeURL(ctx context.Context, url string) (*rkmap.Map, error) {
	return defaultDecoder.DecodeURL(ctx, url)
}
