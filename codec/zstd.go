package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Zstd compresses with Zstandard at the default level. It offers the best
// ratio/speed trade-off for model blobs and is the default codec.
type Zstd struct{}

// NewWriter implements Codec.
func (Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

// NewReader implements Codec.
func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

// Name implements Codec.
func (Zstd) Name() string { return "zstd" }

// ID implements Codec.
func (Zstd) ID() uint8 { return 1 }
