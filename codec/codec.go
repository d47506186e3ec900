// Package codec centralizes the compression applied to persisted models.
//
// Fastmks treats codec selection as a compatibility boundary: the codec ID
// is stored in the model header, and a model written with a codec that a
// reader does not know cannot be decoded. All built-in codecs are
// registered here.
package codec

import (
	"fmt"
	"io"
)

// Codec wraps writers and readers with a compression scheme.
// Implementations must be safe for concurrent use.
type Codec interface {
	// NewWriter returns a writer that compresses into w.
	// The returned writer must be closed to flush.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a reader that decompresses from r.
	NewReader(r io.Reader) (io.ReadCloser, error)
	// Name returns the codec's stable name.
	Name() string
	// ID returns the codec's stable single-byte identifier used in
	// persisted headers.
	ID() uint8
}

// Default is the codec used when none is configured.
var Default Codec = Zstd{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "none":
		return None{}, true
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// ByID returns a built-in codec by its persisted header identifier.
func ByID(id uint8) (Codec, bool) {
	switch id {
	case None{}.ID():
		return None{}, true
	case Zstd{}.ID():
		return Zstd{}, true
	case LZ4{}.ID():
		return LZ4{}, true
	default:
		return nil, false
	}
}

// MustByName is a helper for internal tests.
func MustByName(name string) Codec {
	c, ok := ByName(name)
	if !ok {
		panic(fmt.Errorf("codec: unknown codec %q", name))
	}
	return c
}

// None is the identity codec.
type None struct{}

// NewWriter implements Codec.
func (None) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

// NewReader implements Codec.
func (None) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Name implements Codec.
func (None) Name() string { return "none" }

// ID implements Codec.
func (None) ID() uint8 { return 0 }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
