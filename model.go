package fastmks

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/fastmks/blobstore"
	"github.com/hupe1980/fastmks/codec"
	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
	"github.com/hupe1980/fastmks/resource"
)

// Model file layout: a fixed 8-byte header, a little-endian uint64 payload
// length, a CRC32 (IEEE) of the compressed payload, then the payload (a
// gob-encoded modelPayload wrapped in the selected codec).
const (
	// modelMagic identifies fastmks model files (ASCII: "FMKS").
	modelMagic = 0x464d4b53
	// modelVersion is the current model format version.
	modelVersion = 1
)

var (
	// ErrInvalidModelMagic is returned when a model header does not start
	// with the fastmks magic number.
	ErrInvalidModelMagic = errors.New("invalid model magic number")

	// ErrInvalidModelVersion is returned for unsupported model versions.
	ErrInvalidModelVersion = errors.New("unsupported model version")

	// ErrModelChecksum is returned when a model payload fails checksum
	// verification.
	ErrModelChecksum = errors.New("model payload checksum mismatch")

	// ErrUnknownCodec is returned when a model was written with a codec
	// this build does not know.
	ErrUnknownCodec = errors.New("unknown model codec")
)

type modelHeader struct {
	Magic    uint32
	Version  uint16
	CodecID  uint8
	Reserved uint8
}

type modelPayload struct {
	DenseRefs  *matrix.Dense
	SparseRefs *matrix.Sparse
	RefNorms   []float64
	Tree       *covertree.Snapshot
	Base       float64
}

// SaveModel writes the built index (reference set, norms, tree) to w so it
// can be reloaded without rebuilding. The codec configured with WithCodec
// is recorded in the header. A reloaded model reproduces bit-identical
// search results.
func (f *FastMKS[K]) SaveModel(w io.Writer) error {
	if rc := f.opts.resources; rc != nil {
		w = resource.NewRateLimitedWriter(w, rc, context.Background())
	}

	p := modelPayload{
		RefNorms: f.refNorms,
		Base:     f.opts.base,
	}
	switch refs := f.refs.(type) {
	case *matrix.Dense:
		p.DenseRefs = refs
	case *matrix.Sparse:
		p.SparseRefs = refs
	default:
		return fmt.Errorf("fastmks: cannot persist reference container of type %T", f.refs)
	}
	if f.tree != nil {
		p.Tree = f.tree.Snapshot()
	}

	var buf bytes.Buffer
	cw, err := f.opts.codec.NewWriter(&buf)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(cw).Encode(p); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}

	header := modelHeader{
		Magic:   modelMagic,
		Version: modelVersion,
		CodecID: f.opts.codec.ID(),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(buf.Len())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes())); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// LoadModel reads a model written by SaveModel. The kernel is not
// persisted; the caller supplies it, and it must match the kernel the
// model was built with for the restored bounds to be meaningful. Options
// apply as in New, except that the persisted tree and base are restored
// instead of rebuilt.
func LoadModel[K kernel.Kernel](r io.Reader, kern K, optFns ...Option) (*FastMKS[K], error) {
	opts := applyOptions(optFns)
	if rc := opts.resources; rc != nil {
		r = resource.NewRateLimitedReader(r, rc, context.Background())
	}

	var header modelHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != modelMagic {
		return nil, ErrInvalidModelMagic
	}
	if header.Version != modelVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidModelVersion, header.Version)
	}
	c, ok := codec.ByID(header.CodecID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCodec, header.CodecID)
	}

	var payloadLen uint64
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, err
	}
	var checksum uint32
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return nil, err
	}
	compressed := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, ErrModelChecksum
	}

	cr, err := c.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var p modelPayload
	if err := gob.NewDecoder(cr).Decode(&p); err != nil {
		return nil, err
	}

	var refs matrix.Matrix
	switch {
	case p.DenseRefs != nil:
		refs = p.DenseRefs
	case p.SparseRefs != nil:
		refs = p.SparseRefs
	default:
		return nil, ErrEmptySet
	}
	if len(p.RefNorms) != refs.Cols() {
		return nil, fmt.Errorf("fastmks: model norms length %d does not match %d references", len(p.RefNorms), refs.Cols())
	}

	opts.base = p.Base
	f := &FastMKS[K]{
		refs:       refs,
		kern:       kern,
		opts:       opts,
		refNorms:   p.RefNorms,
		normalized: kernel.IsNormalized(kern),
	}
	if opts.mode != ModeNaive {
		if p.Tree != nil {
			tree, err := covertree.FromSnapshot(p.Tree)
			if err != nil {
				return nil, err
			}
			f.tree = tree
		} else {
			// Model was saved in naive mode; build the tree now.
			tree, err := covertree.New(refs.Cols(), opts.base, kernel.NewMetric(kern, refs).Distance)
			if err != nil {
				return nil, err
			}
			f.tree = tree
		}
	}
	return f, nil
}

// SaveModelTo persists the model as a blob in store under name.
func (f *FastMKS[K]) SaveModelTo(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer
	if err := f.SaveModel(&buf); err != nil {
		return err
	}
	return store.Put(ctx, name, bytes.NewReader(buf.Bytes()))
}

// LoadModelFrom reads a model blob from store. Mappable blobs are decoded
// without copying the payload.
func LoadModelFrom[K kernel.Kernel](ctx context.Context, store blobstore.Store, name string, kern K, optFns ...Option) (*FastMKS[K], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if m, ok := blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			return LoadModel(bytes.NewReader(data), kern, optFns...)
		}
	}
	return LoadModel(io.NewSectionReader(blob, 0, blob.Size()), kern, optFns...)
}
