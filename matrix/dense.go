package matrix

import (
	"bytes"
	"encoding/gob"

	"gonum.org/v1/gonum/floats"
)

// Dense is a column-major dense point container.
// The backing slice is owned by the container after construction and must
// not be mutated by the caller.
type Dense struct {
	rows int
	cols int
	data []float64

	selfDots []float64
}

// NewDense creates a dense container from column-major backing data.
// data holds cols points of dimension rows; column j occupies
// data[j*rows:(j+1)*rows].
func NewDense(rows, cols int, data []float64) (*Dense, error) {
	if cols == 0 {
		return nil, ErrEmptySet
	}
	if rows == 0 {
		return nil, ErrZeroDimension
	}
	if len(data) != rows*cols {
		return nil, &ErrShapeMismatch{Rows: rows, Cols: cols, Len: len(data)}
	}
	d := &Dense{rows: rows, cols: cols, data: data}
	d.cacheSelfDots()
	return d, nil
}

// NewDenseFromColumns creates a dense container from per-point slices.
// All columns must share the same length.
func NewDenseFromColumns(columns [][]float64) (*Dense, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySet
	}
	rows := len(columns[0])
	if rows == 0 {
		return nil, ErrZeroDimension
	}
	data := make([]float64, 0, rows*len(columns))
	for _, col := range columns {
		if len(col) != rows {
			return nil, &ErrShapeMismatch{Rows: rows, Cols: len(columns), Len: len(col) * len(columns)}
		}
		data = append(data, col...)
	}
	return NewDense(rows, len(columns), data)
}

func (d *Dense) cacheSelfDots() {
	d.selfDots = make([]float64, d.cols)
	for j := 0; j < d.cols; j++ {
		col := d.data[j*d.rows : (j+1)*d.rows]
		d.selfDots[j] = floats.Dot(col, col)
	}
}

// Rows returns the point dimension.
func (d *Dense) Rows() int { return d.rows }

// Cols returns the number of points.
func (d *Dense) Cols() int { return d.cols }

// ColView returns a read-only view of point j.
func (d *Dense) ColView(j int) Vector {
	return denseVec{
		data:    d.data[j*d.rows : (j+1)*d.rows],
		selfDot: d.selfDots[j],
	}
}

// RawData returns the column-major backing slice. Callers must treat it as
// read-only.
func (d *Dense) RawData() []float64 { return d.data }

type denseGob struct {
	Rows int
	Cols int
	Data []float64
}

// GobEncode implements gob.GobEncoder. Cached self products are recomputed
// on decode, not persisted.
func (d *Dense) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(denseGob{Rows: d.rows, Cols: d.cols, Data: d.data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (d *Dense) GobDecode(data []byte) error {
	var g denseGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	nd, err := NewDense(g.Rows, g.Cols, g.Data)
	if err != nil {
		return err
	}
	*d = *nd
	return nil
}

type denseVec struct {
	data    []float64
	selfDot float64
}

func (v denseVec) Len() int         { return len(v.data) }
func (v denseVec) At(i int) float64 { return v.data[i] }
func (v denseVec) SelfDot() float64 { return v.selfDot }

func (v denseVec) Dot(other Vector) float64 {
	switch o := other.(type) {
	case denseVec:
		return floats.Dot(v.data, o.data)
	case sparseVec:
		return o.dotDense(v.data)
	default:
		var sum float64
		for i := range v.data {
			sum += v.data[i] * other.At(i)
		}
		return sum
	}
}
