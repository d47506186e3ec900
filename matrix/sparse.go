package matrix

import (
	"bytes"
	"encoding/gob"
	"sort"
)

// Sparse is a column-major sparse point container in CSC layout.
// Column j's nonzero entries are rowIdx[colPtr[j]:colPtr[j+1]] paired with
// vals[colPtr[j]:colPtr[j+1]], with row indices strictly increasing within
// a column.
type Sparse struct {
	rows   int
	cols   int
	colPtr []int
	rowIdx []int
	vals   []float64

	selfDots []float64
}

// NewSparse creates a sparse container from CSC arrays. The arrays are owned
// by the container after construction.
func NewSparse(rows, cols int, colPtr, rowIdx []int, vals []float64) (*Sparse, error) {
	if cols == 0 {
		return nil, ErrEmptySet
	}
	if rows == 0 {
		return nil, ErrZeroDimension
	}
	if len(colPtr) != cols+1 || len(rowIdx) != len(vals) || colPtr[cols] != len(vals) {
		return nil, &ErrShapeMismatch{Rows: rows, Cols: cols, Len: len(vals)}
	}
	for j := 0; j < cols; j++ {
		if colPtr[j] > colPtr[j+1] {
			return nil, &ErrShapeMismatch{Rows: rows, Cols: cols, Len: len(vals)}
		}
		prev := -1
		for p := colPtr[j]; p < colPtr[j+1]; p++ {
			r := rowIdx[p]
			if r < 0 || r >= rows {
				return nil, &ErrBadIndex{Row: r, Rows: rows}
			}
			if r <= prev {
				return nil, &ErrBadIndex{Row: r, Rows: rows}
			}
			prev = r
		}
	}
	s := &Sparse{rows: rows, cols: cols, colPtr: colPtr, rowIdx: rowIdx, vals: vals}
	s.cacheSelfDots()
	return s, nil
}

// Entry is a single nonzero coordinate used by NewSparseFromEntries.
type Entry struct {
	Row   int
	Col   int
	Value float64
}

// NewSparseFromEntries creates a sparse container from coordinate triplets.
// Duplicate (row, col) pairs are rejected via the CSC validation.
func NewSparseFromEntries(rows, cols int, entries []Entry) (*Sparse, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Col != sorted[j].Col {
			return sorted[i].Col < sorted[j].Col
		}
		return sorted[i].Row < sorted[j].Row
	})

	colPtr := make([]int, cols+1)
	rowIdx := make([]int, 0, len(sorted))
	vals := make([]float64, 0, len(sorted))
	for _, e := range sorted {
		if e.Col < 0 || e.Col >= cols {
			return nil, &ErrBadIndex{Row: e.Col, Rows: cols}
		}
		colPtr[e.Col+1]++
		rowIdx = append(rowIdx, e.Row)
		vals = append(vals, e.Value)
	}
	for j := 0; j < cols; j++ {
		colPtr[j+1] += colPtr[j]
	}
	return NewSparse(rows, cols, colPtr, rowIdx, vals)
}

// NewSparseFromDense creates a sparse container holding the exactly-nonzero
// entries of d.
func NewSparseFromDense(d *Dense) (*Sparse, error) {
	rows, cols := d.Rows(), d.Cols()
	colPtr := make([]int, cols+1)
	var rowIdx []int
	var vals []float64
	data := d.RawData()
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if v := data[j*rows+i]; v != 0 {
				rowIdx = append(rowIdx, i)
				vals = append(vals, v)
			}
		}
		colPtr[j+1] = len(vals)
	}
	return NewSparse(rows, cols, colPtr, rowIdx, vals)
}

// Dense materializes the sparse container into a dense one.
func (s *Sparse) Dense() (*Dense, error) {
	data := make([]float64, s.rows*s.cols)
	for j := 0; j < s.cols; j++ {
		for p := s.colPtr[j]; p < s.colPtr[j+1]; p++ {
			data[j*s.rows+s.rowIdx[p]] = s.vals[p]
		}
	}
	return NewDense(s.rows, s.cols, data)
}

func (s *Sparse) cacheSelfDots() {
	s.selfDots = make([]float64, s.cols)
	for j := 0; j < s.cols; j++ {
		var sum float64
		for p := s.colPtr[j]; p < s.colPtr[j+1]; p++ {
			sum += s.vals[p] * s.vals[p]
		}
		s.selfDots[j] = sum
	}
}

// Rows returns the point dimension.
func (s *Sparse) Rows() int { return s.rows }

// Cols returns the number of points.
func (s *Sparse) Cols() int { return s.cols }

// NNZ returns the number of stored nonzero entries.
func (s *Sparse) NNZ() int { return len(s.vals) }

// ColView returns a read-only view of point j.
func (s *Sparse) ColView(j int) Vector {
	return sparseVec{
		dim:     s.rows,
		rows:    s.rowIdx[s.colPtr[j]:s.colPtr[j+1]],
		vals:    s.vals[s.colPtr[j]:s.colPtr[j+1]],
		selfDot: s.selfDots[j],
	}
}

type sparseGob struct {
	Rows   int
	Cols   int
	ColPtr []int
	RowIdx []int
	Vals   []float64
}

// GobEncode implements gob.GobEncoder.
func (s *Sparse) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	g := sparseGob{Rows: s.rows, Cols: s.cols, ColPtr: s.colPtr, RowIdx: s.rowIdx, Vals: s.vals}
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. Validation and self-product caching
// run as on first construction.
func (s *Sparse) GobDecode(data []byte) error {
	var g sparseGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	ns, err := NewSparse(g.Rows, g.Cols, g.ColPtr, g.RowIdx, g.Vals)
	if err != nil {
		return err
	}
	*s = *ns
	return nil
}

type sparseVec struct {
	dim     int
	rows    []int
	vals    []float64
	selfDot float64
}

func (v sparseVec) Len() int         { return v.dim }
func (v sparseVec) SelfDot() float64 { return v.selfDot }

func (v sparseVec) At(i int) float64 {
	p := sort.SearchInts(v.rows, i)
	if p < len(v.rows) && v.rows[p] == i {
		return v.vals[p]
	}
	return 0
}

func (v sparseVec) Dot(other Vector) float64 {
	switch o := other.(type) {
	case sparseVec:
		return v.dotSparse(o)
	case denseVec:
		return v.dotDense(o.data)
	default:
		var sum float64
		for p, r := range v.rows {
			sum += v.vals[p] * other.At(r)
		}
		return sum
	}
}

func (v sparseVec) dotDense(dense []float64) float64 {
	var sum float64
	for p, r := range v.rows {
		sum += v.vals[p] * dense[r]
	}
	return sum
}

func (v sparseVec) dotSparse(o sparseVec) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.rows) && j < len(o.rows) {
		switch {
		case v.rows[i] == o.rows[j]:
			sum += v.vals[i] * o.vals[j]
			i++
			j++
		case v.rows[i] < o.rows[j]:
			i++
		default:
			j++
		}
	}
	return sum
}
