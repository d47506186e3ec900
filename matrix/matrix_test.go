package matrix

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDense(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
		require.NoError(t, err)

		assert.Equal(t, 2, d.Rows())
		assert.Equal(t, 3, d.Cols())

		col := d.ColView(1)
		assert.Equal(t, 2, col.Len())
		assert.Equal(t, 3.0, col.At(0))
		assert.Equal(t, 4.0, col.At(1))
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := NewDense(2, 0, nil)
		assert.ErrorIs(t, err, ErrEmptySet)
	})

	t.Run("zero dimension", func(t *testing.T) {
		_, err := NewDense(0, 3, nil)
		assert.ErrorIs(t, err, ErrZeroDimension)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewDense(2, 3, []float64{1, 2})

		var shapeErr *ErrShapeMismatch
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, 2, shapeErr.Rows)
		assert.Equal(t, 3, shapeErr.Cols)
		assert.Equal(t, 2, shapeErr.Len)
	})
}

func TestNewDenseFromColumns(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := NewDenseFromColumns([][]float64{{1, 2}, {3, 4}})
		require.NoError(t, err)

		assert.Equal(t, []float64{1, 2, 3, 4}, d.RawData())
	})

	t.Run("ragged columns", func(t *testing.T) {
		_, err := NewDenseFromColumns([][]float64{{1, 2}, {3}})

		var shapeErr *ErrShapeMismatch
		assert.ErrorAs(t, err, &shapeErr)
	})
}

func TestDenseSelfDot(t *testing.T) {
	d, err := NewDense(3, 2, []float64{1, 2, 2, 0, 3, 4})
	require.NoError(t, err)

	assert.Equal(t, 9.0, d.ColView(0).SelfDot())
	assert.Equal(t, 25.0, d.ColView(1).SelfDot())

	// SelfDot agrees with Dot with itself.
	v := d.ColView(1)
	assert.Equal(t, v.Dot(v), v.SelfDot())
}

func TestNewSparse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		// 3x2: col 0 = (1, 0, 2), col 1 = (0, 5, 0)
		s, err := NewSparse(3, 2, []int{0, 2, 3}, []int{0, 2, 1}, []float64{1, 2, 5})
		require.NoError(t, err)

		assert.Equal(t, 3, s.Rows())
		assert.Equal(t, 2, s.Cols())
		assert.Equal(t, 3, s.NNZ())

		col := s.ColView(0)
		assert.Equal(t, 1.0, col.At(0))
		assert.Equal(t, 0.0, col.At(1))
		assert.Equal(t, 2.0, col.At(2))
		assert.Equal(t, 5.0, col.SelfDot())
	})

	t.Run("row out of range", func(t *testing.T) {
		_, err := NewSparse(3, 1, []int{0, 1}, []int{3}, []float64{1})

		var badIdx *ErrBadIndex
		require.ErrorAs(t, err, &badIdx)
		assert.Equal(t, 3, badIdx.Row)
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := NewSparse(3, 0, []int{0}, nil, nil)
		assert.ErrorIs(t, err, ErrEmptySet)
	})
}

func TestNewSparseFromEntries(t *testing.T) {
	entries := []Entry{
		{Row: 1, Col: 1, Value: 5},
		{Row: 2, Col: 0, Value: 2},
		{Row: 0, Col: 0, Value: 1},
	}

	s, err := NewSparseFromEntries(3, 2, entries)
	require.NoError(t, err)

	assert.Equal(t, 3, s.NNZ())
	assert.Equal(t, 1.0, s.ColView(0).At(0))
	assert.Equal(t, 2.0, s.ColView(0).At(2))
	assert.Equal(t, 5.0, s.ColView(1).At(1))
}

func TestSparseFromDenseRoundTrip(t *testing.T) {
	d, err := NewDense(3, 3, []float64{1, 0, 2, 0, 0, 3, 4, 5, 0})
	require.NoError(t, err)

	s, err := NewSparseFromDense(d)
	require.NoError(t, err)
	assert.Equal(t, 6, s.NNZ())

	back, err := s.Dense()
	require.NoError(t, err)
	assert.Equal(t, d.RawData(), back.RawData())
}

func TestMixedDot(t *testing.T) {
	d, err := NewDense(4, 1, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	s, err := NewSparseFromEntries(4, 1, []Entry{
		{Row: 0, Col: 0, Value: 2},
		{Row: 3, Col: 0, Value: 0.5},
	})
	require.NoError(t, err)

	dv := d.ColView(0)
	sv := s.ColView(0)

	want := 1*2.0 + 4*0.5

	assert.InDelta(t, want, dv.Dot(sv), 1e-15)
	assert.InDelta(t, want, sv.Dot(dv), 1e-15)
	assert.InDelta(t, 4.25, sv.Dot(sv), 1e-15)
	assert.Equal(t, sv.Dot(sv), sv.SelfDot())
}

func TestDenseGob(t *testing.T) {
	d, err := NewDense(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(d))

	var got Dense
	require.NoError(t, gob.NewDecoder(&buf).Decode(&got))

	assert.Equal(t, d.RawData(), got.RawData())
	assert.Equal(t, d.ColView(1).SelfDot(), got.ColView(1).SelfDot())
}

func TestSparseGob(t *testing.T) {
	s, err := NewSparseFromEntries(3, 2, []Entry{
		{Row: 0, Col: 0, Value: 1},
		{Row: 1, Col: 1, Value: 2},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(s))

	var got Sparse
	require.NoError(t, gob.NewDecoder(&buf).Decode(&got))

	assert.Equal(t, s.NNZ(), got.NNZ())
	assert.Equal(t, 1.0, got.ColView(0).At(0))
	assert.Equal(t, 2.0, got.ColView(1).At(1))
	assert.Equal(t, 4.0, got.ColView(1).SelfDot())
}

func TestErrBadIndexMessage(t *testing.T) {
	err := &ErrBadIndex{Row: 7, Rows: 4}
	assert.Contains(t, err.Error(), "row index 7")
}
