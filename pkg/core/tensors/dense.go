// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors builds and reduces the dense float64 tensors consumed by the regularizers.
//
// Storage and math are delegated to gonum: a tensor is a mat.Matrix whose rows are the batch
// (leading) axis and whose columns are the features. A 1D tensor of N values is represented as an
// N×1 matrix, that is, N examples with one feature each.
package tensors

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Number is the set of Go types that can be converted to a tensor.
//
// float16.Float16 is included so activations kept in half precision by the host can be handed over
// without a conversion pass on the caller side.
type Number interface {
	constraints.Integer | constraints.Float | float16.Float16
}

// toFloat64 converts any Number to float64.
func toFloat64[T Number](v T) float64 {
	if h, ok := any(v).(float16.Float16); ok {
		return float64(h.Float32())
	}
	return float64(v)
}

// FromFlat creates a rows×cols tensor from row-major flat values.
//
// It panics if the dimensions are not positive or if len(flat) != rows*cols.
func FromFlat[T Number](rows, cols int, flat []T) *mat.Dense {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("tensors.FromFlat: dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(flat) != rows*cols {
		exceptions.Panicf("tensors.FromFlat: %dx%d tensor requires %d values, got %d",
			rows, cols, rows*cols, len(flat))
	}
	data := make([]float64, len(flat))
	for ii, v := range flat {
		data[ii] = toFloat64(v)
	}
	return mat.NewDense(rows, cols, data)
}

// FromRows creates a tensor from a 2D slice, one inner slice per example.
// All rows must have the same (non-zero) length.
func FromRows[T Number](rows [][]T) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		exceptions.Panicf("tensors.FromRows: empty tensor")
	}
	cols := len(rows[0])
	flat := make([]T, 0, len(rows)*cols)
	for ii, row := range rows {
		if len(row) != cols {
			exceptions.Panicf("tensors.FromRows: row %d has %d values, row 0 has %d", ii, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return FromFlat(len(rows), cols, flat)
}

// FromVector creates an N×1 tensor: N examples of a single feature.
func FromVector[T Number](values []T) *mat.Dense {
	return FromFlat(len(values), 1, values)
}

// Full creates a rows×cols tensor filled with value.
func Full(rows, cols int, value float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for ii := range data {
		data[ii] = value
	}
	return mat.NewDense(rows, cols, data)
}

// Apply returns a new tensor with fn applied to each element of m.
func Apply(m mat.Matrix, fn func(v float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
	return &out
}

// MeanOverBatch reduces m with the arithmetic mean over the batch axis (rows), returning one value
// per feature (column).
func MeanOverBatch(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	means := make([]float64, cols)
	column := make([]float64, rows)
	for col := range cols {
		mat.Col(column, col, m)
		means[col] = stat.Mean(column, nil)
	}
	return means
}

// Sum returns the sum of values.
func Sum(values []float64) float64 {
	return floats.Sum(values)
}

// Mean returns the arithmetic mean over all elements of m.
func Mean(m mat.Matrix) float64 {
	rows, cols := m.Dims()
	return mat.Sum(m) / float64(rows*cols)
}

// AssertSameShape panics if a and b don't have the same dimensions. aName and bName are used in the
// error message.
func AssertSameShape(a, b mat.Matrix, aName, bName string) {
	aRows, aCols := a.Dims()
	bRows, bCols := b.Dims()
	if aRows != bRows || aCols != bCols {
		exceptions.Panicf("%s (%dx%d) and %s (%dx%d) must have the same shape",
			aName, aRows, aCols, bName, bRows, bCols)
	}
}

// IsFinite returns whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite returns whether every element of m is finite.
func AllFinite(m mat.Matrix) bool {
	rows, cols := m.Dims()
	for row := range rows {
		for col := range cols {
			if !IsFinite(m.At(row, col)) {
				return false
			}
		}
	}
	return true
}
