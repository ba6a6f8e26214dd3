// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

func TestFromFlat(t *testing.T) {
	m := FromFlat(2, 3, []float32{1, 2, 3, 4, 5, 6})
	rows, cols := m.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	assert.Equal(t, 6.0, m.At(1, 2))

	ints := FromFlat(1, 2, []int32{-1, 7})
	assert.Equal(t, -1.0, ints.At(0, 0))
	assert.Equal(t, 7.0, ints.At(0, 1))

	half := FromVector([]float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(-2)})
	assert.Equal(t, 0.5, half.At(0, 0))
	assert.Equal(t, -2.0, half.At(1, 0))

	require.Panics(t, func() { _ = FromFlat(2, 2, []float64{1, 2, 3}) })
	require.Panics(t, func() { _ = FromFlat(0, 2, []float64{}) })
}

func TestFromRows(t *testing.T) {
	m := FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	rows, cols := m.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 2, cols)
	assert.Equal(t, 3.0, m.At(1, 0))
	require.Panics(t, func() { _ = FromRows([][]float64{{1, 2}, {3}}) })
	require.Panics(t, func() { _ = FromRows([][]float64{}) })
}

func TestReductions(t *testing.T) {
	m := FromRows([][]float64{{1, 10}, {3, 20}})
	assert.Equal(t, []float64{2, 15}, MeanOverBatch(m))
	assert.Equal(t, 17.0, Sum(MeanOverBatch(m)))
	assert.Equal(t, 8.5, Mean(m))

	squared := Apply(m, func(v float64) float64 { return v * v })
	assert.Equal(t, 400.0, squared.At(1, 1))
	// Input is not modified.
	assert.Equal(t, 20.0, m.At(1, 1))

	full := Full(2, 2, 0.25)
	assert.Equal(t, 1.0, mat.Sum(full))
}

func TestShapeAndFiniteness(t *testing.T) {
	a := Full(2, 3, 1)
	require.NotPanics(t, func() { AssertSameShape(a, Full(2, 3, 0), "a", "b") })
	require.Panics(t, func() { AssertSameShape(a, Full(3, 2, 0), "a", "b") })

	assert.True(t, AllFinite(a))
	a.Set(1, 1, math.Inf(1))
	assert.False(t, AllFinite(a))
	assert.False(t, IsFinite(math.NaN()))
	assert.True(t, IsFinite(-1e300))
}
