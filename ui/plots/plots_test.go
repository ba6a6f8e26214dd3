// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package plots

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoints() []Point {
	var raw []Point
	for step := range 3 {
		terms := []regularizers.Term{
			{Config: regularizers.NewConstant(0.5).Config(), Value: 0.5},
			{Config: regularizers.NewWeightCorrentropy(1, 1).Config(), Value: float64(step)},
			{Config: regularizers.NewWeightCorrentropy(2, 1).Config(), Value: 2 * float64(step)},
		}
		raw = append(raw, FromTerms(step*100, 10+float64(step), terms)...)
	}
	return raw
}

func TestFromTerms(t *testing.T) {
	raw := testPoints()
	require.Len(t, raw, 12)
	assert.Equal(t, Point{MetricName: LossMetricName, MetricType: MetricTypeLoss, Step: 0, Value: 10}, raw[0])
	assert.Equal(t, "weight_correntropy#1", raw[3].MetricName)

	points := NewPoints(raw)
	assert.Equal(t, []string{LossMetricName, "constant", "weight_correntropy", "weight_correntropy#1"},
		points.MetricsNames())
	assert.Equal(t, raw, points.Extract())
}

func TestTableForMetrics(t *testing.T) {
	points := NewPoints(testPoints())
	table := points.TableForMetrics()
	assert.Contains(t, table, "Step")
	assert.Contains(t, table, "weight_correntropy#1")
	assert.Contains(t, table, "200")
	assert.Contains(t, table, "12")

	onlyLoss := points.TableForMetrics(LossMetricName)
	assert.NotContains(t, onlyLoss, "constant")
}

func TestSaveAndLoadPoints(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "points.json")
	raw := testPoints()
	withNaN := append(raw, Point{MetricName: LossMetricName, MetricType: MetricTypeLoss, Step: 300, Value: math.NaN()})
	require.NoError(t, SavePoints(filePath, withNaN))
	loaded, err := LoadPoints(filePath)
	require.NoError(t, err)
	assert.Equal(t, raw, loaded)

	_, err = LoadPoints(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "penalties.png")
	require.NoError(t, NewPoints(testPoints()).SavePlot(filePath, "Penalties"))
	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
