// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"flag"
	"testing"

	"github.com/gomlx/penalties/pkg/core/tensors"
	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/gomlx/penalties/ui/commandline"
	"github.com/gomlx/penalties/ui/plots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
	_ = flag.Set("v", "2")
}

func TestRunDemo(t *testing.T) {
	p := params.New()
	regularizers.SetDefaultParams(p)
	_, err := commandline.ParseSettings(p, "constant_cost=0.25;/decoder/correntropy_scale=0.01")
	require.NoError(t, err)

	var progress bytes.Buffer
	cfg := DemoConfig{Steps: 20, BatchSize: 4, LatentDim: 3, HiddenDim: 5, Seed: 1, Progress: &progress}
	results, set, err := RunDemo(p, cfg)
	require.NoError(t, err)
	require.Len(t, results, 20)
	require.Len(t, set, 4)
	assert.NotEmpty(t, progress.String())

	configs := set.Configs()
	assert.Equal(t, regularizers.KindGaussianKL, configs[0].Kind)
	assert.Equal(t, 0.25, configs[1].Params[regularizers.ConfigCost])
	assert.Equal(t, 1.0, configs[2].Params[regularizers.ConfigScale])
	assert.Equal(t, 0.01, configs[3].Params[regularizers.ConfigScale])

	for _, step := range results {
		require.Len(t, step.Terms, 4)
		assert.GreaterOrEqual(t, step.Terms[0].Value, -1e-12, "KL must be non-negative")
		assert.Equal(t, 0.25, step.Terms[1].Value)
		assert.Greater(t, step.Terms[2].Value, 0.0)
		assert.Greater(t, step.Terms[3].Value, 0.0)
		assert.True(t, tensors.IsFinite(step.Loss))
	}

	// Same seed, same results.
	again, _, err := RunDemo(p, DemoConfig{Steps: 20, BatchSize: 4, LatentDim: 3, HiddenDim: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, results, again)

	_, _, err = RunDemo(p, DemoConfig{Steps: 0, BatchSize: 4, LatentDim: 3, HiddenDim: 5})
	require.Error(t, err)
}

func TestSampleSteps(t *testing.T) {
	results := make([]commandline.StepTerms, 10)
	for ii := range results {
		results[ii].Step = ii
	}
	sampled := sampleSteps(results, 3)
	require.Len(t, sampled, 3)
	assert.Equal(t, 2, sampled[0].Step)
	assert.Equal(t, 5, sampled[1].Step)
	assert.Equal(t, 9, sampled[2].Step)
	assert.Len(t, sampleSteps(results, 20), 10)
	assert.Len(t, sampleSteps(results, 0), 10)
}

func TestToPoints(t *testing.T) {
	p := params.New()
	regularizers.SetDefaultParams(p)
	results, _, err := RunDemo(p, DemoConfig{Steps: 5, BatchSize: 2, LatentDim: 2, HiddenDim: 2, Seed: 3})
	require.NoError(t, err)
	points := toPoints(results)
	require.Len(t, points, 5*5)
	assert.Equal(t, plots.LossMetricName, points[0].MetricName)
	assert.Equal(t, results[4].Loss, points[20].Value)
}
