// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestParams() *params.Params {
	p := params.New()
	p.SetParam("x", 11.0)
	p.SetParam("y", 7)
	p.SetParam("z", false)
	p.SetParam("s", "foo")
	p.SetParam("list_float", []float64{})
	p.SetParam("list_str", []string{})
	return p
}

func TestParseSettings(t *testing.T) {
	p := createTestParams()

	paramsSet, err := ParseSettings(p, "x=13;/a/z=true;/a/b/y=3;s=bar;list_float=0.1,1.2,3e3;list_str=a,b;y=1_000")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "/a/z", "/a/b/y", "s", "list_float", "list_str", "y"}, paramsSet)
	x, found := p.GetParam("x")
	assert.True(t, found)
	assert.Equal(t, 13.0, x.(float64))

	y, found := p.GetParam("y")
	assert.True(t, found)
	assert.Equal(t, 1000, y)
	y, _ = p.In("a").GetParam("y")
	assert.Equal(t, 1000, y)
	y, _ = p.In("a").In("b").GetParam("y")
	assert.Equal(t, 3, y)

	z, _ := p.GetParam("z")
	assert.False(t, z.(bool))
	z, _ = p.In("a").GetParam("z")
	assert.True(t, z.(bool))

	assert.Equal(t, "bar", params.GetOr(p, "s", ""))
	assert.Equal(t, []float64{0.1, 1.2, 3e3}, params.GetOr(p, "list_float", []float64{}))
	assert.Equal(t, []string{"a", "b"}, params.GetOr(p, "list_str", []string{}))

	// Parameter "q" is unknown.
	_, err = ParseSettings(p, "q=3")
	require.Error(t, err)

	// Parameter "q" is still unknown in root.
	p.In("c").SetParam("q", 13)
	_, err = ParseSettings(p, "q=3")
	require.Error(t, err)

	// Cannot set the wrong type of value.
	_, err = ParseSettings(p, "y=3.14")
	require.Error(t, err)

	// Cannot parse setting with scope not absolute.
	_, err = ParseSettings(p, "a/x=3.14")
	require.Error(t, err)

	// Malformed.
	_, err = ParseSettings(p, "x")
	require.Error(t, err)
}

func TestParseSettingsFile(t *testing.T) {
	p := params.New()
	regularizers.SetDefaultParams(p)
	fileName := filepath.Join(t.TempDir(), "settings.txt")
	contents := "# KL settings\nkl_scale=0.5\n\n/decoder/correntropy_sigma=2;constant_cost=1\n"
	require.NoError(t, os.WriteFile(fileName, []byte(contents), 0o644))

	paramsSet, err := ParseSettings(p, "file:"+fileName+";kl_prior_mean=0.25")
	require.NoError(t, err)
	assert.Equal(t, []string{"kl_scale", "/decoder/correntropy_sigma", "constant_cost", "kl_prior_mean"}, paramsSet)
	assert.Equal(t, 0.5, params.GetOr(p, regularizers.ParamKLScale, 0.0))
	assert.Equal(t, 2.0, params.GetOr(p.In("decoder"), regularizers.ParamCorrentropySigma, 0.0))
	assert.Equal(t, regularizers.DefaultCorrentropySigma, params.GetOr(p, regularizers.ParamCorrentropySigma, 0.0))

	modified := SprintModifiedSettings(p, append(paramsSet, "kl_scale"))
	assert.Equal(t, 1, strings.Count(modified, `"kl_scale"`))
	assert.Contains(t, modified, `"/decoder/correntropy_sigma": (float64) 2`)
	assert.Contains(t, SprintSettings(p), `"/kl_scale": (float64) 0.5`)

	_, err = ParseSettings(p, "file:"+filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestConfigsTable(t *testing.T) {
	configs := ConfigsTable([]regularizers.Config{regularizers.NewActivityCorrentropy(1, 2).Config()})
	assert.Contains(t, configs, "activity_correntropy{scale=1, sigma=2}")
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pBar := NewProgressBar(3, &buf)
	for step := range 3 {
		pBar.Update(StepTerms{Step: step, Loss: float64(step), Terms: []regularizers.Term{
			{Config: regularizers.NewConstant(1).Config(), Value: 1},
		}})
	}
	pBar.Done()
	assert.Contains(t, buf.String(), "constant")
}
