// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package params

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedLookup(t *testing.T) {
	p := New()
	p.SetParam("x", 10)
	p.SetParam("y", 20)
	p.SetParam("z", 40)
	p.In("a").SetParam("y", 30)
	p.In("a").In("b").SetParam("x", 100)

	ab := p.InAbsPath("/a/b")
	require.Equal(t, "/a/b", ab.Scope())
	for _, tc := range []struct {
		key   string
		want  any
		found bool
	}{
		{"x", 100, true},
		{"y", 30, true},
		{"z", 40, true},
		{"w", nil, false},
	} {
		got, found := ab.GetParam(tc.key)
		assert.Equalf(t, tc.found, found, "key %q", tc.key)
		assert.Equalf(t, tc.want, got, "key %q", tc.key)
	}

	// Root doesn't see sub-scope overrides.
	got, _ := p.GetParam("x")
	assert.Equal(t, 10, got)
}

func TestEnumerateParams(t *testing.T) {
	p := New()
	p.In("b").SetParam("k", 1)
	p.SetParam("z", 2)
	p.SetParam("a", 3)
	var visited []string
	p.EnumerateParams(func(scope, key string, value any) {
		visited = append(visited, fmt.Sprintf("%s:%s=%v", scope, key, value))
	})
	require.Equal(t, []string{"/:a=3", "/:z=2", "/b:k=1"}, visited)
}

func TestSplitScope(t *testing.T) {
	scope, key := SplitScope("/a/b/kl_scale")
	assert.Equal(t, "/a/b", scope)
	assert.Equal(t, "kl_scale", key)

	scope, key = SplitScope("/kl_scale")
	assert.Equal(t, RootScope, scope)
	assert.Equal(t, "kl_scale", key)

	scope, key = SplitScope("kl_scale")
	assert.Equal(t, "", scope)
	assert.Equal(t, "kl_scale", key)
}

func TestGetOr(t *testing.T) {
	p := New()
	p.SetParam("sigma", 2.0)
	p.SetParam("steps", 7)
	p.SetParam("name", "vae")

	assert.Equal(t, 2.0, GetOr(p, "sigma", 1.0))
	assert.Equal(t, 5.0, GetOr(p, "missing", 5.0))
	// int converts to float64.
	assert.Equal(t, 7.0, GetOr(p, "steps", 0.0))
	// string can't be converted to float64: default is returned.
	assert.Equal(t, 3.0, GetOr(p, "name", 3.0))
}
