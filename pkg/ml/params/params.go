// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package params holds scoped hyperparameters used to configure penalties.
//
// Parameters are stored per scope, and a lookup starts at the current scope and walks up to the
// root scope, so "/decoder/kl_scale" overrides the root "kl_scale" only for the decoder.
//
// Example:
//
//	p := params.New()
//	p.SetParam(regularizers.ParamKLScale, 1.0)
//	p.In("decoder").SetParam(regularizers.ParamKLScale, 0.1)
//	scale := params.GetOr(p.In("decoder"), regularizers.ParamKLScale, 1.0) // 0.1
package params

import (
	"maps"
	"reflect"
	"slices"
	"strings"

	"k8s.io/klog/v2"
)

// ScopeSeparator separates parts of a scope path. The root scope is referred to as "/".
const ScopeSeparator = "/"

// RootScope is the scope at the top of the hierarchy.
const RootScope = ScopeSeparator

// Params is a reference to a scoped hyperparameters store, positioned at one scope.
//
// Views created with In share the same underlying store.
type Params struct {
	scope string
	data  *scopedParams
}

// scopedParams maps scope to a map of key to value.
type scopedParams struct {
	scopeToMap map[string]map[string]any
}

// New creates an empty store positioned at the root scope.
func New() *Params {
	return &Params{
		scope: RootScope,
		data:  &scopedParams{scopeToMap: make(map[string]map[string]any)},
	}
}

// Scope returns the absolute scope of this view.
func (p *Params) Scope() string { return p.scope }

// In returns a view into the sub-scope `scope` of the current one. The underlying store is shared.
func (p *Params) In(scope string) *Params {
	if scope == "" {
		return p
	}
	var newScope string
	if p.scope == RootScope {
		newScope = RootScope + scope
	} else {
		newScope = p.scope + ScopeSeparator + scope
	}
	return &Params{scope: newScope, data: p.data}
}

// InAbsPath returns a view positioned at the absolute scope path. It must start with ScopeSeparator.
func (p *Params) InAbsPath(scopePath string) *Params {
	if scopePath == "" || !strings.HasPrefix(scopePath, ScopeSeparator) {
		scopePath = ScopeSeparator + scopePath
	}
	if len(scopePath) > 1 {
		scopePath = strings.TrimSuffix(scopePath, ScopeSeparator)
	}
	return &Params{scope: scopePath, data: p.data}
}

// SetParam sets the value for key in the current scope.
func (p *Params) SetParam(key string, value any) {
	p.data.set(p.scope, key, value)
}

// GetParam searches for key in the current scope and its parents, and returns the first value found.
func (p *Params) GetParam(key string) (value any, found bool) {
	return p.data.get(p.scope, key)
}

// EnumerateParams calls fn for every parameter in the store, sorted by scope and then key.
func (p *Params) EnumerateParams(fn func(scope, key string, value any)) {
	p.data.enumerate(fn)
}

// SplitScope splits a parameter path like "/a/b/key" into its scope ("/a/b") and key ("key").
// A path without a separator has an empty scope.
func SplitScope(path string) (scope, key string) {
	idx := strings.LastIndex(path, ScopeSeparator)
	if idx == -1 {
		return "", path
	}
	scope, key = path[:idx], path[idx+1:]
	if scope == "" {
		scope = RootScope
	}
	return
}

func (s *scopedParams) set(scope, key string, value any) {
	dataMap, found := s.scopeToMap[scope]
	if !found || dataMap == nil {
		dataMap = make(map[string]any)
		s.scopeToMap[scope] = dataMap
	}
	dataMap[key] = value
}

func (s *scopedParams) get(scope, key string) (value any, found bool) {
	for {
		dataMap := s.scopeToMap[scope]
		if dataMap != nil {
			value, found = dataMap[key]
			if found {
				return
			}
		}
		if scope == RootScope {
			return nil, false
		}
		idx := strings.LastIndex(scope, ScopeSeparator)
		if idx <= 0 {
			scope = RootScope
		} else {
			scope = scope[:idx]
		}
	}
}

func (s *scopedParams) enumerate(fn func(scope, key string, value any)) {
	for _, scope := range slices.Sorted(maps.Keys(s.scopeToMap)) {
		keyValues := s.scopeToMap[scope]
		for _, key := range slices.Sorted(maps.Keys(keyValues)) {
			fn(scope, key, keyValues[key])
		}
	}
}

// GetOr reads the parameter `name` and casts it to T. If the parameter is not defined, or if it
// cannot be converted to T, it returns defaultValue instead.
func GetOr[T any](p *Params, name string, defaultValue T) T {
	valueI, found := p.GetParam(name)
	if !found {
		return defaultValue
	}
	value, ok := valueI.(T)
	if ok {
		return value
	}

	// Try converting, for instance, an int could be converted to float64.
	v := reflect.ValueOf(valueI)
	var t T
	typeOfT := reflect.TypeOf(t)
	if !v.IsValid() || !v.CanConvert(typeOfT) {
		klog.Warningf("Tried to read hyperparameter %q as %T, but failed because it was type %T.",
			name, t, valueI)
		return defaultValue
	}
	return v.Convert(typeOfT).Interface().(T)
}
