// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package regularizers

import (
	"slices"

	"github.com/gomlx/penalties/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Set applies several regularizers in order.
type Set []Regularizer

// Combine the provided regularizers into a Set, skipping nil ones.
func Combine(regs ...Regularizer) Set {
	return slices.DeleteFunc(slices.Clone(regs), func(r Regularizer) bool { return r == nil })
}

// Term is the contribution of one regularizer to the loss.
type Term struct {
	Config Config
	Value  float64
}

// Apply adds the penalties of all the regularizers in the set to loss.
//
// Non-finite results are not rejected: it is up to the training loop to decide what to do with them.
func (s Set) Apply(loss float64) (float64, error) {
	terms, err := s.Breakdown()
	if err != nil {
		return loss, err
	}
	for _, term := range terms {
		loss += term.Value
	}
	return loss, nil
}

// Breakdown returns the contribution of each regularizer in the set, in order.
func (s Set) Breakdown() ([]Term, error) {
	terms := make([]Term, 0, len(s))
	for ii, reg := range s {
		value, err := reg.Apply(0)
		if err != nil {
			return nil, errors.WithMessagef(err, "regularizer #%d (%s)", ii, reg.Config().Kind)
		}
		cfg := reg.Config()
		if !tensors.IsFinite(value) && klog.V(1).Enabled() {
			klog.Warningf("regularizer #%d %s produced a non-finite penalty %g", ii, cfg, value)
		}
		klog.V(2).Infof("regularizer #%d %s: %g", ii, cfg, value)
		terms = append(terms, Term{Config: cfg, Value: value})
	}
	return terms, nil
}

// Configs returns the configuration of each regularizer in the set.
func (s Set) Configs() []Config {
	configs := make([]Config, len(s))
	for ii, reg := range s {
		configs[ii] = reg.Config()
	}
	return configs
}
