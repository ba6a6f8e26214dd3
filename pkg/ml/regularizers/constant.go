// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package regularizers

import "github.com/gomlx/penalties/pkg/ml/params"

// Constant adds a fixed cost to the loss at every step.
type Constant float64

var _ Regularizer = Constant(0)

// NewConstant returns a regularizer that adds cost to the loss.
func NewConstant(cost float64) Constant { return Constant(cost) }

// ConstantFromParams creates a Constant regularizer with the cost given by ParamConstantCost, or
// 0 if not set.
func ConstantFromParams(p *params.Params) Constant {
	return Constant(params.GetOr(p, ParamConstantCost, 0.0))
}

// ConstantFromConfig recreates a Constant regularizer from its Config.
func ConstantFromConfig(cfg Config) (Constant, error) {
	if err := cfg.checkKind(KindConstant); err != nil {
		return 0, err
	}
	cost, err := cfg.param(ConfigCost)
	if err != nil {
		return 0, err
	}
	return Constant(cost), nil
}

// Apply implements Regularizer.
func (c Constant) Apply(loss float64) (float64, error) {
	return loss + float64(c), nil
}

// Config implements Regularizer.
func (c Constant) Config() Config {
	return Config{Kind: KindConstant, Params: map[string]float64{ConfigCost: float64(c)}}
}
