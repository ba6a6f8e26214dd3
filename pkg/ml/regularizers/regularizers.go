// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package regularizers adds penalty terms to a training loss.
//
// Each regularizer is configured once and then applied by the host training loop at every step:
// Apply receives the current scalar loss and returns it with the penalty added. No state is kept
// across calls, so applying the same regularizer twice to the same loss yields the same result.
//
// There are four regularizers:
//
//   - GaussianKL: closed-form KL divergence between the Gaussian N(mean, exp(logSigma)²) and a prior
//     Gaussian, typically used on the latent space of variational auto-encoders.
//   - Constant: adds a fixed cost.
//   - ActivityCorrentropy: correntropy of a layer's training activations.
//   - WeightCorrentropy: correntropy of a weight tensor.
//
// The correntropy regularizers are built in two phases: NewActivityCorrentropy (or
// NewWeightCorrentropy) returns an unbound configuration that can't be applied, and Bind returns
// the applicable regularizer once the layer (or weight) reference is given.
//
// Tensors are gonum mat.Matrix values with the batch as the leading axis (rows).
package regularizers

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Regularizer is implemented by every penalty.
type Regularizer interface {
	// Apply returns loss plus the penalty. It must be callable once per training step, and it keeps
	// no state between calls.
	Apply(loss float64) (float64, error)

	// Config returns the kind of the regularizer and its scalar hyperparameters.
	Config() Config
}

// Kind names a regularizer type.
type Kind string

const (
	KindGaussianKL          Kind = "gaussian_kl"
	KindConstant            Kind = "constant"
	KindActivityCorrentropy Kind = "activity_correntropy"
	KindWeightCorrentropy   Kind = "weight_correntropy"
)

// Kinds lists all known regularizer kinds.
func Kinds() []Kind {
	return []Kind{KindGaussianKL, KindConstant, KindActivityCorrentropy, KindWeightCorrentropy}
}

// Names of the scalar hyperparameters reported by Config.
const (
	ConfigScale         = "scale"
	ConfigSigma         = "sigma"
	ConfigCost          = "cost"
	ConfigPriorMean     = "prior_mean"
	ConfigPriorLogSigma = "prior_logsigma"
)

// Config describes a regularizer for serialization or logging: its kind and its scalar
// hyperparameters.
type Config struct {
	Kind   Kind
	Params map[string]float64
}

// String implements fmt.Stringer, with parameters sorted by name.
func (c Config) String() string {
	parts := make([]string, 0, len(c.Params))
	for _, key := range slices.Sorted(maps.Keys(c.Params)) {
		parts = append(parts, fmt.Sprintf("%s=%g", key, c.Params[key]))
	}
	return fmt.Sprintf("%s{%s}", c.Kind, strings.Join(parts, ", "))
}

// param returns the named parameter or an error if it is missing.
func (c Config) param(name string) (float64, error) {
	value, found := c.Params[name]
	if !found {
		return 0, errors.Errorf("regularizer config %s is missing parameter %q", c, name)
	}
	return value, nil
}

// checkKind returns an error if c is not of the given kind.
func (c Config) checkKind(kind Kind) error {
	if c.Kind != kind {
		return errors.Errorf("regularizer config %s is not of kind %q", c, kind)
	}
	return nil
}

// ErrUnboundReference is returned when a correntropy regularizer is applied before its layer or
// weight reference has been bound.
var ErrUnboundReference = errors.New("regularizer applied before its layer or weight reference was bound")
