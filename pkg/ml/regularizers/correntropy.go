// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package regularizers

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/penalties/pkg/core/tensors"
	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultCorrentropyScale is used by the *FromParams constructors if ParamCorrentropyScale is not set.
	DefaultCorrentropyScale = 1.0

	// DefaultCorrentropySigma is used by the *FromParams constructors if ParamCorrentropySigma is not set.
	DefaultCorrentropySigma = 1.0
)

// Correntropy returns sum over features of the mean over the batch of exp(x²/sigma).
//
// x is shaped [batchSize, numFeatures]. There is no clamping: large |x| or small sigma overflow to +Inf.
func Correntropy(x mat.Matrix, sigma float64) float64 {
	kernel := tensors.Apply(x, func(v float64) float64 { return math.Exp(v * v / sigma) })
	return tensors.Sum(tensors.MeanOverBatch(kernel))
}

// ActivationSource gives access to a layer's output, as computed in the training forward pass.
//
// Regularizers only borrow it: the layer is owned by the host and must outlive the regularizer.
type ActivationSource interface {
	TrainingOutput() (mat.Matrix, error)
}

// ActivationFunc adapts a function to an ActivationSource.
type ActivationFunc func() (mat.Matrix, error)

// TrainingOutput implements ActivationSource.
func (fn ActivationFunc) TrainingOutput() (mat.Matrix, error) { return fn() }

// WeightSource gives access to the current value of a weight tensor.
//
// Regularizers only borrow it: the weight is owned by the host and must outlive the regularizer.
type WeightSource interface {
	Value() mat.Matrix
}

// matrixWeight adapts a matrix updated in place by the host to a WeightSource.
type matrixWeight struct {
	m mat.Matrix
}

func (w matrixWeight) Value() mat.Matrix { return w.m }

// UnboundActivityCorrentropy is the configuration of an activity correntropy penalty, before the
// layer it applies to is known. It can't be applied: call Bind to get the regularizer.
type UnboundActivityCorrentropy struct {
	Scale, Sigma float64
}

// NewActivityCorrentropy configures a correntropy penalty over a layer's activations.
func NewActivityCorrentropy(scale, sigma float64) UnboundActivityCorrentropy {
	return UnboundActivityCorrentropy{Scale: scale, Sigma: sigma}
}

// ActivityCorrentropyFromParams configures the penalty from ParamCorrentropyScale and
// ParamCorrentropySigma, using DefaultCorrentropyScale and DefaultCorrentropySigma if not set.
func ActivityCorrentropyFromParams(p *params.Params) UnboundActivityCorrentropy {
	return NewActivityCorrentropy(
		params.GetOr(p, ParamCorrentropyScale, DefaultCorrentropyScale),
		params.GetOr(p, ParamCorrentropySigma, DefaultCorrentropySigma))
}

// ActivityCorrentropyFromConfig recreates the unbound configuration from a Config.
func ActivityCorrentropyFromConfig(cfg Config) (UnboundActivityCorrentropy, error) {
	scale, sigma, err := correntropyFromConfig(cfg, KindActivityCorrentropy)
	return UnboundActivityCorrentropy{Scale: scale, Sigma: sigma}, err
}

// Bind returns the regularizer applied to layer. It panics if layer is nil.
func (u UnboundActivityCorrentropy) Bind(layer ActivationSource) *ActivityCorrentropy {
	if layer == nil {
		exceptions.Panicf("ActivityCorrentropy.Bind() requires a non-nil layer")
	}
	return &ActivityCorrentropy{scale: u.Scale, sigma: u.Sigma, layer: layer}
}

// Config returns the configuration the regularizer will have once bound.
func (u UnboundActivityCorrentropy) Config() Config {
	return correntropyConfig(KindActivityCorrentropy, u.Scale, u.Sigma)
}

// ActivityCorrentropy penalizes a layer's training activations with scale·Correntropy(output, sigma).
//
// Create it with NewActivityCorrentropy(...).Bind(layer). The zero value is unbound, and Apply
// returns ErrUnboundReference.
type ActivityCorrentropy struct {
	scale, sigma float64
	layer        ActivationSource
}

var _ Regularizer = (*ActivityCorrentropy)(nil)

// Apply implements Regularizer.
func (r *ActivityCorrentropy) Apply(loss float64) (float64, error) {
	if r == nil || r.layer == nil {
		return loss, errors.Wrap(ErrUnboundReference, "activity correntropy has no layer")
	}
	output, err := r.layer.TrainingOutput()
	if err != nil {
		return loss, errors.Wrapf(err, "failed to read layer output for %s", r.Config())
	}
	if output == nil {
		return loss, errors.Errorf("layer returned no output for %s", r.Config())
	}
	return loss + r.scale*Correntropy(output, r.sigma), nil
}

// Config implements Regularizer.
func (r *ActivityCorrentropy) Config() Config {
	if r == nil {
		return correntropyConfig(KindActivityCorrentropy, 0, 0)
	}
	return correntropyConfig(KindActivityCorrentropy, r.scale, r.sigma)
}

// UnboundWeightCorrentropy is the configuration of a weight correntropy penalty, before the
// weight it applies to is known. It can't be applied: call Bind or BindMatrix to get the regularizer.
type UnboundWeightCorrentropy struct {
	Scale, Sigma float64
}

// NewWeightCorrentropy configures a correntropy penalty over a weight tensor.
func NewWeightCorrentropy(scale, sigma float64) UnboundWeightCorrentropy {
	return UnboundWeightCorrentropy{Scale: scale, Sigma: sigma}
}

// WeightCorrentropyFromParams configures the penalty from ParamCorrentropyScale and
// ParamCorrentropySigma, using DefaultCorrentropyScale and DefaultCorrentropySigma if not set.
func WeightCorrentropyFromParams(p *params.Params) UnboundWeightCorrentropy {
	return NewWeightCorrentropy(
		params.GetOr(p, ParamCorrentropyScale, DefaultCorrentropyScale),
		params.GetOr(p, ParamCorrentropySigma, DefaultCorrentropySigma))
}

// WeightCorrentropyFromConfig recreates the unbound configuration from a Config.
func WeightCorrentropyFromConfig(cfg Config) (UnboundWeightCorrentropy, error) {
	scale, sigma, err := correntropyFromConfig(cfg, KindWeightCorrentropy)
	return UnboundWeightCorrentropy{Scale: scale, Sigma: sigma}, err
}

// Bind returns the regularizer applied to weight. It panics if weight is nil.
func (u UnboundWeightCorrentropy) Bind(weight WeightSource) *WeightCorrentropy {
	if weight == nil {
		exceptions.Panicf("WeightCorrentropy.Bind() requires a non-nil weight")
	}
	return &WeightCorrentropy{scale: u.Scale, sigma: u.Sigma, weight: weight}
}

// BindMatrix binds the regularizer to a weight matrix, read at every Apply. The host may update it
// in place between steps.
func (u UnboundWeightCorrentropy) BindMatrix(weight mat.Matrix) *WeightCorrentropy {
	if weight == nil {
		exceptions.Panicf("WeightCorrentropy.BindMatrix() requires a non-nil weight")
	}
	return u.Bind(matrixWeight{m: weight})
}

// Config returns the configuration the regularizer will have once bound.
func (u UnboundWeightCorrentropy) Config() Config {
	return correntropyConfig(KindWeightCorrentropy, u.Scale, u.Sigma)
}

// WeightCorrentropy penalizes a weight tensor with scale·Correntropy(weight, sigma).
//
// Create it with NewWeightCorrentropy(...).Bind(weight). The zero value is unbound, and Apply
// returns ErrUnboundReference.
type WeightCorrentropy struct {
	scale, sigma float64
	weight       WeightSource
}

var _ Regularizer = (*WeightCorrentropy)(nil)

// Apply implements Regularizer.
func (r *WeightCorrentropy) Apply(loss float64) (float64, error) {
	if r == nil || r.weight == nil {
		return loss, errors.Wrap(ErrUnboundReference, "weight correntropy has no weight")
	}
	value := r.weight.Value()
	if value == nil {
		return loss, errors.Errorf("weight has no value for %s", r.Config())
	}
	return loss + r.scale*Correntropy(value, r.sigma), nil
}

// Config implements Regularizer.
func (r *WeightCorrentropy) Config() Config {
	if r == nil {
		return correntropyConfig(KindWeightCorrentropy, 0, 0)
	}
	return correntropyConfig(KindWeightCorrentropy, r.scale, r.sigma)
}

func correntropyConfig(kind Kind, scale, sigma float64) Config {
	return Config{Kind: kind, Params: map[string]float64{ConfigScale: scale, ConfigSigma: sigma}}
}

func correntropyFromConfig(cfg Config, kind Kind) (scale, sigma float64, err error) {
	if err = cfg.checkKind(kind); err != nil {
		return
	}
	if scale, err = cfg.param(ConfigScale); err != nil {
		return
	}
	sigma, err = cfg.param(ConfigSigma)
	return
}
