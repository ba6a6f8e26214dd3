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
	// DefaultPriorMean is the mean of the prior Gaussian if none is given.
	DefaultPriorMean = 0.0

	// DefaultPriorLogSigma is the log of the standard deviation of the prior Gaussian if none is given.
	DefaultPriorLogSigma = 1.0
)

// GaussianKLDivergence returns the element-wise KL divergence
// D_KL(N(mean, exp(2·logSigma)) ‖ N(priorMean, exp(2·priorLogSigma))):
//
//	kl = priorLogSigma - logSigma + ½·(exp(2·logSigma) + (mean-priorMean)²)/exp(2·priorLogSigma) - ½
//
// The result is exactly 0 where the two distributions are the same, and non-negative otherwise.
// Overflow in the exponentials is not guarded, and yields ±Inf or NaN.
//
// mean and logSigma must have the same shape, it panics otherwise.
func GaussianKLDivergence(mean, logSigma mat.Matrix, priorMean, priorLogSigma float64) *mat.Dense {
	tensors.AssertSameShape(mean, logSigma, "mean", "logSigma")
	priorVariance := math.Exp(2 * priorLogSigma)
	var kl mat.Dense
	kl.Apply(func(row, col int, ls float64) float64 {
		diff := mean.At(row, col) - priorMean
		return priorLogSigma - ls + 0.5*(math.Exp(2*ls)+diff*diff)/priorVariance - 0.5
	}, logSigma)
	return &kl
}

// GaussianKLBuilder configures a GaussianKL regularizer. Create it with NewGaussianKL, set the
// optional parameters, and call Done.
type GaussianKLBuilder struct {
	kl GaussianKL
}

// NewGaussianKL starts the configuration of a KL divergence penalty of the distribution given by
// mean and logSigma (shaped [batchSize, latentDim]) against the prior Gaussian.
//
// The matrices are borrowed: they are read at every Apply, so the host may update them in place
// between training steps.
//
// Defaults: prior mean DefaultPriorMean, prior log-sigma DefaultPriorLogSigma and scale 1.
func NewGaussianKL(mean, logSigma mat.Matrix) *GaussianKLBuilder {
	return &GaussianKLBuilder{
		kl: GaussianKL{
			mean:          mean,
			logSigma:      logSigma,
			priorMean:     DefaultPriorMean,
			priorLogSigma: DefaultPriorLogSigma,
			scale:         1.0,
		},
	}
}

// Prior sets the mean and log-sigma of the target distribution.
func (b *GaussianKLBuilder) Prior(mean, logSigma float64) *GaussianKLBuilder {
	b.kl.priorMean = mean
	b.kl.priorLogSigma = logSigma
	return b
}

// Scale sets the multiplier applied to the penalty (the regularizer scale).
func (b *GaussianKLBuilder) Scale(scale float64) *GaussianKLBuilder {
	b.kl.scale = scale
	return b
}

// FromParams reads ParamKLScale, ParamKLPriorMean and ParamKLPriorLogSigma from p, keeping the
// current values for the ones not set.
func (b *GaussianKLBuilder) FromParams(p *params.Params) *GaussianKLBuilder {
	b.kl.scale = params.GetOr(p, ParamKLScale, b.kl.scale)
	b.kl.priorMean = params.GetOr(p, ParamKLPriorMean, b.kl.priorMean)
	b.kl.priorLogSigma = params.GetOr(p, ParamKLPriorLogSigma, b.kl.priorLogSigma)
	return b
}

// FromConfig sets the scalar hyperparameters from cfg, usually obtained from GaussianKL.Config.
func (b *GaussianKLBuilder) FromConfig(cfg Config) (*GaussianKLBuilder, error) {
	if err := cfg.checkKind(KindGaussianKL); err != nil {
		return nil, err
	}
	var err error
	if b.kl.scale, err = cfg.param(ConfigScale); err != nil {
		return nil, err
	}
	if b.kl.priorMean, err = cfg.param(ConfigPriorMean); err != nil {
		return nil, err
	}
	if b.kl.priorLogSigma, err = cfg.param(ConfigPriorLogSigma); err != nil {
		return nil, err
	}
	return b, nil
}

// Done returns the configured GaussianKL. It panics if mean and logSigma have different shapes.
func (b *GaussianKLBuilder) Done() *GaussianKL {
	if b.kl.mean == nil || b.kl.logSigma == nil {
		exceptions.Panicf("GaussianKL requires non-nil mean and logSigma")
	}
	tensors.AssertSameShape(b.kl.mean, b.kl.logSigma, "mean", "logSigma")
	kl := b.kl
	return &kl
}

// GaussianKL penalizes the divergence of a learned Gaussian from a prior Gaussian.
type GaussianKL struct {
	mean, logSigma           mat.Matrix
	priorMean, priorLogSigma float64
	scale                    float64
}

var _ Regularizer = (*GaussianKL)(nil)

// Penalty returns the scaled KL divergence: the element-wise divergence is averaged over the batch
// axis, then over the latent dimensions, and multiplied by the scale.
func (r *GaussianKL) Penalty() float64 {
	kl := GaussianKLDivergence(r.mean, r.logSigma, r.priorMean, r.priorLogSigma)
	perFeature := tensors.MeanOverBatch(kl)
	return r.scale * tensors.Sum(perFeature) / float64(len(perFeature))
}

// Apply implements Regularizer. It returns an error only if the borrowed mean and logSigma
// matrices were reshaped to different shapes after Done.
func (r *GaussianKL) Apply(loss float64) (float64, error) {
	var penalty float64
	exception := exceptions.Try(func() { penalty = r.Penalty() })
	if exception != nil {
		err, ok := exception.(error)
		if !ok {
			err = errors.Errorf("%v", exception)
		}
		return loss, errors.Wrapf(err, "failed to compute %s", r.Config())
	}
	return loss + penalty, nil
}

// Config implements Regularizer.
func (r *GaussianKL) Config() Config {
	return Config{
		Kind: KindGaussianKL,
		Params: map[string]float64{
			ConfigScale:         r.scale,
			ConfigPriorMean:     r.priorMean,
			ConfigPriorLogSigma: r.priorLogSigma,
		},
	}
}
