// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package regularizers

import "github.com/gomlx/penalties/pkg/ml/params"

const (
	// ParamKLScale is the hyperparameter for the multiplier of the GaussianKL penalty.
	ParamKLScale = "kl_scale"

	// ParamKLPriorMean is the hyperparameter for the mean of the GaussianKL prior.
	ParamKLPriorMean = "kl_prior_mean"

	// ParamKLPriorLogSigma is the hyperparameter for the log-sigma of the GaussianKL prior.
	ParamKLPriorLogSigma = "kl_prior_logsigma"

	// ParamConstantCost is the hyperparameter for the cost added by the Constant penalty.
	ParamConstantCost = "constant_cost"

	// ParamCorrentropyScale is the hyperparameter for the multiplier of the correntropy penalties.
	ParamCorrentropyScale = "correntropy_scale"

	// ParamCorrentropySigma is the hyperparameter for the kernel bandwidth of the correntropy penalties.
	ParamCorrentropySigma = "correntropy_sigma"
)

// SetDefaultParams sets the default values of all the regularizer hyperparameters in p, so they can
// later be overwritten by the user (see commandline.ParseSettings).
func SetDefaultParams(p *params.Params) {
	p.SetParam(ParamKLScale, 1.0)
	p.SetParam(ParamKLPriorMean, DefaultPriorMean)
	p.SetParam(ParamKLPriorLogSigma, DefaultPriorLogSigma)
	p.SetParam(ParamConstantCost, 0.0)
	p.SetParam(ParamCorrentropyScale, DefaultCorrentropyScale)
	p.SetParam(ParamCorrentropySigma, DefaultCorrentropySigma)
}
