// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"math/rand/v2"

	"github.com/gomlx/penalties/pkg/core/tensors"
	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/gomlx/penalties/ui/commandline"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// Scope names used for the hyperparameters of each simulated layer.
const (
	EncoderScope = "encoder"
	DecoderScope = "decoder"
)

// DemoConfig holds the shape and length of a simulated training run.
type DemoConfig struct {
	Steps, BatchSize, LatentDim, HiddenDim int
	Seed                                   uint64
	Progress                               io.Writer // If nil, no progress bar is displayed.
}

// simulatedLayer plays the role of a host layer: its output is overwritten at every step by the
// simulated forward pass.
type simulatedLayer struct {
	output *mat.Dense
	ready  bool
}

func (l *simulatedLayer) TrainingOutput() (mat.Matrix, error) {
	if !l.ready {
		return nil, errors.New("training forward pass not run yet")
	}
	return l.output, nil
}

// simulation holds the tensors owned by the "host" and updated in place at every step.
type simulation struct {
	rng               *rand.Rand
	mean, logSigma    *mat.Dense
	hidden            *simulatedLayer
	weights           *mat.Dense
	reconstructionStd float64
}

func newSimulation(cfg DemoConfig) *simulation {
	return &simulation{
		rng:               rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
		mean:              tensors.Full(cfg.BatchSize, cfg.LatentDim, 0),
		logSigma:          tensors.Full(cfg.BatchSize, cfg.LatentDim, 0),
		hidden:            &simulatedLayer{output: tensors.Full(cfg.BatchSize, cfg.HiddenDim, 0)},
		weights:           tensors.Full(cfg.HiddenDim, cfg.LatentDim, 0),
		reconstructionStd: 0.1,
	}
}

// forward fills the host tensors with values that drift towards the prior as "training" progresses,
// and returns the reconstruction loss of the step.
func (s *simulation) forward(step, numSteps int) float64 {
	progress := float64(step+1) / float64(numSteps)
	drift := 1 - progress
	fill := func(m *mat.Dense, center, spread float64) {
		rows, cols := m.Dims()
		for row := range rows {
			for col := range cols {
				m.Set(row, col, center+spread*s.rng.NormFloat64())
			}
		}
	}
	fill(s.mean, drift, 0.5*drift+0.05)
	fill(s.logSigma, -drift, 0.1)
	fill(s.hidden.output, 0, 0.5)
	s.hidden.ready = true
	fill(s.weights, 0, 0.3*drift+0.01)
	return 1 + drift + s.reconstructionStd*s.rng.NormFloat64()
}

// buildRegularizers creates the four penalties reading their hyperparameters from p, and binds them
// to the simulation tensors.
func buildRegularizers(p *params.Params, sim *simulation) regularizers.Set {
	return regularizers.Set{
		regularizers.NewGaussianKL(sim.mean, sim.logSigma).FromParams(p.In(EncoderScope)).Done(),
		regularizers.ConstantFromParams(p),
		regularizers.ActivityCorrentropyFromParams(p.In(EncoderScope)).Bind(sim.hidden),
		regularizers.WeightCorrentropyFromParams(p.In(DecoderScope)).BindMatrix(sim.weights),
	}
}

// RunDemo simulates cfg.Steps training steps, adding the regularizers configured in p to a
// synthetic reconstruction loss, and returns the breakdown of every step.
func RunDemo(p *params.Params, cfg DemoConfig) ([]commandline.StepTerms, regularizers.Set, error) {
	if cfg.Steps <= 0 || cfg.BatchSize <= 0 || cfg.LatentDim <= 0 || cfg.HiddenDim <= 0 {
		return nil, nil, errors.Errorf("invalid demo configuration %+v: all sizes must be positive", cfg)
	}
	sim := newSimulation(cfg)
	set := buildRegularizers(p, sim)
	for ii, regCfg := range set.Configs() {
		klog.V(1).Infof("regularizer #%d: %s", ii, regCfg)
	}

	var pBar *commandline.ProgressBar
	if cfg.Progress != nil {
		pBar = commandline.NewProgressBar(cfg.Steps, cfg.Progress)
	}
	results := make([]commandline.StepTerms, 0, cfg.Steps)
	for step := range cfg.Steps {
		loss := sim.forward(step, cfg.Steps)
		terms, err := set.Breakdown()
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "step %d", step)
		}
		for _, term := range terms {
			loss += term.Value
		}
		stepTerms := commandline.StepTerms{Step: step, Loss: loss, Terms: terms}
		results = append(results, stepTerms)
		if pBar != nil {
			pBar.Update(stepTerms)
		}
	}
	if pBar != nil {
		pBar.Done()
	}
	return results, set, nil
}
