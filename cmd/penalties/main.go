// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// penalties simulates a short VAE-like training run and reports the contribution of each
// regularizer to the loss.
//
// Hyperparameters are set with -set, e.g.:
//
//	penalties -steps=500 -set="kl_scale=0.5;/decoder/correntropy_sigma=4;constant_cost=0.1"
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/gomlx/penalties/ui/commandline"
	"github.com/gomlx/penalties/ui/plots"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagSteps     = flag.Int("steps", 200, "Number of simulated training steps.")
	flagBatchSize = flag.Int("batch", 32, "Batch size of the simulated tensors.")
	flagLatentDim = flag.Int("latent", 8, "Dimension of the latent space penalized by the KL divergence.")
	flagHiddenDim = flag.Int("hidden", 16, "Number of features of the layer penalized by activity correntropy.")
	flagSeed      = flag.Uint64("seed", 42, "Seed for the simulated values.")
	flagReport    = flag.Int("report", 10, "Number of steps, evenly spaced, to include in the final table.")
	flagProgress  = flag.Bool("progress", true, "Display a progress bar.")
	flagPlot      = flag.String("plot", "", "If set, save a plot of the loss and penalties per step to this file (.png, .svg or .pdf).")
	flagPoints    = flag.String("points", "", "If set, save the loss and penalties per step as JSON to this file.")
)

func main() {
	p := params.New()
	regularizers.SetDefaultParams(p)
	settings := commandline.CreateSettingsFlag(p, "")
	klog.InitFlags(nil)
	flag.Parse()
	paramsSet := must.M1(commandline.ParseSettings(p, *settings))
	if len(paramsSet) > 0 {
		fmt.Printf("Modified hyperparameters:\n%s\n", commandline.SprintModifiedSettings(p, paramsSet))
	}

	err := exceptions.TryCatch[error](func() {
		cfg := DemoConfig{
			Steps:     *flagSteps,
			BatchSize: *flagBatchSize,
			LatentDim: *flagLatentDim,
			HiddenDim: *flagHiddenDim,
			Seed:      *flagSeed,
		}
		if *flagProgress {
			cfg.Progress = os.Stdout
		}
		results, set, err := RunDemo(p, cfg)
		must.M(err)
		fmt.Println(commandline.ConfigsTable(set.Configs()))
		fmt.Println(plots.NewPoints(toPoints(sampleSteps(results, *flagReport))).TableForMetrics())
		if *flagPoints != "" {
			must.M(plots.SavePoints(*flagPoints, toPoints(results)))
			klog.Infof("Saved points to %q", *flagPoints)
		}
		if *flagPlot != "" {
			must.M(plots.NewPoints(toPoints(results)).SavePlot(*flagPlot, "Loss and penalties"))
			klog.Infof("Saved plot to %q", *flagPlot)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// sampleSteps returns up to n evenly spaced steps, always including the last one.
func sampleSteps(results []commandline.StepTerms, n int) []commandline.StepTerms {
	if n <= 0 || len(results) <= n {
		return results
	}
	sampled := make([]commandline.StepTerms, 0, n)
	for ii := range n {
		idx := (ii + 1) * len(results) / n
		sampled = append(sampled, results[idx-1])
	}
	return sampled
}

func toPoints(results []commandline.StepTerms) []plots.Point {
	var points []plots.Point
	for _, step := range results {
		points = append(points, plots.FromTerms(step.Step, step.Loss, step.Terms)...)
	}
	return points
}
