// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package plots collects per-step loss and penalty values and renders them as tables or images.
package plots

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sort"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/penalties/pkg/core/tensors"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

// Metric types used to group points.
const (
	MetricTypeLoss    = "loss"
	MetricTypePenalty = "penalty"
)

// LossMetricName is the name of the metric holding the total loss.
const LossMetricName = "Loss"

// Point represents one value of a metric at a step. It is used to save/load plots.
type Point struct {
	// MetricName of this point.
	MetricName string

	// MetricType is either MetricTypeLoss or MetricTypePenalty.
	MetricType string

	// Step is the training step this metric was measured.
	// Usually, this is an int value, stored as a float64.
	Step float64

	// Value is the metric captured.
	Value float64
}

// FromTerms converts the total loss and the regularizer contributions of one step to points.
// Penalties are named by their regularizer kind; repeated kinds get a "#n" suffix.
func FromTerms(step int, loss float64, terms []regularizers.Term) []Point {
	points := make([]Point, 0, len(terms)+1)
	points = append(points, Point{MetricName: LossMetricName, MetricType: MetricTypeLoss, Step: float64(step), Value: loss})
	seen := make(map[regularizers.Kind]int, len(terms))
	for _, term := range terms {
		name := string(term.Config.Kind)
		if count := seen[term.Config.Kind]; count > 0 {
			name = fmt.Sprintf("%s#%d", name, count)
		}
		seen[term.Config.Kind]++
		points = append(points, Point{MetricName: name, MetricType: MetricTypePenalty, Step: float64(step), Value: term.Value})
	}
	return points
}

// SavePoints writes the points as a stream of JSON objects to filePath, overwriting it.
func SavePoints(filePath string, points []Point) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create plots file %q", filePath)
	}
	enc := json.NewEncoder(f)
	for _, point := range points {
		if !tensors.IsFinite(point.Value) {
			// JSON can't encode NaN or Inf.
			klog.Warningf("skipping non-finite point %+v", point)
			continue
		}
		if err = enc.Encode(point); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "failed to encode point %v", point)
		}
	}
	return errors.Wrapf(f.Close(), "failed to close plots file %q", filePath)
}

// LoadPoints parses all plot points saved in the given file.
func LoadPoints(filePath string) ([]Point, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plots file %q", filePath)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	var points []Point
	for {
		var point Point
		err := dec.Decode(&point)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error while decoding plots file %q", filePath)
		}
		points = append(points, point)
	}
	return points, nil
}

// Points is a collection of Point objects organized by their Step value.
// It's a `map[float64][]Point` with several utility methods.
type Points map[float64][]Point

// NewPoints create a Points object from a collection of individual `Point`.
func NewPoints(rawPoints []Point) (points Points) {
	points = make(map[float64][]Point)
	for _, p := range rawPoints {
		points[p.Step] = append(points[p.Step], p)
	}
	return points
}

// Map executes the given function on all individual points, in `Step` order.
func (points Points) Map(fn func(p *Point)) {
	for _, step := range slices.Sorted(maps.Keys(points)) {
		stepPoints := points[step]
		for ii := range stepPoints {
			fn(&stepPoints[ii])
		}
	}
}

// Extract converts the [Points] structure back to a list of individual points.
// The output is sorted by [Point.Step].
func (points Points) Extract() (rawPoints []Point) {
	points.Map(func(p *Point) {
		rawPoints = append(rawPoints, *p)
	})
	return
}

// MetricsNames return the list of metrics names in the whole collection, sorted alphabetically by their type and
// then by their name.
func (points Points) MetricsNames() []string {
	nameToType := make(map[string]string)
	points.Map(func(p *Point) {
		nameToType[p.MetricName] = p.MetricType
	})
	names := slices.Sorted(maps.Keys(nameToType))
	sort.SliceStable(names, func(i, j int) bool {
		return nameToType[names[i]] < nameToType[names[j]]
	})
	return names
}

// TableForMetrics returns a table with the first column being the `Step` followed
// by the columns given by the `metrics` names.
// If `metrics` is empty, it will include all metrics in the table.
func (points Points) TableForMetrics(metrics ...string) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	stepStyle := lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return stepStyle
			}
			return cellStyle
		})

	// Headers from metric names.
	if len(metrics) == 0 {
		metrics = points.MetricsNames()
	}
	headers := []string{"Step"}
	headers = append(headers, metrics...)
	table.Headers(headers...)

	for _, step := range slices.Sorted(maps.Keys(points)) {
		row := make([]string, 1+len(metrics))
		row[0] = humanize.Comma(int64(step))
		for _, pt := range points[step] {
			idx := slices.Index(metrics, pt.MetricName)
			if idx != -1 {
				row[idx+1] = fmt.Sprintf("%.6g", pt.Value)
			}
		}
		table.Row(row...)
	}
	return table.String()
}

func (points Points) String() string {
	return points.TableForMetrics()
}

// SavePlot renders one line per metric (x is the step) and saves it to filePath. The image format is
// taken from the file extension (e.g. ".png", ".svg", ".pdf").
//
// Non-finite values are skipped.
func (points Points) SavePlot(filePath, title string, metrics ...string) error {
	if len(metrics) == 0 {
		metrics = points.MetricsNames()
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Value"
	p.Legend.Top = true

	series := make(map[string]plotter.XYs, len(metrics))
	points.Map(func(pt *Point) {
		if !tensors.IsFinite(pt.Value) || !slices.Contains(metrics, pt.MetricName) {
			return
		}
		series[pt.MetricName] = append(series[pt.MetricName], plotter.XY{X: pt.Step, Y: pt.Value})
	})
	for ii, name := range metrics {
		xys := series[name]
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "failed to create line for metric %q", name)
		}
		line.Color = plotutil.Color(ii)
		line.Dashes = plotutil.Dashes(ii)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", filePath)
	}
	return nil
}
