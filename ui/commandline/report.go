// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience tools to configure and report regularizers on the
// command line.
package commandline

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/penalties/pkg/ml/regularizers"
)

// StepTerms holds the loss and the contribution of each regularizer at one training step.
type StepTerms struct {
	Step  int
	Loss  float64
	Terms []regularizers.Term
}

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	tableBorderColor  = "#705090"
)

// ConfigsTable returns a table listing the configuration of each regularizer.
func ConfigsTable(configs []regularizers.Config) string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return normalStyle
		}).
		Headers("#", "Regularizer")
	for ii, cfg := range configs {
		table.Row(fmt.Sprintf("%d", ii), cfg.String())
	}
	return table.String()
}
