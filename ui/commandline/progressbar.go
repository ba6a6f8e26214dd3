// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// RefreshPeriod is the minimum time between terminal updates of the stats table.
var RefreshPeriod = time.Millisecond * 200

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBar displays the progress of a loop applying regularizers, along with a small table
// with the latest loss and per-regularizer contributions.
type ProgressBar struct {
	numSteps   int
	bar        *progressbar.ProgressBar
	termenv    *termenv.Output
	statsStyle lipgloss.Style
	statsTable *lgtable.Table

	lastUpdate     time.Time
	lastStep       int
	numStatsLines  int
	isFirstOutput  bool
	startTime      time.Time
	pendingAmount  int
	latest         StepTerms
	hasLatestTerms bool
}

// NewProgressBar creates a progress bar for numSteps steps, writing to w (os.Stdout if nil).
func NewProgressBar(numSteps int, w io.Writer) *ProgressBar {
	if w == nil {
		w = os.Stdout
	}
	pBar := &ProgressBar{
		numSteps:      numSteps,
		termenv:       termenv.NewOutput(w),
		statsStyle:    lipgloss.NewStyle().PaddingLeft(8),
		isFirstOutput: true,
		startTime:     time.Now(),
	}
	pBar.bar = progressbar.NewOptions(numSteps,
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(w),
	)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	return pBar
}

// Update reports that step finished with the given terms. The display is refreshed at most every
// RefreshPeriod.
func (pBar *ProgressBar) Update(step StepTerms) {
	pBar.pendingAmount += step.Step + 1 - pBar.lastStep
	pBar.lastStep = step.Step + 1
	pBar.latest = step
	pBar.hasLatestTerms = true
	if time.Since(pBar.lastUpdate) < RefreshPeriod && pBar.lastStep < pBar.numSteps {
		return
	}
	pBar.flush()
}

func (pBar *ProgressBar) flush() {
	if pBar.pendingAmount <= 0 && !pBar.hasLatestTerms {
		return
	}
	pBar.lastUpdate = time.Now()
	pBar.statsTable.Data(lgtable.NewStringData())
	pBar.statsTable.Row("Step", fmt.Sprintf("%s of %s",
		humanize.Comma(int64(pBar.latest.Step)), humanize.Comma(int64(pBar.numSteps))))
	pBar.statsTable.Row("Elapsed", humanize.RelTime(pBar.startTime, time.Now(), "", ""))
	pBar.statsTable.Row("Loss", fmt.Sprintf("%.6g", pBar.latest.Loss))
	for _, term := range pBar.latest.Terms {
		pBar.statsTable.Row(string(term.Config.Kind), fmt.Sprintf("%.6g", term.Value))
	}

	pBar.termenv.HideCursor()
	if !pBar.isFirstOutput {
		pBar.termenv.CursorPrevLine(pBar.numStatsLines)
	}
	pBar.isFirstOutput = false
	rendered := pBar.statsStyle.Render(pBar.statsTable.String())
	_, _ = fmt.Fprintln(pBar.termenv, rendered)
	_ = pBar.bar.Add(pBar.pendingAmount)
	_, _ = fmt.Fprintln(pBar.termenv)
	pBar.termenv.ShowCursor()
	// Table lines, plus the progress bar line and the empty line after it.
	pBar.numStatsLines = lipgloss.Height(rendered) + 2
	pBar.pendingAmount = 0
}

// Done flushes the last update and finishes the progress bar.
func (pBar *ProgressBar) Done() {
	pBar.flush()
	_ = pBar.bar.Finish()
	pBar.termenv.ShowCursor()
}
