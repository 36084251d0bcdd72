package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	chartTopFiles = 30
	xAxisRotate   = 45
	pieRadius     = "60%"
)

// Report aggregates the results of one batch run.
type Report struct {
	Files    []FileResult  `json:"files"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	DryRun   bool          `json:"dry_run"`
}

// Totals counts outcomes and changes across files.
type Totals struct {
	Changed   int    `json:"changed"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Changes   int    `json:"changes"`
	BytesIn   uint64 `json:"bytes_in"`
	BytesOut  uint64 `json:"bytes_out"`
}

// Totals sums the per-file results. Changes count only applied files.
func (r *Report) Totals() Totals {
	var totals Totals

	for _, file := range r.Files {
		switch file.Outcome {
		case OutcomeChanged:
			totals.Changed++
			totals.Changes += len(file.Changes)
			totals.BytesIn += uint64(file.SizeIn)
			totals.BytesOut += uint64(file.SizeOut)
		case OutcomeUnchanged:
			totals.Unchanged++
		case OutcomeSkipped:
			totals.Skipped++
		case OutcomeFailed:
			totals.Failed++
		}
	}

	return totals
}

// Failed returns the results that failed.
func (r *Report) Failed() []FileResult {
	var failed []FileResult

	for _, file := range r.Files {
		if file.Outcome == OutcomeFailed {
			failed = append(failed, file)
		}
	}

	return failed
}

// WriteTable writes a plain-text summary table of changed, skipped and
// failed files followed by totals.
func (r *Report) WriteTable(w io.Writer) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"File", "Outcome", "Changes", "Size", "Detail"})

	for _, file := range r.Files {
		if file.Outcome == OutcomeUnchanged {
			continue
		}

		size := humanize.IBytes(uint64(file.SizeIn))
		if file.Outcome == OutcomeChanged {
			size = fmt.Sprintf("%s → %s", humanize.IBytes(uint64(file.SizeIn)), humanize.IBytes(uint64(file.SizeOut)))
		}

		tbl.AppendRow(table.Row{file.Path, string(file.Outcome), len(file.Changes), size, file.ErrorText})
	}

	totals := r.Totals()
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d files", len(r.Files)),
		fmt.Sprintf("%d changed, %d failed", totals.Changed, totals.Failed),
		totals.Changes,
		humanize.IBytes(totals.BytesOut),
		r.Duration.Round(time.Millisecond).String(),
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

// WriteJSON writes the report with totals as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(struct {
		*Report

		Totals Totals `json:"totals"`
	}{Report: r, Totals: r.Totals()})
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// WriteHTML renders an HTML page with a bar chart of changes per file and
// a pie chart of outcomes.
func (r *Report) WriteHTML(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "pyrefactor batch report"

	page.AddCharts(r.changesChart(), r.outcomeChart())

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return nil
}

func (r *Report) changesChart() *charts.Bar {
	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Changes per file",
			Subtitle: fmt.Sprintf("Top %d changed files", chartTopFiles),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithGridOpts(opts.Grid{Bottom: "25%", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
	)

	var (
		labels []string
		values []opts.BarData
	)

	for _, file := range r.Files {
		if file.Outcome != OutcomeChanged {
			continue
		}

		if len(labels) == chartTopFiles {
			break
		}

		labels = append(labels, filepath.Base(file.Path))
		values = append(values, opts.BarData{Name: file.Path, Value: len(file.Changes)})
	}

	bar.SetXAxis(labels).AddSeries("Changes", values)

	return bar
}

func (r *Report) outcomeChart() *charts.Pie {
	totals := r.Totals()
	pie := charts.NewPie()

	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Outcomes"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	pie.AddSeries("Outcome", []opts.PieData{
		{Name: string(OutcomeChanged), Value: totals.Changed},
		{Name: string(OutcomeUnchanged), Value: totals.Unchanged},
		{Name: string(OutcomeSkipped), Value: totals.Skipped},
		{Name: string(OutcomeFailed), Value: totals.Failed},
	}).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
	)

	return pie
}
