// Package report renders pipeline tables for the terminal and draws the
// dispersion figures.
package report

import (
	"math"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options controls table rendering.
type Options struct {
	Colors bool
	Title  string
}

// RenderRows renders headers and rows as a rounded table. Columns whose cells
// are all numeric are right aligned.
func RenderRows(headers []string, rows [][]string, opts Options) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if opts.Colors {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
		tw.Style().Color.Footer = text.Colors{text.Faint}
	}
	if opts.Title != "" {
		tw.SetTitle(opts.Title)
	}

	header := make(table.Row, columns)
	for i := range header {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	numeric := make([]bool, columns)
	for i := range numeric {
		numeric[i] = len(rows) > 0
	}
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			r[i] = cell
			if numeric[i] && !isNumeric(cell) {
				numeric[i] = false
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if numeric[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RenderTable renders a dataset table.
func RenderTable(tbl *dataset.Table, opts Options) string {
	return RenderRows(tbl.Header, tbl.Rows, opts)
}

func isNumeric(s string) bool {
	if s == "NaN" || s == "< 0.0001" {
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(v, 0)
}
