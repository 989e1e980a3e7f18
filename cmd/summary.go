package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/cwbudde/filterdemo/internal/demo"
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true)
	badStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9"))
)

// renderSummary formats one line per strategy: where it was drawn, how long
// it took and whether it reproduced the CPU reference.
func renderSummary(res *demo.Result) string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if col == 4 && row >= 0 && row < len(res.Variants) && !res.Variants[row].Match {
				return badStyle
			}
			return cellStyle
		}).
		Headers("Strategy", "Region", "Time", "CRC-32", "Matches CPU", "Difference")

	for _, v := range res.Variants {
		table.Row(
			v.Label,
			v.Region.String(),
			fmt.Sprintf("%.3f ms", v.Report.Milliseconds()),
			fmt.Sprintf("%08x", v.Checksum),
			matchText(v.Match),
			v.Diff.String(),
		)
	}

	header := fmt.Sprintf("%s  %dx%d  filter=%s  backend=%s (%s)  %s",
		res.ImagePath, res.Width, res.Height, res.Filter, res.Backend, res.Device,
		humanize.Bytes(uint64(res.Width*res.Height*4)))
	out := header + "\n" + table.Render()
	if res.CompositePath != "" {
		out += "\nComposite written to " + res.CompositePath
	}
	return out
}

func matchText(ok bool) string {
	if ok {
		return "yes"
	}
	return "NO"
}
