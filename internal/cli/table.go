package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	tablePadding = 2

	// maxCellWidth keeps long download URLs from wrapping every row.
	maxCellWidth = 96
)

// writeTable prints rows as space-aligned columns. Widths are measured in
// terminal cells so channel names with wide characters line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	cells := func(row []string) []string {
		out := make([]string, colCount)
		for i := range out {
			if i < len(row) {
				out[i] = runewidth.Truncate(stripANSI(row[i]), maxCellWidth, "…")
			}
		}
		return out
	}

	all := make([][]string, 0, len(rows)+1)
	if len(headers) > 0 {
		all = append(all, cells(headers))
	}
	for _, row := range rows {
		all = append(all, cells(row))
	}

	widths := make([]int, colCount)
	for _, row := range all {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	w := bufio.NewWriter(out)
	for _, row := range all {
		for i, cell := range row {
			if i == colCount-1 {
				w.WriteString(cell)
				break
			}
			w.WriteString(runewidth.FillRight(cell, widths[i]+tablePadding))
		}
		w.WriteString("\n")
	}
	return w.Flush()
}

// stripANSI removes CSI escape sequences.
func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		i += 2
		for i < len(value) && (value[i] < 0x40 || value[i] > 0x7e) {
			i++
		}
	}
	return b.String()
}
