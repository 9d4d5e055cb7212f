package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	// Headers returns the column headers for the table.
	Headers() []string
	// Rows returns the data rows for the table.
	Rows() [][]string
}

// Align is the alignment of one table column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// ColumnAligner is optionally implemented by a TableRenderer whose columns
// are not all left aligned, such as sizes in a long listing. Missing
// trailing entries default to AlignLeft.
type ColumnAligner interface {
	Alignments() []Align
}

// PrintTable writes data as a borderless table to w.
func PrintTable(w io.Writer, data TableRenderer) error {
	headers := data.Headers()

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	if a, ok := data.(ColumnAligner); ok {
		table.SetColumnAlignment(columnAlignment(a.Alignments(), len(headers)))
	} else {
		table.SetAlignment(tablewriter.ALIGN_LEFT)
	}

	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

func columnAlignment(aligns []Align, columns int) []int {
	out := make([]int, columns)
	for i := range out {
		out[i] = tablewriter.ALIGN_LEFT
		if i < len(aligns) && aligns[i] == AlignRight {
			out[i] = tablewriter.ALIGN_RIGHT
		}
	}
	return out
}
