package command

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
)

// renderTable formats rows as an aligned table the way breakpoints and
// backtrace commands present tabular engine state, rather than hand
// column-padding with fmt.Sprintf.
func renderTable(header []string, rows [][]string) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header(header)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
	return buf.String()
}
