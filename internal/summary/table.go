package summary

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jonathan/askdb/internal/types"
)

// MaxPromptRows caps how many result rows are rendered into the summary prompt
const MaxPromptRows = 50

// WriteTable renders result as an ASCII table to w. maxRows <= 0 renders every row.
func WriteTable(w io.Writer, result *types.ResultSet, maxRows int) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(true)
	if result == nil {
		table.Render()
		return
	}
	table.SetHeader(result.Columns)

	rows := result.StringRows()
	truncated := 0
	if maxRows > 0 && len(rows) > maxRows {
		truncated = len(rows) - maxRows
		rows = rows[:maxRows]
	}
	table.AppendBulk(rows)
	if truncated > 0 {
		table.SetCaption(true, fmt.Sprintf("%d more rows not shown", truncated))
	}
	table.Render()
}

// RenderTable returns the prompt rendition of result
func RenderTable(result *types.ResultSet) string {
	var sb strings.Builder
	WriteTable(&sb, result, MaxPromptRows)
	return strings.TrimRight(sb.String(), "\n")
}
