package parser

import "strings"

// pipeTable renders rows as a Markdown pipe table. The first row is the
// header. Rows are padded to the widest row.
func pipeTable(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var buf strings.Builder
	line := func(cells []string) {
		buf.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = tableCell(cells[i])
			}
			buf.WriteString(" " + cell + " |")
		}
		buf.WriteString("\n")
	}

	line(rows[0])
	buf.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		line(r)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

func tableCell(s string) string {
	return strings.Join(strings.Fields(cellReplacer.Replace(s)), " ")
}
