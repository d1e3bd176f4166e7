package cli

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// columnGap separates table columns.
const columnGap = "  "

// Table renders rows as aligned text columns. When a width is set the last
// column wraps so that no line exceeds it.
type Table struct {
	headers []string
	rows    [][]string
	width   int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// SetWidth limits the rendered line width. Zero means unlimited.
func (t *Table) SetWidth(width int) {
	t.width = width
}

// AddRow appends a row, padding or truncating it to the header count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render formats the table.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	last := len(widths) - 1
	if t.width > 0 {
		used := 0
		for _, w := range widths[:last] {
			used += w + len(columnGap)
		}
		if avail := t.width - used; avail >= len(t.headers[last]) && avail < widths[last] {
			widths[last] = avail
		}
	}

	var b strings.Builder
	writeLine(&b, t.headers, widths)

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeLine(&b, sep, widths)

	for _, row := range t.rows {
		lines := wrapText(row[last], widths[last])
		for n, line := range lines {
			cells := make([]string, len(row))
			if n == 0 {
				copy(cells, row[:last])
			}
			cells[last] = line
			writeLine(&b, cells, widths)
		}
	}

	return b.String()
}

func writeLine(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(columnGap)
		}
		b.WriteString(cell)
		if i < len(cells)-1 && len(cell) < widths[i] {
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
	}
	b.WriteString("\n")
}

// wrapText breaks text at word boundaries into lines of at most width bytes.
// Words longer than width are split.
func wrapText(text string, width int) []string {
	if width <= 0 || len(text) <= width {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, word := range words {
		for len(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// terminalWidth returns the width of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd()) // #nosec G115 - file descriptors fit in int
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
