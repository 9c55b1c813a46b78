package extractor

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const missingCell = "NaN"

// extractXLSX renders the first sheet as an aligned text table. The first row
// is the header; each data row is prefixed with its zero-based index.
func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("xlsx: read sheet %q: %w", sheets[0], err)
	}
	return renderTable(rows), nil
}

func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	header, body := rows[0], rows[1:]
	cols := len(header)
	for _, r := range body {
		if len(r) > cols {
			cols = len(r)
		}
	}

	cell := func(r []string, i int) string {
		if i < len(r) && strings.TrimSpace(r[i]) != "" {
			return r[i]
		}
		return missingCell
	}
	headerCell := func(i int) string {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			return header[i]
		}
		return "Unnamed: " + strconv.Itoa(i)
	}

	widths := make([]int, cols)
	for i := 0; i < cols; i++ {
		widths[i] = utf8.RuneCountInString(headerCell(i))
		for _, r := range body {
			if w := utf8.RuneCountInString(cell(r, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	indexWidth := len(strconv.Itoa(max(len(body)-1, 0)))

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indexWidth))
	for i := 0; i < cols; i++ {
		b.WriteString("  ")
		b.WriteString(padLeft(headerCell(i), widths[i]))
	}
	for n, r := range body {
		b.WriteString("\n")
		idx := strconv.Itoa(n)
		b.WriteString(idx + strings.Repeat(" ", indexWidth-len(idx)))
		for i := 0; i < cols; i++ {
			b.WriteString("  ")
			b.WriteString(padLeft(cell(r, i), widths[i]))
		}
	}
	return b.String()
}

func padLeft(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
