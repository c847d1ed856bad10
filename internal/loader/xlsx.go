package loader

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// isWorkbook reports whether src names an .xlsx file, ignoring any query string.
func isWorkbook(src string) bool {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), ".xlsx")
}

// DecodeXLSX reads one worksheet whose first row is the header into a
// string table. An empty sheet name selects the first sheet. Cells matching
// nullMarkers become null, as do cells past the end of a short row.
func DecodeXLSX(source string, r io.Reader, sheet string, nullMarkers []string) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DecodeError{Source: source, Err: fmt.Errorf("workbook has no sheets")}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("sheet %q is empty", sheet)}
	}
	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, &DecodeError{Source: source, Err: fmt.Errorf("sheet %q row %d: %d cells, header has %d", sheet, i+2, len(row), len(header))}
		}
		// GetRows trims trailing empty cells
		rec := make([]string, len(header))
		copy(rec, row)
		records = append(records, rec)
	}
	markers := nullMarkers
	if !slices.Contains(markers, "") {
		markers = append(append([]string(nil), markers...), "")
	}
	t, err := table.FromStrings(header, records, markers)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return t, nil
}
