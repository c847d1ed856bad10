package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

const maxSheetName = 31

// WriteXLSX saves the report as a workbook: a summary sheet, one sheet per
// table section, and a sheet of model coefficients when models were fitted.
func (r *Report) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	used := map[string]bool{}
	summary := sheetName("Report", used)
	if _, err := f.NewSheet(summary); err != nil {
		return fmt.Errorf("create sheet %s: %w", summary, err)
	}
	meta := [][]any{
		{"Title", r.Title},
		{"Name", r.Name},
		{"ID", r.ID},
		{"Generated", r.Generated.Format("2006-01-02 15:04:05")},
	}
	keys := make([]string, 0, len(r.Sources))
	for k := range r.Sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		meta = append(meta, []any{"Source " + k, r.Sources[k]})
	}
	for _, n := range r.Notes {
		meta = append(meta, []any{"Note", n})
	}
	if err := writeRows(f, summary, meta); err != nil {
		return err
	}

	for _, s := range r.Sections {
		if s.Table == nil {
			continue
		}
		name := sheetName(s.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeTable(f, name, s.Table); err != nil {
			return err
		}
	}

	if len(r.Models) > 0 {
		name := sheetName("Models", used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		rows := [][]any{{"model", "term", "estimate", "std_error", "statistic", "p_value"}}
		for _, m := range r.Models {
			for _, t := range m.Terms {
				rows = append(rows, []any{m.Formula(), t.Name, t.Estimate, t.StdErr, t.Statistic, t.PValue})
			}
		}
		if err := writeRows(f, name, rows); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(summary); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t *table.Table) error {
	names := t.Names()
	rows := make([][]any, 0, t.Nrow()+1)
	header := make([]any, len(names))
	for j, n := range names {
		header[j] = n
	}
	rows = append(rows, header)
	for i := 0; i < t.Nrow(); i++ {
		row := make([]any, len(names))
		for j, n := range names {
			row[j] = cellValue(t.At(i, n))
		}
		rows = append(rows, row)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue maps a table value to a native workbook cell; nulls stay blank.
func cellValue(v table.Value) any {
	switch v.Kind() {
	case table.KindNull:
		return nil
	case table.KindInt:
		n, _ := v.Int()
		return n
	case table.KindFloat:
		x, _ := v.Float()
		return x
	case table.KindBool:
		b, _ := v.Bool()
		return b
	}
	return v.String()
}

// sheetName makes title a valid, unique worksheet name.
func sheetName(title string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = "Sheet"
	}
	base := truncate(clean, maxSheetName)
	name := base
	for n := 2; used[strings.ToLower(name)] || strings.EqualFold(name, "Sheet1"); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}
