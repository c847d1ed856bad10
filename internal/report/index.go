package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

// IndexFile is the name of the generated index page.
const IndexFile = "index.md"

// Entry is one rendered report listed on the index page.
type Entry struct {
	Name      string
	Title     string
	ID        string
	File      string // path relative to the index
	Workbook  string // optional xlsx, relative to the index
	Generated time.Time
}

// WriteFiles renders the report into dir as <name>.md and, when xlsx is
// set, <name>.xlsx. It returns the index entry for the written files.
func (r *Report) WriteFiles(dir string, xlsx bool) (Entry, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return Entry{}, fmt.Errorf("create output dir: %w", err)
	}
	e := Entry{Name: r.Name, Title: r.Title, ID: r.ID, File: r.Name + ".md", Generated: r.Generated}
	if err := utils.SafeWriteFile(filepath.Join(dir, e.File), []byte(r.Markdown())); err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", e.File, err)
	}
	if xlsx {
		e.Workbook = r.Name + ".xlsx"
		if err := r.WriteXLSX(filepath.Join(dir, e.Workbook)); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

// Index renders a Markdown page listing entries by name.
func Index(entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var b strings.Builder
	b.WriteString("[INDEX]\n")
	b.WriteString(fmt.Sprintf("Reports: %d\n\n", len(sorted)))
	for _, e := range sorted {
		title := e.Title
		if title == "" {
			title = e.Name
		}
		b.WriteString(fmt.Sprintf("- [%s](%s)", title, e.File))
		if e.Workbook != "" {
			b.WriteString(fmt.Sprintf(" ([xlsx](%s))", e.Workbook))
		}
		if !e.Generated.IsZero() {
			b.WriteString(" generated " + e.Generated.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	if len(sorted) == 0 {
		b.WriteString("(no reports yet)\n")
	}
	return b.String()
}

// WriteIndex scans dir for rendered reports and rewrites its index page.
func WriteIndex(dir string) ([]Entry, error) {
	entries, err := ScanIndex(dir)
	if err != nil {
		return nil, err
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, IndexFile), []byte(Index(entries))); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	return entries, nil
}

// ScanIndex reads the [REPORT] header of every Markdown report in dir.
// Files without that header are skipped.
func ScanIndex(dir string) ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, path := range matches {
		if filepath.Base(path) == IndexFile {
			continue
		}
		e, ok, err := readHeader(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		e.File = filepath.Base(path)
		wb := strings.TrimSuffix(e.File, ".md") + ".xlsx"
		if _, err := os.Stat(filepath.Join(dir, wb)); err == nil {
			e.Workbook = wb
		}
		out = append(out, e)
	}
	return out, nil
}

func readHeader(path string) (Entry, bool, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Entry{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	sc := bufio.NewScanner(fh)
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "[REPORT]" {
		return Entry{}, false, sc.Err()
	}
	var e Entry
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch k {
		case "Title":
			e.Title = v
		case "Name":
			e.Name = v
		case "ID":
			e.ID = v
		case "Generated":
			e.Generated, _ = time.Parse(time.RFC3339, v)
		}
	}
	if err := sc.Err(); err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	if e.Name == "" {
		e.Name = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	return e, true, nil
}
