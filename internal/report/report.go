package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/tidyreport-cli/internal/analysis"
	"github.com/KaramelBytes/tidyreport-cli/internal/model"
	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Report is the rendered outcome of one pipeline run.
type Report struct {
	ID        string
	Name      string
	Title     string
	Generated time.Time
	Sources   map[string]string
	Sections  []Section
	Models    []*model.Result
	Profiles  []*analysis.Profile
	Notes     []string
}

// Section is one titled table of results.
type Section struct {
	Title string
	Note  string
	Table *table.Table
	// TitleCase lists string columns rendered in title case, e.g. borough names.
	TitleCase []string
}

// New starts an empty report stamped with a fresh run ID.
func New(name, title string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Name:      name,
		Title:     title,
		Generated: time.Now().UTC(),
		Sources:   map[string]string{},
	}
}

func (r *Report) AddSection(title, note string, t *table.Table, titleCase ...string) {
	r.Sections = append(r.Sections, Section{Title: title, Note: note, Table: t, TitleCase: titleCase})
}

func (r *Report) AddModel(m *model.Result) { r.Models = append(r.Models, m) }

func (r *Report) AddProfile(p *analysis.Profile) { r.Profiles = append(r.Profiles, p) }

// Notef appends a free-form note, e.g. a data-quality finding.
func (r *Report) Notef(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Section returns the first section with the given title.
func (r *Report) Section(title string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Markdown renders the report with bracketed section headings.
func (r *Report) Markdown() string {
	f := newFormatter()
	var b strings.Builder
	b.WriteString("[REPORT]\n")
	b.WriteString(fmt.Sprintf("Title: %s\n", r.Title))
	b.WriteString(fmt.Sprintf("Name: %s\n", r.Name))
	b.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf("Generated: %s\n", r.Generated.Format(time.RFC3339)))

	if len(r.Sources) > 0 {
		b.WriteString("\n[SOURCES]\n")
		keys := make([]string, 0, len(r.Sources))
		for k := range r.Sources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("- %s: %s\n", k, r.Sources[k]))
		}
	}

	for _, s := range r.Sections {
		b.WriteString(fmt.Sprintf("\n[SECTION] %s\n", s.Title))
		if s.Note != "" {
			b.WriteString(s.Note + "\n")
		}
		if s.Table != nil {
			b.WriteString("\n")
			f.table(&b, s)
		}
	}

	for _, m := range r.Models {
		b.WriteString(fmt.Sprintf("\n[MODEL: %s] %s\n", m.Family, m.Formula()))
		f.model(&b, m)
	}

	for _, p := range r.Profiles {
		b.WriteString("\n[DATA QUALITY]\n")
		b.WriteString(p.Markdown())
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- " + n + "\n")
		}
	}
	return b.String()
}

// formatter renders cells with English digit grouping.
type formatter struct {
	p     *message.Printer
	title cases.Caser
}

func newFormatter() *formatter {
	return &formatter{p: message.NewPrinter(language.English), title: cases.Title(language.English)}
}

func (f *formatter) cell(v table.Value, titleCase bool) string {
	switch v.Kind() {
	case table.KindNull:
		return "NA"
	case table.KindInt:
		n, _ := v.Int()
		// Four-digit values stay ungrouped so years read as 2021.
		if n > -10000 && n < 10000 {
			return strconv.FormatInt(n, 10)
		}
		return f.p.Sprintf("%d", n)
	case table.KindFloat:
		x, _ := v.Float()
		return f.float(x)
	case table.KindString:
		s := v.Str()
		if titleCase {
			s = f.title.String(s)
		}
		return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
	}
	return v.String()
}

func (f *formatter) float(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NA"
	case math.Abs(x) >= 100:
		return f.p.Sprintf("%.1f", x)
	case x == 0:
		return "0"
	}
	return f.p.Sprintf("%.4g", x)
}

func (f *formatter) table(b *strings.Builder, s Section) {
	t := s.Table
	names := t.Names()
	tc := map[string]bool{}
	for _, n := range s.TitleCase {
		tc[n] = true
	}
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(names)) + "\n")
	for i := 0; i < t.Nrow(); i++ {
		cells := make([]string, len(names))
		for j, n := range names {
			cells[j] = f.cell(t.At(i, n), tc[n])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if t.Nrow() == 0 {
		b.WriteString("(no rows)\n")
	}
}

func (f *formatter) model(b *strings.Builder, m *model.Result) {
	b.WriteString(f.p.Sprintf("n=%d, dropped=%d, residual df=%d\n", m.N, m.Dropped, m.DFResidual))
	stat := "t"
	if m.Family == model.Binomial {
		stat = "z"
	}
	b.WriteString(fmt.Sprintf("| term | estimate | std. error | %s | p |\n", stat))
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, t := range m.Terms {
		b.WriteString(fmt.Sprintf("| %s | %.4g | %.4g | %.3f | %s |\n", t.Name, t.Estimate, t.StdErr, t.Statistic, pValue(t.PValue)))
	}
	switch m.Family {
	case model.Gaussian:
		b.WriteString(fmt.Sprintf("R²: %s, residual std. error: %.4g, AIC: %.2f\n", f.float(m.RSquared), m.Sigma, m.AIC))
	case model.Binomial:
		b.WriteString(fmt.Sprintf("deviance: %.2f (null %.2f), AIC: %.2f, iterations: %d\n", m.Deviance, m.NullDeviance, m.AIC, m.Iterations))
	}
}

func pValue(p float64) string {
	if p < 1e-4 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}
