package nypd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tidyreport-cli/internal/analysis"
	"github.com/KaramelBytes/tidyreport-cli/internal/model"
	"github.com/KaramelBytes/tidyreport-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

const (
	Name  = "nypd"
	title = "NYPD shooting incidents (historic)"

	SourceIncidents = "nypd_incidents"
	DefaultURL      = "https://data.cityofnewyork.us/api/views/833y-fsy8/rows.csv?accessType=DOWNLOAD"

	defaultTopN  = 10
	maxNotedKeys = 20
)

func init() {
	pipeline.Register(Name, func(o pipeline.Options) pipeline.Pipeline { return New(o) })
}

// Pipeline builds the NYPD shooting report.
type Pipeline struct {
	opt pipeline.Options
}

func New(opt pipeline.Options) *Pipeline {
	if opt.TopN <= 0 {
		opt.TopN = defaultTopN
	}
	return &Pipeline{opt: opt}
}

func (p *Pipeline) Name() string  { return Name }
func (p *Pipeline) Title() string { return title }

// Run fetches the incident file and builds the report. Fetch and parse failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	if p.opt.Loader == nil {
		return nil, fmt.Errorf("%s: no loader configured", Name)
	}
	src := p.opt.Source(SourceIncidents, DefaultURL)
	p.opt.Log("fetching %s", src)
	raw, err := p.opt.Loader.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	incidents, err := Build(raw)
	if err != nil {
		return nil, err
	}
	p.opt.Log("decomposed %d incident rows", incidents.Nrow())

	rep := report.New(Name, title)
	rep.Sources["incidents"] = src
	if err := p.summarize(rep, incidents); err != nil {
		return nil, err
	}
	rep.AddProfile(analysis.ProfileTable("incident table", incidents, analysis.DefaultOptions()))
	return rep, nil
}

// Build projects and decomposes the raw incident table.
func Build(raw *table.Table) (*table.Table, error) {
	t, err := Project(raw)
	if err != nil {
		return nil, err
	}
	return Decompose(t)
}

func (p *Pipeline) summarize(rep *report.Report, t *table.Table) error {
	dups, err := DuplicateKeys(t)
	if err != nil {
		return err
	}
	if dups > 0 {
		rep.Notef("%d rows repeat an %s (one row per victim); counts below are per row", dups, IncidentKey)
		p.opt.Log("%d rows repeat an incident key", dups)
	}
	if missing := t.Filter(func(r table.Record) bool { return r.Get(OccurDate).IsNull() }).Nrow(); missing > 0 {
		rep.Notef("%d rows have no %s and are grouped under NA", missing, OccurDate)
	}
	bad, err := Unparsed(t)
	if err != nil {
		return err
	}
	if len(bad) > 0 {
		rep.Notef("%d unparseable %s/%s values were treated as missing (%s: %s)",
			len(bad), OccurDate, OccurTime, IncidentKey, strings.Join(unparsedKeys(bad, maxNotedKeys), ", "))
		for _, pe := range bad {
			p.opt.Log("%v", pe)
		}
	}

	byYearBoro, err := CountBy(t, IncYear, Boro)
	if err != nil {
		return err
	}
	rep.AddSection("Incidents by year and borough", "", byYearBoro, Boro)

	byYearRace, err := CountBy(t, IncYear, PerpRace)
	if err != nil {
		return err
	}
	rep.AddSection("Incidents by year and perpetrator race", "Missing perpetrator race is shown as NA.", byYearRace)

	byHour, err := CountBy(t, IncTime)
	if err != nil {
		return err
	}
	rep.AddSection("Incidents by hour of day", "", byHour)

	byMonth, err := CountBy(t, IncMonth, IncMonthName)
	if err != nil {
		return err
	}
	rep.AddSection("Incidents by month", "", byMonth)

	byWeekday, err := ByWeekday(t)
	if err != nil {
		return err
	}
	rep.AddSection("Incidents by weekday", "", byWeekday)

	murders, err := MurdersByBoro(t)
	if err != nil {
		return err
	}
	rep.AddSection("Murders by borough", "murder_pct is the share of incidents flagged as murder.", murders, Boro)

	locs, err := TopLocations(t, p.opt.TopN)
	if err != nil {
		return err
	}
	rep.AddSection(fmt.Sprintf("Top %d locations", p.opt.TopN), "", locs)

	m, err := model.Fit(t, MurderFlag, []string{IncTime, Boro}, model.Binomial)
	switch {
	case err == nil:
		rep.AddModel(m)
	case errors.Is(err, model.ErrTooFewRows), errors.Is(err, model.ErrSingular), errors.Is(err, model.ErrNotConverged):
		rep.Notef("model skipped: %v", err)
	default:
		return err
	}
	return nil
}

// unparsedKeys lists the distinct incident keys in bad, keeping at most limit.
func unparsedKeys(bad []*table.ParseError, limit int) []string {
	var keys []string
	seen := map[string]bool{}
	for _, pe := range bad {
		if seen[pe.Key] {
			continue
		}
		seen[pe.Key] = true
		if len(keys) == limit {
			keys = append(keys, "...")
			break
		}
		keys = append(keys, pe.Key)
	}
	return keys
}
