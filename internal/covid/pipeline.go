package covid

import (
	"context"
	"errors"
	"fmt"

	"github.com/KaramelBytes/tidyreport-cli/internal/analysis"
	"github.com/KaramelBytes/tidyreport-cli/internal/model"
	"github.com/KaramelBytes/tidyreport-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

const (
	Name  = "covid"
	title = "COVID-19 cases and deaths (JHU CSSE global time series)"

	SourceConfirmed = "covid_confirmed"
	SourceDeaths    = "covid_deaths"

	baseURL             = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"
	DefaultConfirmedURL = baseURL + "time_series_covid19_confirmed_global.csv"
	DefaultDeathsURL    = baseURL + "time_series_covid19_deaths_global.csv"

	defaultTopN   = 10
	defaultWindow = 7
)

func init() {
	pipeline.Register(Name, func(o pipeline.Options) pipeline.Pipeline { return New(o) })
}

// Pipeline builds the COVID report.
type Pipeline struct {
	opt pipeline.Options
}

func New(opt pipeline.Options) *Pipeline {
	if opt.TopN <= 0 {
		opt.TopN = defaultTopN
	}
	if opt.RollingWindow <= 0 {
		opt.RollingWindow = defaultWindow
	}
	return &Pipeline{opt: opt}
}

func (p *Pipeline) Name() string  { return Name }
func (p *Pipeline) Title() string { return title }

// Run fetches both series and builds the report. Fetch and parse failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	if p.opt.Loader == nil {
		return nil, fmt.Errorf("%s: no loader configured", Name)
	}
	confirmedSrc := p.opt.Source(SourceConfirmed, DefaultConfirmedURL)
	deathsSrc := p.opt.Source(SourceDeaths, DefaultDeathsURL)

	p.opt.Log("fetching %s", confirmedSrc)
	rawConfirmed, err := p.opt.Loader.Fetch(ctx, confirmedSrc)
	if err != nil {
		return nil, err
	}
	p.opt.Log("fetching %s", deathsSrc)
	rawDeaths, err := p.opt.Loader.Fetch(ctx, deathsSrc)
	if err != nil {
		return nil, err
	}

	derived, err := Build(rawConfirmed, rawDeaths)
	if err != nil {
		return nil, err
	}
	p.opt.Log("derived %d region-day rows", derived.Nrow())

	rep := report.New(Name, title)
	rep.Sources["confirmed"] = confirmedSrc
	rep.Sources["deaths"] = deathsSrc
	if err := p.summarize(rep, derived); err != nil {
		return nil, err
	}
	rep.AddProfile(analysis.ProfileTable("derived region-day table", derived, analysis.DefaultOptions()))
	return rep, nil
}

// Build runs the transform chain from the two raw wide tables to the derived table.
func Build(rawConfirmed, rawDeaths *table.Table) (*table.Table, error) {
	cw, err := Project(rawConfirmed, true)
	if err != nil {
		return nil, fmt.Errorf("confirmed: %w", err)
	}
	dw, err := Project(rawDeaths, false)
	if err != nil {
		return nil, fmt.Errorf("deaths: %w", err)
	}
	confirmed, err := Melt(cw, Confirmed)
	if err != nil {
		return nil, err
	}
	deaths, err := Melt(dw, Deaths)
	if err != nil {
		return nil, err
	}
	joined, err := Join(confirmed, deaths)
	if err != nil {
		return nil, err
	}
	return Derive(joined)
}

func (p *Pipeline) summarize(rep *report.Report, derived *table.Table) error {
	n := p.opt.TopN
	daily, err := CountryDaily(derived, p.opt.RollingWindow)
	if err != nil {
		return err
	}
	latest, day, err := Latest(daily)
	if err != nil {
		return err
	}
	rep.Notef("latest date in the series: %s (%d countries)", day.Format(table.DateLayout), latest.Nrow())

	unmatched := derived.Filter(func(r table.Record) bool { return r.Get(Deaths).IsNull() }).Nrow()
	if unmatched > 0 {
		rep.Notef("%d confirmed rows had no matching deaths row", unmatched)
	}

	cols := []string{Country, Confirmed, Deaths, CFR}
	byConfirmed, err := Top(latest, Confirmed, n, cols...)
	if err != nil {
		return err
	}
	rep.AddSection(fmt.Sprintf("Top %d countries by confirmed cases", n), "Cumulative totals on "+day.Format(table.DateLayout)+".", byConfirmed)

	byDeaths, err := Top(latest, Deaths, n, cols...)
	if err != nil {
		return err
	}
	rep.AddSection(fmt.Sprintf("Top %d countries by deaths", n), "", byDeaths)

	trend, err := Top(latest, NewCasesAvg, n, Country, NewCases, NewCasesAvg)
	if err != nil {
		return err
	}
	rep.AddSection(fmt.Sprintf("Highest %d-day average of new cases", p.opt.RollingWindow), "", trend)

	yearly, err := Yearly(derived)
	if err != nil {
		return err
	}
	rep.AddSection("Global new cases and deaths by year", "", yearly)

	corr, err := Corrections(daily)
	if err != nil {
		return err
	}
	if corr.Nrow() > 0 {
		rep.AddSection("Downward revisions", "Days on which a country's cumulative confirmed count decreased.", corr.Head(n))
	}

	m, err := model.Fit(latest, Deaths, []string{Confirmed}, model.Gaussian)
	switch {
	case err == nil:
		rep.AddModel(m)
	case errors.Is(err, model.ErrTooFewRows), errors.Is(err, model.ErrSingular):
		rep.Notef("model skipped: %v", err)
	default:
		return err
	}
	return nil
}
