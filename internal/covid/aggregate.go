package covid

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// CountryDaily sums the derived table to one row per country and date,
// recomputes the fatality rate on the totals, and adds the trailing
// window-day mean of new cases per country. A total whose inputs are all
// null stays null, so a country without deaths data has no fatality rate.
func CountryDaily(derived *table.Table, window int) (*table.Table, error) {
	g, err := derived.GroupBy(Country, Date)
	if err != nil {
		return nil, err
	}
	daily, err := g.Aggregate(
		table.SumNonNull(Confirmed, Confirmed),
		table.SumNonNull(Deaths, Deaths),
		table.SumNonNull(NewCases, NewCases),
		table.SumNonNull(NewDeaths, NewDeaths),
	)
	if err != nil {
		return nil, fmt.Errorf("country daily: %w", err)
	}
	if daily, err = daily.Ratio(Deaths, Confirmed, CFR); err != nil {
		return nil, fmt.Errorf("country daily: %w", err)
	}
	byCountry, err := daily.GroupBy(Country)
	if err != nil {
		return nil, err
	}
	out, err := byCountry.Transform(func(part *table.Table) (*table.Table, error) {
		s, err := part.Sort(table.Asc(Date))
		if err != nil {
			return nil, err
		}
		return s.RollingMean(NewCases, NewCasesAvg, window)
	})
	if err != nil {
		return nil, fmt.Errorf("country daily: %w", err)
	}
	return out, nil
}

// LatestDate is the greatest date in t.
func LatestDate(t *table.Table) (time.Time, bool) {
	vals, err := t.Values(Date)
	if err != nil {
		return time.Time{}, false
	}
	var latest time.Time
	found := false
	for _, v := range vals {
		if d, ok := v.Date(); ok && (!found || d.After(latest)) {
			latest, found = d, true
		}
	}
	return latest, found
}

// Latest keeps the rows dated on the latest date in t.
func Latest(t *table.Table) (*table.Table, time.Time, error) {
	day, ok := LatestDate(t)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("latest: no dated rows")
	}
	want := table.DateValue(day)
	return t.Filter(func(r table.Record) bool { return r.Get(Date).Equal(want) }), day, nil
}

// Top sorts t by col descending and keeps the first n rows of the given columns.
func Top(t *table.Table, col string, n int, cols ...string) (*table.Table, error) {
	s, err := t.Sort(table.Desc(col), table.Asc(Country))
	if err != nil {
		return nil, err
	}
	return s.Head(n).Select(cols...)
}

// Yearly totals new cases and deaths per calendar year across all regions.
func Yearly(derived *table.Table) (*table.Table, error) {
	withYear, err := derived.Mutate(table.Column{Name: Year, Kind: table.KindInt}, func(r table.Record) (table.Value, error) {
		d, ok := r.Get(Date).Date()
		if !ok {
			return table.Null(), nil
		}
		return table.IntValue(int64(d.Year())), nil
	})
	if err != nil {
		return nil, err
	}
	g, err := withYear.GroupBy(Year)
	if err != nil {
		return nil, err
	}
	out, err := g.Aggregate(table.Sum(NewCases, NewCases), table.Sum(NewDeaths, NewDeaths))
	if err != nil {
		return nil, fmt.Errorf("yearly: %w", err)
	}
	return out.Sort(table.Asc(Year))
}

// Corrections counts the days per country on which cumulative confirmed
// cases were revised downward.
func Corrections(daily *table.Table) (*table.Table, error) {
	neg := daily.Filter(func(r table.Record) bool {
		n, ok := r.Get(NewCases).Int()
		return ok && n < 0
	})
	g, err := neg.GroupBy(Country)
	if err != nil {
		return nil, err
	}
	return g.Count("negative_days").Sort(table.Desc("negative_days"), table.Asc(Country))
}
