// Package covid turns the JHU CSSE global time series into a long,
// per-day table of cumulative and new cases and deaths.
package covid

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Column names of the working tables.
const (
	Province    = "Province_State"
	Country     = "Country_Region"
	Lat         = "Lat"
	Long        = "Long"
	Date        = "date"
	Year        = "year"
	Confirmed   = "confirmed"
	Deaths      = "deaths"
	NewCases    = "new_cases"
	NewDeaths   = "new_deaths"
	CFR         = "case_fatality_rate"
	NewCasesAvg = "new_cases_avg"
)

var sourceNames = map[string]string{
	"Province/State": Province,
	"Country/Region": Country,
}

var datePattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)

// IsDateColumn reports whether a header looks like a M/D/YY or M/D/YYYY date.
func IsDateColumn(name string) bool { return datePattern.MatchString(name) }

// ParseDate parses a month/day/year header. Two-digit years are 20YY.
// Calendar-invalid dates such as 2/30/2021 are rejected.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%q is not a month/day/year date", s)
	}
	parts := strings.Split(s, "/")
	m, _ := strconv.Atoi(parts[0])
	d, _ := strconv.Atoi(parts[1])
	y, _ := strconv.Atoi(parts[2])
	switch len(parts[2]) {
	case 2:
		y += 2000
	case 4:
	default:
		return time.Time{}, fmt.Errorf("%q: year must have 2 or 4 digits", s)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, fmt.Errorf("%q is not a valid calendar date", s)
	}
	return t, nil
}

func parseDateKey(name string) (table.Value, error) {
	t, err := ParseDate(name)
	if err != nil {
		return table.Null(), err
	}
	return table.DateValue(t), nil
}

// parseCount reads a cumulative count. Integral floats such as "12.0" are accepted.
func parseCount(v table.Value) (table.Value, error) {
	s := strings.TrimSpace(v.Str())
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return table.IntValue(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return table.Null(), fmt.Errorf("%q is not a count", s)
	}
	return table.IntValue(int64(f)), nil
}

func parseCoord(s string) (table.Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return table.Null(), err
	}
	return table.FloatValue(f), nil
}

// Project renames the region columns, keeps the region ids and the date
// columns, and types Lat/Long as floats. Coordinates are dropped unless
// keepCoords is set.
func Project(wide *table.Table, keepCoords bool) (*table.Table, error) {
	rename := map[string]string{}
	for from, to := range sourceNames {
		if wide.Has(from) {
			rename[from] = to
		}
	}
	t, err := wide.Rename(rename)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	keep := []string{Province, Country}
	if keepCoords {
		for _, c := range []string{Lat, Long} {
			if !t.Has(c) {
				continue
			}
			if t, err = t.Cast(c, table.KindFloat, parseCoord); err != nil {
				return nil, fmt.Errorf("project: %w", err)
			}
			keep = append(keep, c)
		}
	}
	dates := 0
	for _, n := range t.Names() {
		if IsDateColumn(n) {
			keep = append(keep, n)
			dates++
		}
	}
	if dates == 0 {
		return nil, fmt.Errorf("project: no date columns found")
	}
	out, err := t.Select(keep...)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return out, nil
}

// Melt reshapes a projected wide table into one row per region and date,
// with the cumulative count in valueName.
func Melt(wide *table.Table, valueName string) (*table.Table, error) {
	long, err := wide.Melt(table.MeltOptions{
		Match:      IsDateColumn,
		KeyName:    Date,
		ValueName:  valueName,
		KeyKind:    table.KindDate,
		ValueKind:  table.KindInt,
		ParseKey:   parseDateKey,
		ParseValue: parseCount,
	})
	if err != nil {
		return nil, fmt.Errorf("melt %s: %w", valueName, err)
	}
	return long, nil
}

// Join left-joins deaths onto confirmed by region and date. Every confirmed
// row is kept; unmatched rows carry null deaths.
func Join(confirmed, deaths *table.Table) (*table.Table, error) {
	d, err := deaths.Select(Province, Country, Date, Deaths)
	if err != nil {
		return nil, fmt.Errorf("join: deaths: %w", err)
	}
	j, err := confirmed.LeftJoin(d, Province, Country, Date)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	return j, nil
}

// Derive adds new_cases, new_deaths and case_fatality_rate. Rows are
// grouped by region in order of first appearance and sorted by date within
// each group. The first row of a group differences against zero; negative
// differences are kept.
func Derive(joined *table.Table) (*table.Table, error) {
	if err := joined.CheckUnique(Country, Province, Date); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	g, err := joined.GroupBy(Country, Province)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	out, err := g.Transform(func(part *table.Table) (*table.Table, error) {
		s, err := part.Sort(table.Asc(Date))
		if err != nil {
			return nil, err
		}
		if s, err = s.Diff(Confirmed, NewCases); err != nil {
			return nil, err
		}
		return s.Diff(Deaths, NewDeaths)
	})
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	if out, err = out.Ratio(Deaths, Confirmed, CFR); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	return out, nil
}
