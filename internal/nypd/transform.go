// Package nypd prepares the NYPD shooting incident history for reporting.
package nypd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Source and derived column names.
const (
	IncidentKey  = "INCIDENT_KEY"
	OccurDate    = "OCCUR_DATE"
	OccurTime    = "OCCUR_TIME"
	Boro         = "BORO"
	Precinct     = "PRECINCT"
	MurderFlag   = "MURDER_FLAG"
	PerpAgeGroup = "PERP_AGE_GROUP"
	PerpRace     = "PERP_RACE"
	PerpSex      = "PERP_SEX"
	VicAgeGroup  = "VIC_AGE_GROUP"
	VicRace      = "VIC_RACE"
	VicSex       = "VIC_SEX"
	Location     = "LOCATION"

	IncYear      = "INC_YEAR"
	IncMonth     = "INC_MONTH"
	IncMonthName = "INC_MONTH_NAME"
	IncTime      = "INC_TIME"
	IncWeekday   = "INC_WEEKDAY"

	rawMurderFlag = "STATISTICAL_MURDER_FLAG"
	rawLocation   = "LOCATION_DESC"
)

var required = []string{IncidentKey, OccurDate, OccurTime, Boro, rawMurderFlag, PerpRace, PerpSex, VicRace, VicSex, rawLocation}

var optional = []string{Precinct, PerpAgeGroup, VicAgeGroup}

var (
	dateLayouts = []string{"1/2/2006", "2006-01-02"}
	timeLayouts = []string{"15:04:05", "15:04"}
)

// Project keeps the incident columns used by the report, renaming the
// murder flag and location description, and types the murder flag as bool.
func Project(raw *table.Table) (*table.Table, error) {
	keep := append([]string(nil), required...)
	for _, c := range optional {
		if raw.Has(c) {
			keep = append(keep, c)
		}
	}
	t, err := raw.Select(keep...)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if t, err = t.Rename(map[string]string{rawMurderFlag: MurderFlag, rawLocation: Location}); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	typed, err := t.Cast(MurderFlag, table.KindBool, parseFlag)
	if err != nil {
		return nil, fmt.Errorf("project: %w", withIncidentKey(err, t))
	}
	return typed, nil
}

func parseFlag(s string) (table.Value, error) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), "true"):
		return table.BoolValue(true), nil
	case strings.EqualFold(strings.TrimSpace(s), "false"):
		return table.BoolValue(false), nil
	}
	return table.Null(), fmt.Errorf("%q is not TRUE or FALSE", s)
}

// withIncidentKey fills in the incident key of a row-level parse error.
func withIncidentKey(err error, t *table.Table) error {
	pe, ok := err.(*table.ParseError)
	if !ok || pe.Row < 0 || pe.Row >= t.Nrow() || !t.Has(IncidentKey) {
		return err
	}
	pe.Key = t.At(pe.Row, IncidentKey).String()
	return pe
}

// Decompose derives INC_YEAR, INC_MONTH, INC_MONTH_NAME, INC_WEEKDAY from
// OCCUR_DATE and INC_TIME (hour of day, truncated) from OCCUR_TIME.
// Missing or unparseable inputs give null outputs and the row is kept;
// Unparsed lists the rows affected by the latter.
func Decompose(t *table.Table) (*table.Table, error) {
	n := t.Nrow()
	year := make([]table.Value, n)
	month := make([]table.Value, n)
	monthName := make([]table.Value, n)
	weekday := make([]table.Value, n)
	hour := make([]table.Value, n)
	dates, err := t.Values(OccurDate)
	if err != nil {
		return nil, err
	}
	times, err := t.Values(OccurTime)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if d, ok := parseCell(dateLayouts, dates[i]); ok {
			year[i] = table.IntValue(int64(d.Year()))
			month[i] = table.IntValue(int64(d.Month()))
			monthName[i] = table.StringValue(d.Month().String())
			weekday[i] = table.StringValue(d.Weekday().String())
		}
		if tm, ok := parseCell(timeLayouts, times[i]); ok {
			hour[i] = table.IntValue(int64(tm.Hour()))
		}
	}
	out := t
	for _, c := range []struct {
		col  table.Column
		vals []table.Value
	}{
		{table.Column{Name: IncYear, Kind: table.KindInt}, year},
		{table.Column{Name: IncMonth, Kind: table.KindInt}, month},
		{table.Column{Name: IncMonthName, Kind: table.KindString}, monthName},
		{table.Column{Name: IncTime, Kind: table.KindInt}, hour},
		{table.Column{Name: IncWeekday, Kind: table.KindString}, weekday},
	} {
		if out, err = out.WithColumn(c.col, c.vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Unparsed returns one *table.ParseError per present OCCUR_DATE or
// OCCUR_TIME cell that matches no known layout, in row order.
func Unparsed(t *table.Table) ([]*table.ParseError, error) {
	keys, err := t.Values(IncidentKey)
	if err != nil {
		return nil, err
	}
	var out []*table.ParseError
	for _, c := range []struct {
		col     string
		layouts []string
	}{{OccurDate, dateLayouts}, {OccurTime, timeLayouts}} {
		vals, err := t.Values(c.col)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if v.IsNull() {
				continue
			}
			if _, err := parseAny(c.layouts, v.Str()); err != nil {
				out = append(out, &table.ParseError{Column: c.col, Row: i, Value: v.Str(), Key: keys[i].String(), Err: err})
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Row < out[b].Row })
	return out, nil
}

func parseCell(layouts []string, v table.Value) (time.Time, bool) {
	if v.IsNull() {
		return time.Time{}, false
	}
	t, err := parseAny(layouts, v.Str())
	return t, err == nil
}

func parseAny(layouts []string, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, l := range layouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// DuplicateKeys returns how many rows repeat an incident key already seen.
// The published data holds one row per victim, so repeats are expected.
func DuplicateKeys(t *table.Table) (int, error) {
	g, err := t.GroupBy(IncidentKey)
	if err != nil {
		return 0, err
	}
	return t.Nrow() - g.Len(), nil
}
