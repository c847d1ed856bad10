package nypd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

const (
	Incidents = "incidents"
	Murders   = "murders"
	MurderPct = "murder_pct"
)

// CountBy counts incidents per distinct key tuple, sorted by the keys.
func CountBy(t *table.Table, keys ...string) (*table.Table, error) {
	g, err := t.GroupBy(keys...)
	if err != nil {
		return nil, err
	}
	sortKeys := make([]table.SortKey, len(keys))
	for i, k := range keys {
		sortKeys[i] = table.Asc(k)
	}
	return g.Count(Incidents).Sort(sortKeys...)
}

// MurdersByBoro counts incidents and murders per borough with the murder
// share in percent, largest boroughs first.
func MurdersByBoro(t *table.Table) (*table.Table, error) {
	g, err := t.GroupBy(Boro)
	if err != nil {
		return nil, err
	}
	agg, err := g.Aggregate(table.Count(Incidents), table.Sum(MurderFlag, Murders))
	if err != nil {
		return nil, fmt.Errorf("murders by boro: %w", err)
	}
	if agg, err = agg.Share(Murders, Incidents, MurderPct); err != nil {
		return nil, fmt.Errorf("murders by boro: %w", err)
	}
	return agg.Sort(table.Desc(Incidents), table.Asc(Boro))
}

// TopLocations counts incidents per recorded location, excluding rows
// without one, and keeps the n most frequent.
func TopLocations(t *table.Table, n int) (*table.Table, error) {
	known := t.Filter(func(r table.Record) bool { return !r.Get(Location).IsNull() })
	g, err := known.GroupBy(Location)
	if err != nil {
		return nil, err
	}
	s, err := g.Count(Incidents).Sort(table.Desc(Incidents), table.Asc(Location))
	if err != nil {
		return nil, err
	}
	return s.Head(n), nil
}

// ByWeekday counts incidents per weekday, Sunday first, missing dates last.
func ByWeekday(t *table.Table) (*table.Table, error) {
	counts, err := CountBy(t, IncWeekday)
	if err != nil {
		return nil, err
	}
	const order = "weekday_order"
	withOrder, err := counts.Mutate(table.Column{Name: order, Kind: table.KindInt}, func(r table.Record) (table.Value, error) {
		name := r.Get(IncWeekday).Str()
		for d := time.Sunday; d <= time.Saturday; d++ {
			if d.String() == name {
				return table.IntValue(int64(d)), nil
			}
		}
		return table.Null(), nil
	})
	if err != nil {
		return nil, err
	}
	sorted, err := withOrder.Sort(table.Asc(order))
	if err != nil {
		return nil, err
	}
	return sorted.Drop(order)
}
