package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

func TestProfileTableKinds(t *testing.T) {
	tbl, err := table.FromStrings(
		[]string{"INCIDENT_KEY", "OCCUR_DATE", "BORO", "LOCATION_DESC", "Lat", "EMPTY"},
		[][]string{
			{"1", "3/15/2021", "BRONX", "PVT HOUSE", "40.5", ""},
			{"2", "3/16/2021", "BRONX", "", "40.7", ""},
			{"3", "", "QUEENS", "GROCERY/BODEGA", "41.0", ""},
			{"4", "4/1/2021", "BRONX", "BAR/NIGHT CLUB", "", ""},
		},
		[]string{""},
	)
	if err != nil {
		t.Fatal(err)
	}
	p := ProfileTable("nypd.csv", tbl, Options{TopValues: 2, MaxCategories: 2, Samples: 2})
	if p.Rows != 4 || len(p.Cols) != 6 {
		t.Fatalf("rows=%d cols=%d", p.Rows, len(p.Cols))
	}
	want := map[string]string{
		"INCIDENT_KEY":  "numeric",
		"OCCUR_DATE":    "datetime",
		"BORO":          "categorical",
		"LOCATION_DESC": "text",
		"Lat":           "numeric",
		"EMPTY":         "empty",
	}
	for _, c := range p.Cols {
		if c.Kind != want[c.Name] {
			t.Fatalf("%s: kind %s, want %s", c.Name, c.Kind, want[c.Name])
		}
	}
	lat := p.Cols[4]
	if lat.NonNull != 3 || lat.Missing != 1 {
		t.Fatalf("lat counts %d/%d", lat.NonNull, lat.Missing)
	}
	if math.Abs(lat.Mean-40.7333333) > 1e-6 || lat.Min != 40.5 || lat.Max != 41 {
		t.Fatalf("lat stats mean=%g min=%g max=%g", lat.Mean, lat.Min, lat.Max)
	}
	if math.Abs(lat.Std-0.2516611) > 1e-6 {
		t.Fatalf("lat std=%g", lat.Std)
	}
	boro := p.Cols[2]
	if boro.TopValues[0].Value != "BRONX" || boro.TopValues[0].Count != 3 {
		t.Fatalf("boro top=%v", boro.TopValues)
	}
	if len(p.Warnings) != 1 || !strings.Contains(p.Warnings[0], "EMPTY") {
		t.Fatalf("warnings=%v", p.Warnings)
	}
}

func TestProfileTypedColumnsAndMarkdown(t *testing.T) {
	tbl := table.MustNew([]table.Column{
		{Name: "confirmed", Kind: table.KindInt},
		{Name: "MURDER_FLAG", Kind: table.KindBool},
	}, [][]table.Value{
		{table.IntValue(0), table.BoolValue(true)},
		{table.IntValue(10), table.BoolValue(false)},
		{table.Null(), table.BoolValue(false)},
	})
	p := ProfileTable("derived", tbl, DefaultOptions())
	if p.Cols[0].Kind != "numeric" || p.Cols[0].Mean != 5 {
		t.Fatalf("confirmed=%+v", p.Cols[0])
	}
	if p.Cols[1].Kind != "boolean" || p.Cols[1].TopValues[0].Value != "FALSE" {
		t.Fatalf("flag=%+v", p.Cols[1])
	}
	md := p.Markdown()
	for _, s := range []string{"[DATASET SUMMARY]", "Source: derived", "Rows: 3", "[SCHEMA]", "- confirmed: numeric (non-null 2, missing 33.3%)", "FALSE(2)"} {
		if !strings.Contains(md, s) {
			t.Fatalf("markdown missing %q:\n%s", s, md)
		}
	}
}
