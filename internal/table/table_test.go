package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

func wideFixture(t *testing.T) *Table {
	t.Helper()
	header := []string{"Province_State", "Country_Region", "1/22/2021", "1/23/2021", "1/24/2021"}
	records := [][]string{
		{"", "Italy", "0", "5", "9"},
		{"Ontario", "Canada", "2", "", "7"},
		{"Quebec", "Canada", "1", "1", "4"},
	}
	tbl, err := FromStrings(header, records, []string{""})
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	return tbl
}

func isDateHeader(name string) bool { return strings.Count(name, "/") == 2 }

func parseDateHeader(name string) (Value, error) {
	d, err := time.Parse("1/2/2006", name)
	if err != nil {
		return Null(), err
	}
	return DateValue(d), nil
}

func parseCount(v Value) (Value, error) {
	n, err := strconv.ParseInt(v.Str(), 10, 64)
	if err != nil {
		return Null(), err
	}
	return IntValue(n), nil
}

func meltFixture(t *testing.T, wide *Table) *Table {
	t.Helper()
	long, err := wide.Melt(MeltOptions{
		Match:      isDateHeader,
		KeyName:    "date",
		ValueName:  "value",
		KeyKind:    KindDate,
		ValueKind:  KindInt,
		ParseKey:   parseDateHeader,
		ParseValue: parseCount,
	})
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	return long
}

func TestFromStringsNormalisesNullMarkers(t *testing.T) {
	tbl, err := FromStrings([]string{"a", "b"}, [][]string{{"(null)", "x"}, {"", "NA"}, {"y"}}, []string{"", "(null)", "NA"})
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	for i := 0; i < tbl.Nrow(); i++ {
		if i < 2 && !tbl.At(i, "a").IsNull() {
			t.Fatalf("row %d: a should be null, got %v", i, tbl.At(i, "a"))
		}
	}
	if got := tbl.At(0, "b").Str(); got != "x" {
		t.Fatalf("b[0]=%q, want x", got)
	}
	if !tbl.At(1, "b").IsNull() || !tbl.At(2, "b").IsNull() {
		t.Fatalf("expected NA and short rows to become null")
	}
}

func TestNewRejectsKindMismatchAndDuplicateNames(t *testing.T) {
	if _, err := New([]Column{{"a", KindInt}}, [][]Value{{StringValue("x")}}); err == nil {
		t.Fatalf("expected kind mismatch error")
	}
	if _, err := New([]Column{{"a", KindInt}, {"a", KindInt}}, nil); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestSelectRenameDrop(t *testing.T) {
	tbl := wideFixture(t)
	sel, err := tbl.Select("Country_Region", "Province_State")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := strings.Join(sel.Names(), ","); got != "Country_Region,Province_State" {
		t.Fatalf("names=%s", got)
	}
	if _, err := tbl.Select("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	ren, err := sel.Rename(map[string]string{"Country_Region": "country"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if !ren.Has("country") || ren.Has("Country_Region") {
		t.Fatalf("rename failed: %v", ren.Names())
	}
	if sel.Has("country") {
		t.Fatalf("rename mutated its receiver")
	}
	if _, err := sel.Rename(map[string]string{"Country_Region": "Province_State"}); err == nil {
		t.Fatalf("expected duplicate name error on rename")
	}
	dropped, err := tbl.Drop("1/22/2021")
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if dropped.Ncol() != 4 || tbl.Ncol() != 5 {
		t.Fatalf("drop: got %d cols (source %d)", dropped.Ncol(), tbl.Ncol())
	}
}

func TestMeltCarriesIDsAndParses(t *testing.T) {
	long := meltFixture(t, wideFixture(t))
	if long.Nrow() != 9 {
		t.Fatalf("rows=%d, want 9", long.Nrow())
	}
	if got := strings.Join(long.Names(), ","); got != "Province_State,Country_Region,date,value" {
		t.Fatalf("names=%s", got)
	}
	if got := long.At(4, "Province_State").Str(); got != "Ontario" {
		t.Fatalf("row 4 province=%q", got)
	}
	if d, _ := long.At(4, "date").Date(); d.Day() != 23 {
		t.Fatalf("row 4 date=%v", d)
	}
	if !long.At(4, "value").IsNull() {
		t.Fatalf("missing cell should stay null")
	}
	if n, _ := long.At(2, "value").Int(); n != 9 {
		t.Fatalf("row 2 value=%d", n)
	}
}

func TestMeltRejectsInvalidDateHeader(t *testing.T) {
	tbl, err := FromStrings([]string{"Country_Region", "2/30/2021"}, [][]string{{"Italy", "1"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = tbl.Melt(MeltOptions{Match: isDateHeader, KeyName: "date", ValueName: "value", KeyKind: KindDate, ValueKind: KindInt, ParseKey: parseDateHeader, ParseValue: parseCount})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Column != "2/30/2021" || pe.Row != -1 {
		t.Fatalf("unexpected parse error: %+v", pe)
	}
}

func TestMeltReportsBadCellRow(t *testing.T) {
	tbl, err := FromStrings([]string{"Country_Region", "1/22/2021"}, [][]string{{"Italy", "1"}, {"Spain", "x"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = tbl.Melt(MeltOptions{Match: isDateHeader, KeyName: "date", ValueName: "value", KeyKind: KindDate, ValueKind: KindInt, ParseKey: parseDateHeader, ParseValue: parseCount})
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Row != 1 {
		t.Fatalf("expected ParseError at row 1, got %v", err)
	}
}

func TestPivotInvertsMelt(t *testing.T) {
	wide := wideFixture(t)
	long := meltFixture(t, wide)
	back, err := long.Pivot(PivotOptions{
		IDs:        []string{"Province_State", "Country_Region"},
		Key:        "date",
		Value:      "value",
		ColumnName: func(v Value) string { d, _ := v.Date(); return fmt.Sprintf("%d/%d/%d", d.Month(), d.Day(), d.Year()) },
	})
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if back.Nrow() != wide.Nrow() {
		t.Fatalf("rows=%d, want %d", back.Nrow(), wide.Nrow())
	}
	for i := 0; i < wide.Nrow(); i++ {
		for _, name := range []string{"1/22/2021", "1/23/2021", "1/24/2021"} {
			orig := wide.At(i, name)
			got := back.At(i, name)
			if orig.IsNull() != got.IsNull() {
				t.Fatalf("row %d %s: null mismatch", i, name)
			}
			if !orig.IsNull() && orig.Str() != got.String() {
				t.Fatalf("row %d %s: %s != %s", i, name, orig.Str(), got)
			}
		}
		if !wide.At(i, "Province_State").Equal(back.At(i, "Province_State")) {
			t.Fatalf("row %d province changed", i)
		}
	}
}

func TestPivotDuplicateKey(t *testing.T) {
	tbl := MustNew([]Column{{"id", KindString}, {"k", KindString}, {"v", KindInt}}, [][]Value{
		{StringValue("a"), StringValue("x"), IntValue(1)},
		{StringValue("a"), StringValue("x"), IntValue(2)},
	})
	_, err := tbl.Pivot(PivotOptions{IDs: []string{"id"}, Key: "k", Value: "v"})
	var de *DuplicateKeyError
	if !errors.As(err, &de) || de.Rows != [2]int{0, 1} {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
}

func TestLeftJoinKeepsEveryLeftRow(t *testing.T) {
	left := MustNew([]Column{{"region", KindString}, {"sub", KindString}, {"confirmed", KindInt}}, [][]Value{
		{StringValue("Canada"), StringValue("Ontario"), IntValue(10)},
		{StringValue("Italy"), Null(), IntValue(20)},
		{StringValue("Peru"), Null(), IntValue(30)},
		{StringValue("Canada"), StringValue("Quebec"), IntValue(40)},
	})
	right := MustNew([]Column{{"sub", KindString}, {"region", KindString}, {"deaths", KindInt}, {"confirmed", KindInt}}, [][]Value{
		{Null(), StringValue("Italy"), IntValue(2), IntValue(99)},
		{StringValue("Quebec"), StringValue("Canada"), IntValue(4), IntValue(98)},
		{StringValue("Ontario"), StringValue("Canada"), IntValue(1), IntValue(97)},
	})
	joined, err := left.LeftJoin(right, "region", "sub")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	if joined.Nrow() != left.Nrow() {
		t.Fatalf("rows=%d, want %d", joined.Nrow(), left.Nrow())
	}
	if got := strings.Join(joined.Names(), ","); got != "region,sub,confirmed,deaths,confirmed_right" {
		t.Fatalf("names=%s", got)
	}
	want := []string{"1", "2", "NA", "4"}
	for i, w := range want {
		if got := joined.At(i, "deaths").String(); got != w {
			t.Fatalf("row %d deaths=%s, want %s", i, got, w)
		}
		if !joined.At(i, "confirmed").Equal(left.At(i, "confirmed")) {
			t.Fatalf("row %d reordered", i)
		}
	}
}

func TestLeftJoinRejectsDuplicateRightKeys(t *testing.T) {
	left := MustNew([]Column{{"k", KindString}}, [][]Value{{StringValue("a")}})
	right := MustNew([]Column{{"k", KindString}, {"v", KindInt}}, [][]Value{
		{StringValue("a"), IntValue(1)},
		{StringValue("a"), IntValue(2)},
	})
	var de *DuplicateKeyError
	if _, err := left.LeftJoin(right, "k"); !errors.As(err, &de) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
}

func TestGroupByCountAndSum(t *testing.T) {
	tbl := MustNew([]Column{{"boro", KindString}, {"year", KindInt}, {"murder", KindBool}, {"n", KindFloat}}, [][]Value{
		{StringValue("BRONX"), IntValue(2020), BoolValue(true), FloatValue(1.5)},
		{StringValue("BRONX"), IntValue(2020), BoolValue(false), Null()},
		{Null(), IntValue(2020), BoolValue(true), FloatValue(2)},
		{StringValue("QUEENS"), IntValue(2021), Null(), FloatValue(3)},
		{StringValue("BRONX"), IntValue(2021), BoolValue(true), FloatValue(4)},
	})
	g, err := tbl.GroupBy("boro", "year")
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	counts := g.Count("incidents")
	if counts.Nrow() != 4 {
		t.Fatalf("groups=%d, want 4", counts.Nrow())
	}
	var total int64
	for i := 0; i < counts.Nrow(); i++ {
		n, _ := counts.At(i, "incidents").Int()
		total += n
	}
	if total != int64(tbl.Nrow()) {
		t.Fatalf("count total=%d, want %d", total, tbl.Nrow())
	}
	if !counts.At(1, "boro").IsNull() {
		t.Fatalf("null key should form its own group in order of appearance")
	}
	agg, err := g.Aggregate(Sum("murder", "murders"), Sum("n", "n_sum"), Mean("n", "n_mean"))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if c, _ := agg.Col("murders"); c.Kind != KindInt {
		t.Fatalf("bool sum kind=%s", c.Kind)
	}
	if got := agg.At(0, "murders").String(); got != "1" {
		t.Fatalf("murders[0]=%s", got)
	}
	if got := agg.At(0, "n_sum").String(); got != "1.5" {
		t.Fatalf("n_sum[0]=%s", got)
	}
	if got := agg.At(0, "n_mean").String(); got != "1.5" {
		t.Fatalf("n_mean[0]=%s", got)
	}
	if got := agg.At(3, "murders").String(); got != "1" {
		t.Fatalf("murders[3]=%s", got)
	}
	if _, err := g.Sum("boro", "x"); err == nil {
		t.Fatalf("expected error summing a string column")
	}

	strict, err := g.Aggregate(Sum("murder", "murders"), SumNonNull("murder", "murders_known"), SumNonNull("n", "n_known"))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got := strict.At(2, "murders").String(); got != "0" {
		t.Fatalf("all-null Sum=%s, want 0", got)
	}
	if !strict.At(2, "murders_known").IsNull() {
		t.Fatalf("all-null SumNonNull=%v, want null", strict.At(2, "murders_known"))
	}
	if got := strict.At(0, "n_known").String(); got != "1.5" {
		t.Fatalf("partly null SumNonNull=%s", got)
	}
	if c, _ := strict.Col("murders_known"); c.Kind != KindInt {
		t.Fatalf("bool SumNonNull kind=%s", c.Kind)
	}
}

func TestSortNullsLast(t *testing.T) {
	tbl := MustNew([]Column{{"v", KindInt}}, [][]Value{{IntValue(2)}, {Null()}, {IntValue(5)}, {IntValue(1)}})
	asc, err := tbl.Sort(Asc("v"))
	if err != nil {
		t.Fatal(err)
	}
	desc, err := tbl.Sort(Desc("v"))
	if err != nil {
		t.Fatal(err)
	}
	var a, d []string
	for i := 0; i < tbl.Nrow(); i++ {
		a = append(a, asc.At(i, "v").String())
		d = append(d, desc.At(i, "v").String())
	}
	if strings.Join(a, ",") != "1,2,5,NA" || strings.Join(d, ",") != "5,2,1,NA" {
		t.Fatalf("asc=%v desc=%v", a, d)
	}
	if tbl.At(0, "v").String() != "2" {
		t.Fatalf("sort mutated its receiver")
	}
}

func TestDiffRatioShareRolling(t *testing.T) {
	tbl := MustNew([]Column{{"confirmed", KindInt}, {"deaths", KindInt}}, [][]Value{
		{IntValue(0), IntValue(0)},
		{IntValue(5), IntValue(1)},
		{IntValue(3), IntValue(1)},
		{Null(), IntValue(2)},
		{IntValue(12), IntValue(2)},
	})
	d, err := tbl.Diff("confirmed", "new")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := 0; i < d.Nrow(); i++ {
		got = append(got, d.At(i, "new").String())
	}
	if strings.Join(got, ",") != "0,5,-2,NA,NA" {
		t.Fatalf("diff=%v", got)
	}
	r, err := tbl.Ratio("deaths", "confirmed", "cfr")
	if err != nil {
		t.Fatal(err)
	}
	if !r.At(0, "cfr").IsNull() || !r.At(3, "cfr").IsNull() {
		t.Fatalf("cfr should be null for zero and missing denominators")
	}
	if got := r.At(1, "cfr").String(); got != "0.2" {
		t.Fatalf("cfr[1]=%s", got)
	}
	if _, err := tbl.Share("deaths", "confirmed", "pct"); err == nil {
		t.Fatalf("expected DenominatorError for the null denominator")
	} else {
		var de *DenominatorError
		if !errors.As(err, &de) || de.Row != 3 {
			t.Fatalf("unexpected error %v", err)
		}
	}
	ok := tbl.Filter(func(r Record) bool { return !r.Get("confirmed").IsNull() })
	s, err := ok.Share("deaths", "confirmed", "pct")
	if err != nil {
		t.Fatal(err)
	}
	if !s.At(0, "pct").IsNull() || s.At(1, "pct").String() != "20" {
		t.Fatalf("share=%s,%s", s.At(0, "pct"), s.At(1, "pct"))
	}
	rm, err := ok.RollingMean("deaths", "avg", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !rm.At(0, "avg").IsNull() || rm.At(1, "avg").String() != "0.5" || rm.At(3, "avg").String() != "1.5" {
		t.Fatalf("rolling=%s,%s,%s", rm.At(0, "avg"), rm.At(1, "avg"), rm.At(3, "avg"))
	}
}

func TestTransformPreservesGroupOrder(t *testing.T) {
	tbl := MustNew([]Column{{"g", KindString}, {"x", KindInt}}, [][]Value{
		{StringValue("b"), IntValue(3)},
		{StringValue("a"), IntValue(1)},
		{StringValue("b"), IntValue(1)},
	})
	g, err := tbl.GroupBy("g")
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Transform(func(part *Table) (*Table, error) { return part.Sort(Asc("x")) })
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := 0; i < out.Nrow(); i++ {
		got = append(got, out.At(i, "g").Str()+out.At(i, "x").String())
	}
	if strings.Join(got, ",") != "b1,b3,a1" {
		t.Fatalf("transform=%v", got)
	}
}

func TestCheckUniqueAndCompleteCases(t *testing.T) {
	tbl := MustNew([]Column{{"k", KindString}, {"x", KindInt}}, [][]Value{
		{StringValue("1"), IntValue(1)},
		{StringValue("2"), Null()},
		{StringValue("1"), IntValue(3)},
	})
	var de *DuplicateKeyError
	if err := tbl.CheckUnique("k"); !errors.As(err, &de) || de.Rows != [2]int{0, 2} {
		t.Fatalf("expected duplicate at rows 0 and 2, got %v", err)
	}
	cc, err := tbl.CompleteCases("x")
	if err != nil {
		t.Fatal(err)
	}
	if cc.Nrow() != 2 {
		t.Fatalf("complete cases=%d", cc.Nrow())
	}
}
