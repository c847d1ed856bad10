package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const confirmedCSV = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n" +
	",Italy,41.87,12.56,0,5\n" +
	"Ontario,Canada,51.25,-85.32,NA,2\n"

func TestDecodeNormalisesNulls(t *testing.T) {
	tbl, err := Decode("inline", strings.NewReader("\xef\xbb\xbf"+confirmedCSV), DefaultNullMarkers)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tbl.Nrow() != 2 || tbl.Ncol() != 6 {
		t.Fatalf("shape %dx%d", tbl.Nrow(), tbl.Ncol())
	}
	if got := tbl.Names()[0]; got != "Province/State" {
		t.Fatalf("BOM not stripped from first header: %q", got)
	}
	if !tbl.At(0, "Province/State").IsNull() {
		t.Fatalf("empty cell should be null")
	}
	if !tbl.At(1, "1/22/20").IsNull() {
		t.Fatalf("NA cell should be null")
	}
	if got := tbl.At(1, "Province/State").Str(); got != "Ontario" {
		t.Fatalf("province=%q", got)
	}
	if got := tbl.At(0, "Lat").Str(); got != "41.87" {
		t.Fatalf("lat kept as text, got %q", got)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode("empty.csv", strings.NewReader(""), nil)
	var de *DecodeError
	if !errors.As(err, &de) || de.Source != "empty.csv" {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeRaggedRows(t *testing.T) {
	_, err := Decode("bad.csv", strings.NewReader("a,b\n1,2,3\n"), nil)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/confirmed.csv" {
			http.Error(w, "no such file", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(confirmedCSV))
	}))
	defer srv.Close()

	f := New(5*time.Second, nil)
	tbl, err := f.Fetch(context.Background(), srv.URL+"/confirmed.csv")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tbl.Nrow() != 2 {
		t.Fatalf("rows=%d", tbl.Nrow())
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.csv")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if !strings.Contains(se.Body, "no such file") {
		t.Fatalf("status body not captured: %q", se.Body)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(time.Second, nil).Fetch(context.Background(), url+"/x.csv")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(confirmedCSV))
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(time.Second, nil).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deaths.csv")
	if err := os.WriteFile(path, []byte(confirmedCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	f := New(0, nil)
	for _, src := range []string{path, "file://" + path} {
		tbl, err := f.Fetch(context.Background(), src)
		if err != nil {
			t.Fatalf("Fetch(%s): %v", src, err)
		}
		if tbl.Ncol() != 6 {
			t.Fatalf("Fetch(%s): cols=%d", src, tbl.Ncol())
		}
	}
	_, err := f.Fetch(context.Background(), filepath.Join(dir, "nope.csv"))
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected FetchError wrapping ErrNotExist, got %v", err)
	}
}
