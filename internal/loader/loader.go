package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// DefaultNullMarkers are the cell spellings treated as missing.
var DefaultNullMarkers = []string{"", "NA", "NaN", "(null)", "<nil>"}

const defaultTimeout = 60 * time.Second

// FetchError is a transport or filesystem failure while reading a source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Source, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Source     string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fetch %s: unexpected status %s", e.Source, e.Status)
	}
	return fmt.Sprintf("fetch %s: unexpected status %s: %s", e.Source, e.Status, e.Body)
}

// DecodeError is a payload that could not be read as CSV with a header row.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Source, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Fetcher reads CSV sources into string-typed tables.
type Fetcher struct {
	httpClient  *http.Client
	nullMarkers []string
}

// New returns a Fetcher. A non-positive timeout uses 60s; nil markers use DefaultNullMarkers.
func New(timeout time.Duration, nullMarkers []string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if nullMarkers == nil {
		nullMarkers = DefaultNullMarkers
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		nullMarkers: append([]string(nil), nullMarkers...),
	}
}

// Fetch reads src, which is an http(s) URL, a file:// URL or a local path.
// Sources ending in .xlsx are read from their first worksheet, anything else
// as CSV. Failures are not retried.
func (f *Fetcher) Fetch(ctx context.Context, src string) (*table.Table, error) {
	rc, err := f.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if isWorkbook(src) {
		return DecodeXLSX(src, rc, "", f.nullMarkers)
	}
	return Decode(src, rc, f.nullMarkers)
}

func (f *Fetcher) open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return f.get(ctx, src)
		case "file":
			src = u.Path
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: src, Err: err}
	}
	fh, err := os.Open(src)
	if err != nil {
		return nil, &FetchError{Source: src, Err: err}
	}
	return fh, nil
}

func (f *Fetcher) get(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, &FetchError{Source: src, Err: err}
	}
	req.Header.Set("Accept", "text/csv, */*")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: src, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Source: src, StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	return resp.Body, nil
}

// Decode parses CSV with a header row into a table whose columns are all
// strings. Cells matching one of nullMarkers become null.
func Decode(source string, r io.Reader, nullMarkers []string) (*table.Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte("\xef\xbb\xbf")) {
		_, _ = br.Discard(3)
	}
	if _, err := br.Peek(1); err == io.EOF {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("empty payload")}
	}
	df := dataframe.ReadCSV(br,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nullMarkers),
	)
	if df.Err != nil {
		return nil, &DecodeError{Source: source, Err: df.Err}
	}
	return fromDataFrame(df)
}

// fromDataFrame copies a string-typed dataframe into a table.
func fromDataFrame(df dataframe.DataFrame) (*table.Table, error) {
	names := df.Names()
	nrow := df.Nrow()
	cols := make([]table.Column, len(names))
	for j, n := range names {
		cols[j] = table.Column{Name: n, Kind: table.KindString}
	}
	rows := make([][]table.Value, nrow)
	for i := range rows {
		rows[i] = make([]table.Value, len(names))
	}
	for j, n := range names {
		s := df.Col(n)
		for i := 0; i < nrow; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			rows[i][j] = table.StringValue(e.String())
		}
	}
	return table.New(cols, rows)
}
