// Package pipeline defines the runnable report interface and a registry of
// named report factories.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Source fetches one CSV source into a table.
type Source interface {
	Fetch(ctx context.Context, src string) (*table.Table, error)
}

// Options carries the knobs shared by every pipeline.
type Options struct {
	Loader Source
	// Sources maps a pipeline-defined source name to its URL or path.
	// Missing entries fall back to the pipeline's defaults.
	Sources       map[string]string
	TopN          int
	RollingWindow int
	// Logf receives progress lines. Nil discards them.
	Logf func(format string, args ...any)
}

// Source returns the configured location for name, or def when unset.
func (o Options) Source(name, def string) string {
	if s := o.Sources[name]; s != "" {
		return s
	}
	return def
}

// Log forwards to Logf when set.
func (o Options) Log(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Pipeline is one report: fetch, transform, aggregate, fit.
// Run either returns a complete report or an error; there is no partial result.
type Pipeline interface {
	Name() string
	Title() string
	Run(ctx context.Context) (*report.Report, error)
}

// Factory builds a Pipeline from Options.
type Factory func(Options) Pipeline

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named factory. Registering a name twice panics.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("pipeline %q registered twice", name))
	}
	registry[name] = f
}

// Get builds the named pipeline.
func Get(name string, opt Options) (Pipeline, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown report %q (available: %v)", name, Names())
	}
	return f(opt), nil
}

// Names lists registered pipelines in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
