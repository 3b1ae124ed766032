// Package dataset loads and caches the chart data files a narrative refers
// to. Tables are immutable once loaded, sharing them between panels is safe.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Table is one loaded data file. CSV files always fill Columns/Rows. JSON
// files keep the raw document for the renderer and, when the document is an
// array of flat objects, a tabular view as well.
type Table struct {
	Path    string
	Format  string // "csv" or "json" after detection
	Columns []string
	Rows    [][]string
	Raw     json.RawMessage
}

type cacheKey struct {
	format, path string
}

// Loader resolves data file references against a base directory, keeping the
// most recently used tables in memory.
type Loader struct {
	dir   string
	log   *zap.Logger
	cache *lru.Cache[cacheKey, *Table]

	mu      sync.Mutex
	loading map[cacheKey]*sync.WaitGroup
}

// NewLoader creates a loader rooted at dir with an LRU of the given size.
func NewLoader(dir string, size int, log *zap.Logger) (*Loader, error) {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New[cacheKey, *Table](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create dataset cache: %w", err)
	}
	return &Loader{
		dir:     dir,
		log:     log.Named("dataset"),
		cache:   cache,
		loading: make(map[cacheKey]*sync.WaitGroup),
	}, nil
}

// Load returns the table for a data file reference. format is "csv", "json"
// or "auto"/"" for detection by extension and content. Concurrent loads of
// the same file coalesce into one read.
func (l *Loader) Load(ctx context.Context, path, format string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey{format: normalizeFormat(format), path: path}

	for {
		if t, ok := l.cache.Get(key); ok {
			return t, nil
		}
		l.mu.Lock()
		if wg, busy := l.loading[key]; busy {
			l.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		l.loading[key] = wg
		l.mu.Unlock()

		t, err := l.read(key)
		if err == nil {
			l.cache.Add(key, t)
		}
		l.mu.Lock()
		delete(l.loading, key)
		l.mu.Unlock()
		wg.Done()
		return t, err
	}
}

// Prefetch loads all referenced files concurrently, one failure does not stop
// the others. The combined error names every file that failed.
func (l *Loader) Prefetch(ctx context.Context, refs map[string]string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for path, format := range refs {
		wg.Add(1)
		go func(path, format string) {
			defer wg.Done()
			if _, err := l.Load(ctx, path, format); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
			}
		}(path, format)
	}
	wg.Wait()
	return errs
}

func normalizeFormat(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "csv"
	case "json":
		return "json"
	default:
		return "auto"
	}
}

func (l *Loader) read(key cacheKey) (*Table, error) {
	full := key.path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.dir, full)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("unable to read data file: %w", err)
	}

	format := key.format
	if format == "auto" {
		format = detectFormat(key.path, data)
	}

	t := &Table{Path: key.path, Format: format}
	switch format {
	case "json":
		err = t.fillFromJSON(data)
	default:
		err = t.fillFromCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s as %s: %w", key.path, format, err)
	}
	l.log.Debug("Loaded data file",
		zap.String("path", key.path),
		zap.String("format", format),
		zap.Int("rows", len(t.Rows)))
	return t, nil
}

// detectFormat prefers the file extension and falls back to sniffing the
// first significant byte.
func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".csv":
		return "csv"
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json"
	}
	return "csv"
}

func (t *Table) fillFromCSV(data []byte) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	t.Columns = records[0]
	t.Rows = records[1:]
	return nil
}

// fillFromJSON keeps the raw document and derives a tabular view when the
// document is an array of flat objects.
func (t *Table) fillFromJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid json document")
	}
	t.Raw = json.RawMessage(data)

	var objs []map[string]any
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil // not an array of objects, raw form only
	}

	seen := make(map[string]bool)
	for _, obj := range objs {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
	}
	sort.Strings(t.Columns)

	for _, obj := range objs {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			if v, ok := obj[col]; ok {
				row[i] = stringify(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
