package sections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/report"
)

// ErrStaleLoad is returned by a load that was superseded by a newer one
var ErrStaleLoad = errors.New("section load superseded")

// FetchFunc reads the raw polygon document
type FetchFunc func(ctx context.Context, source string) ([]byte, error)

// Loader owns the section polygon document and its load state.
// Every load takes a new generation; a load that finishes after a newer one
// started is discarded.
type Loader struct {
	source   string
	fetch    FetchFunc
	reporter report.Reporter

	mu        sync.RWMutex
	state     models.SectionLoadState
	gen       uint64
	revision  uint64
	requested bool
	polygons  *geojson.FeatureCollection
	locator   *Locator
}

// NewLoader creates a loader for source; a nil fetch reads files and http(s) URLs
func NewLoader(source string, fetch FetchFunc, reporter report.Reporter) *Loader {
	if fetch == nil {
		fetch = FetchDocument
	}
	return &Loader{
		source:   source,
		fetch:    fetch,
		reporter: reporter,
		state:    models.SectionsUnloaded,
	}
}

// State returns the current load state
func (l *Loader) State() models.SectionLoadState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Polygons returns the loaded document, or nil before the first successful load
func (l *Loader) Polygons() *geojson.FeatureCollection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.polygons
}

// Locator returns the point-in-polygon index of the loaded document
func (l *Loader) Locator() *Locator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.locator
}

// EnsureFor reloads the document when the person data revision changed since
// the last request, and otherwise keeps what is loaded.
func (l *Loader) EnsureFor(ctx context.Context, revision uint64) error {
	l.mu.RLock()
	fresh := l.requested && l.revision == revision && l.state != models.SectionsFailed
	l.mu.RUnlock()
	if fresh {
		return nil
	}
	return l.load(ctx, revision)
}

// Load fetches the document unconditionally
func (l *Loader) Load(ctx context.Context) error {
	l.mu.RLock()
	rev := l.revision
	l.mu.RUnlock()
	return l.load(ctx, rev)
}

func (l *Loader) load(ctx context.Context, revision uint64) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.state = models.SectionsLoading
	l.revision = revision
	l.requested = true
	l.mu.Unlock()

	fc, err := l.fetchAndParse(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrStaleLoad
	}
	if err != nil {
		l.state = models.SectionsFailed
		if l.reporter != nil {
			l.reporter.LogDiagnostic("failed to load section polygons", err)
		}
		return err
	}
	l.polygons = fc
	l.locator = NewLocator(fc)
	l.state = models.SectionsLoaded
	return nil
}

func (l *Loader) fetchAndParse(ctx context.Context) (*geojson.FeatureCollection, error) {
	raw, err := l.fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse section geojson: %w", err)
	}
	Annotate(fc)
	return fc, nil
}

// Annotate sets every feature id to its section code so feature state can address it
func Annotate(fc *geojson.FeatureCollection) {
	for _, f := range fc.Features {
		if id := SectionID(f); id != "" {
			f.ID = id
		}
	}
}

// SectionID reads the section code of a polygon feature as a string
func SectionID(f *geojson.Feature) string {
	switch v := f.Properties[mapdata.SectionProperty].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}

var httpClient = &http.Client{Timeout: 20 * time.Second}

// DefaultMaxDocumentBytes caps a polygon document read by FetchDocument
const DefaultMaxDocumentBytes int64 = 64 << 20

// ErrDocumentTooLarge is returned when a document exceeds the read cap
var ErrDocumentTooLarge = errors.New("document too large")

// FetchDocument reads source from disk, or over HTTP when it is a URL,
// up to DefaultMaxDocumentBytes
func FetchDocument(ctx context.Context, source string) ([]byte, error) {
	return NewFetcher(DefaultMaxDocumentBytes)(ctx, source)
}

// NewFetcher returns a FetchFunc that rejects documents over maxBytes;
// maxBytes <= 0 uses DefaultMaxDocumentBytes
func NewFetcher(maxBytes int64) FetchFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return func(ctx context.Context, source string) ([]byte, error) {
		if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
			f, err := os.Open(source)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", source, err)
			}
			defer f.Close()
			return readCapped(f, source, maxBytes)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for %s: %w", source, err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch %s: status %d", source, resp.StatusCode)
		}
		return readCapped(resp.Body, source, maxBytes)
	}
}

func readCapped(r io.Reader, source string, maxBytes int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentTooLarge, source, maxBytes)
	}
	return b, nil
}
