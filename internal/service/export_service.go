package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/locvowork/grid_export_service/internal/history"
	"github.com/locvowork/grid_export_service/internal/logger"
	"github.com/locvowork/grid_export_service/pkg/dataflow"
	"github.com/locvowork/grid_export_service/pkg/gridexport"
)

// ErrUnknownGrid marks requests addressing a grid that was never registered.
var ErrUnknownGrid = errors.New("unknown grid")

// ErrHistoryDisabled is returned when no audit store is configured.
var ErrHistoryDisabled = errors.New("export history is not configured")

const bundleWorkers = 3

// Source couples a grid schema with the factory for its row provider.
// Settings, when set, replace the service defaults for this grid.
type Source struct {
	Grid        gridexport.Grid
	Settings    *gridexport.Settings
	NewProvider func(ctx context.Context) (gridexport.RowProvider, error)
}

type ExportService interface {
	Register(src Source) error
	Grids() []gridexport.Grid
	Params(name string) (gridexport.ParamNames, error)
	Menu(w io.Writer, name, action string) error
	Export(ctx context.Context, name string, req gridexport.Request) (*gridexport.Result, error)
	ExportBundle(ctx context.Context, name string, formats []string) ([]byte, error)
	History(ctx context.Context, limit int) ([]history.Record, error)
}

type exportService struct {
	mu       sync.RWMutex
	sources  map[string]Source
	order    []string
	defaults gridexport.Settings
	history  *history.Store
}

// NewExportService builds the grid registry. hist may be nil, which turns
// audit recording off.
func NewExportService(defaults gridexport.Settings, hist *history.Store) ExportService {
	return &exportService{
		sources:  make(map[string]Source),
		defaults: defaults,
		history:  hist,
	}
}

func (s *exportService) Register(src Source) error {
	name := src.Grid.Name
	if name == "" {
		return errors.New("grid name is required")
	}
	if src.NewProvider == nil {
		return fmt.Errorf("grid %q has no provider factory", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sources[name]; dup {
		return fmt.Errorf("grid %q already registered", name)
	}
	s.sources[name] = src
	s.order = append(s.order, name)
	return nil
}

func (s *exportService) Grids() []gridexport.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]gridexport.Grid, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.sources[name].Grid)
	}
	return out
}

func (s *exportService) source(name string) (Source, gridexport.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[name]
	if !ok {
		return Source{}, gridexport.Settings{}, fmt.Errorf("%w: %q", ErrUnknownGrid, name)
	}
	st := s.defaults
	if src.Settings != nil {
		st = *src.Settings
	}
	return src, st, nil
}

// Params exposes the form field names of one grid so callers can parse
// incoming requests with the same names the menu fragment posts.
func (s *exportService) Params(name string) (gridexport.ParamNames, error) {
	_, st, err := s.source(name)
	if err != nil {
		return gridexport.ParamNames{}, err
	}
	return st.Params, nil
}

func (s *exportService) Menu(w io.Writer, name, action string) error {
	src, st, err := s.source(name)
	if err != nil {
		return err
	}
	set, err := gridexport.ResolveFormats(st.Overrides)
	if err != nil {
		return err
	}
	return gridexport.RenderMenu(w, src.Grid, set, st, action)
}

func (s *exportService) Export(ctx context.Context, name string, req gridexport.Request) (*gridexport.Result, error) {
	src, st, err := s.source(name)
	if err != nil {
		return nil, err
	}
	provider, err := src.NewProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("open provider for %s: %w", name, err)
	}
	result, err := gridexport.Export(ctx, src.Grid, provider, st, req)
	if err != nil {
		return nil, err
	}
	if len(result.Dropped) > 0 {
		logger.DebugLog(ctx, "export %s ignored unknown or excluded columns: %v", name, result.Dropped)
	}
	s.record(ctx, name, result)
	return result, nil
}

// ExportBundle renders the grid once per requested format across a small
// worker pool and zips the results. An empty format list means every
// enabled format. Any member failing fails the whole bundle.
func (s *exportService) ExportBundle(ctx context.Context, name string, formats []string) ([]byte, error) {
	src, st, err := s.source(name)
	if err != nil {
		return nil, err
	}
	// Bundle members stay in memory until zipped.
	st.Stream = true

	set, err := gridexport.ResolveFormats(st.Overrides)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		for _, p := range set.Profiles() {
			formats = append(formats, p.Format)
		}
	} else {
		// Reject unknown or disabled formats before any rendering starts.
		for _, f := range formats {
			if _, err := set.Get(f); err != nil {
				return nil, err
			}
		}
	}

	items := make([]interface{}, len(formats))
	for i, f := range formats {
		items[i] = f
	}

	var errMu sync.Mutex
	var renderErr error

	results := dataflow.Map(ctx, dataflow.From(ctx, items...),
		func(msg interface{}) (interface{}, error) {
			format := msg.(string)
			provider, err := src.NewProvider(ctx)
			if err != nil {
				return nil, fmt.Errorf("open provider for %s: %w", name, err)
			}
			res, err := gridexport.Export(ctx, src.Grid, provider, st,
				gridexport.Request{Flagged: true, Format: format})
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", format, err)
			}
			return res, nil
		},
		dataflow.WithWorkers(bundleWorkers),
		dataflow.WithErrorHandler(func(err error) bool {
			errMu.Lock()
			if renderErr == nil {
				renderErr = err
			}
			errMu.Unlock()
			// Keep draining so the pipeline shuts down cleanly.
			return true
		}))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	err = dataflow.ForEach(ctx, results, func(msg interface{}) error {
		res := msg.(*gridexport.Result)
		if res.Vetoed {
			return nil
		}
		f, err := zw.Create(res.Filename)
		if err != nil {
			return err
		}
		if _, err := f.Write(res.Data); err != nil {
			return err
		}
		s.record(ctx, name, res)
		return nil
	})
	if err != nil {
		return nil, err
	}

	errMu.Lock()
	err = renderErr
	errMu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *exportService) History(ctx context.Context, limit int) ([]history.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// record persists an audit entry; failures are logged, never surfaced, so
// a flaky audit store cannot fail a finished export.
func (s *exportService) record(ctx context.Context, grid string, res *gridexport.Result) {
	if s.history == nil {
		return
	}
	rec := &history.Record{
		Grid:     grid,
		Format:   res.Format,
		Filename: res.Filename,
		Rows:     res.Stats.DataRows,
		Bytes:    int64(len(res.Data)),
		Vetoed:   res.Vetoed,
		Duration: res.Duration,
	}
	if res.Saved != nil {
		rec.Bytes = res.Saved.Size
	}
	if err := s.history.Save(ctx, rec); err != nil {
		logger.WarnLog(ctx, "record export history: %v", err)
	}
}
