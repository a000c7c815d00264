package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/locvowork/grid_export_service/pkg/gridexport"
)

func peopleSource() Source {
	rows := []gridexport.Row{
		{"emp_no": 10001, "name": "Ada"},
		{"emp_no": 10002, "name": "Grace"},
	}
	return Source{
		Grid: gridexport.Grid{Name: "people", Title: "People", Columns: []gridexport.Column{
			{Field: "emp_no"},
			{Field: "name"},
		}},
		NewProvider: func(ctx context.Context) (gridexport.RowProvider, error) {
			return gridexport.NewSliceProvider(rows)
		},
	}
}

func newTestService(t *testing.T) ExportService {
	t.Helper()
	svc := NewExportService(gridexport.DefaultSettings(), nil)
	if err := svc.Register(peopleSource()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return svc
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Register(Source{Grid: gridexport.Grid{Name: ""}}); err == nil {
		t.Error("Expected an error for a missing grid name")
	}
	if err := svc.Register(Source{Grid: gridexport.Grid{Name: "bare"}}); err == nil {
		t.Error("Expected an error for a missing provider factory")
	}
	if err := svc.Register(peopleSource()); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("Duplicate registration: got %v", err)
	}

	other := peopleSource()
	other.Grid.Name = "managers"
	if err := svc.Register(other); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	grids := svc.Grids()
	if len(grids) != 2 || grids[0].Name != "people" || grids[1].Name != "managers" {
		t.Errorf("Grids out of registration order: %+v", grids)
	}
}

func TestUnknownGrid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Export(ctx, "ghost", gridexport.Request{Flagged: true, Format: gridexport.FormatCSV}); !errors.Is(err, ErrUnknownGrid) {
		t.Errorf("Export: expected ErrUnknownGrid, got %v", err)
	}
	if err := svc.Menu(&bytes.Buffer{}, "ghost", "/x"); !errors.Is(err, ErrUnknownGrid) {
		t.Errorf("Menu: expected ErrUnknownGrid, got %v", err)
	}
	if _, err := svc.Params("ghost"); !errors.Is(err, ErrUnknownGrid) {
		t.Errorf("Params: expected ErrUnknownGrid, got %v", err)
	}
}

func TestExportStreamsPayload(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Export(context.Background(), "people",
		gridexport.Request{Flagged: true, Format: gridexport.FormatCSV})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Filename != "grid-export.csv" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if len(res.Data) == 0 || res.Saved != nil {
		t.Errorf("Expected a streamed payload, got %+v", res)
	}
	if res.Stats.DataRows != 2 {
		t.Errorf("DataRows = %d, want 2", res.Stats.DataRows)
	}
}

func TestPerGridSettings(t *testing.T) {
	svc := newTestService(t)

	st := gridexport.DefaultSettings()
	st.Filename = "people"
	st.Params.Flag = "go"
	custom := peopleSource()
	custom.Grid.Name = "custom"
	custom.Settings = &st
	if err := svc.Register(custom); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	params, err := svc.Params("custom")
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if params.Flag != "go" {
		t.Errorf("Flag = %q, want the per-grid name", params.Flag)
	}

	res, err := svc.Export(context.Background(), "custom",
		gridexport.Request{Flagged: true, Format: gridexport.FormatCSV})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Filename != "people.csv" {
		t.Errorf("Filename = %q, want people.csv", res.Filename)
	}
}

func TestMenuFragment(t *testing.T) {
	svc := newTestService(t)

	var out bytes.Buffer
	if err := svc.Menu(&out, "people", "/api/v1/grids/people/export"); err != nil {
		t.Fatalf("Menu failed: %v", err)
	}
	html := out.String()
	if !strings.Contains(html, `action="/api/v1/grids/people/export"`) {
		t.Errorf("Menu missing action:\n%s", html)
	}
	if !strings.Contains(html, `name="export_type"`) {
		t.Errorf("Menu missing format buttons:\n%s", html)
	}
}

func TestHistoryDisabled(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.History(context.Background(), 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
}

func TestExportBundleAllFormats(t *testing.T) {
	svc := newTestService(t)

	data, err := svc.ExportBundle(context.Background(), "people", nil)
	if err != nil {
		t.Fatalf("ExportBundle failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Bundle is not a zip: %v", err)
	}
	got := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		got[f.Name] = true
		if f.UncompressedSize64 == 0 {
			t.Errorf("Member %s is empty", f.Name)
		}
	}
	want := []string{
		"grid-export.html", "grid-export.csv", "grid-export.txt",
		"grid-export.md", "grid-export.pdf", "grid-export.xls", "grid-export.xlsx",
	}
	if len(got) != len(want) {
		t.Errorf("Bundle has %d members, want %d: %v", len(got), len(want), got)
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("Bundle missing %s", name)
		}
	}
}

func TestExportBundleSubset(t *testing.T) {
	svc := newTestService(t)

	data, err := svc.ExportBundle(context.Background(), "people", []string{"Csv", "Markdown"})
	if err != nil {
		t.Fatalf("ExportBundle failed: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Bundle is not a zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("Expected 2 members, got %d", len(zr.File))
	}

	if _, err := svc.ExportBundle(context.Background(), "people", []string{"Nope"}); !errors.Is(err, gridexport.ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

type brokenRows struct{}

func (brokenRows) FetchRows(ctx context.Context, offset, limit int) ([]gridexport.Row, error) {
	return nil, errors.New("backend unavailable")
}

func (brokenRows) Close() error { return nil }

func TestExportBundleProviderFailure(t *testing.T) {
	svc := newTestService(t)
	flaky := peopleSource()
	flaky.Grid.Name = "flaky"
	flaky.NewProvider = func(ctx context.Context) (gridexport.RowProvider, error) {
		return brokenRows{}, nil
	}
	if err := svc.Register(flaky); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	data, err := svc.ExportBundle(context.Background(), "flaky", []string{"Csv"})
	if err == nil {
		t.Fatal("Expected the bundle to fail")
	}
	if data != nil {
		t.Error("A failed bundle must not return partial bytes")
	}
}
