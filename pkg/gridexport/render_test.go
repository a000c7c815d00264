package gridexport

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustProvider(t *testing.T, rows []Row) *SliceProvider {
	t.Helper()
	p, err := NewSliceProvider(rows)
	if err != nil {
		t.Fatalf("NewSliceProvider failed: %v", err)
	}
	return p
}

func plainSettings() Settings {
	st := DefaultSettings()
	st.ContentBefore = nil
	st.ContentAfter = nil
	return st
}

func TestRenderEmptyGrid(t *testing.T) {
	grid := Grid{Name: "empty", Columns: []Column{{Field: "a"}, {Field: "b"}}}
	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, nil), plainSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(buf.Rows) != 1 || buf.Rows[0].Kind != RowHeader {
		t.Fatalf("Expected a lone header row, got %d rows", len(buf.Rows))
	}
	if buf.Stats.DataRows != 0 || buf.Stats.TotalRows != 1 || buf.Stats.Columns != 2 {
		t.Errorf("Stats wrong: %+v", buf.Stats)
	}
	if buf.SheetName != "empty" {
		t.Errorf("Sheet name should fall back to the grid name, got %q", buf.SheetName)
	}
}

func TestRenderHeaderLabels(t *testing.T) {
	grid := Grid{Name: "g", Columns: []Column{
		{Field: "hire_date"},
		{Field: "salary", Label: "Annual Salary"},
	}}
	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, nil), plainSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	header := buf.HeaderRow()
	if header == nil {
		t.Fatal("No header row")
	}
	if header.Cells[0].Value != "Hire Date" {
		t.Errorf("Expected humanized label, got %v", header.Cells[0].Value)
	}
	if header.Cells[1].Value != "Annual Salary" {
		t.Errorf("Explicit label should win, got %v", header.Cells[1].Value)
	}
}

func TestRenderBatchingParity(t *testing.T) {
	// The first group run crosses the page boundary at row 3.
	rows := make([]Row, 7)
	for i := range rows {
		dept := "Development"
		if i >= 4 {
			dept = "Sales"
		}
		rows[i] = Row{"n": i, "dept": dept}
	}
	grid := Grid{Name: "batch", Columns: []Column{
		{Field: "n", Type: TypeNumber},
		{Field: "dept", Group: true},
	}}

	single := plainSettings()
	single.BatchSize = 0
	batched := plainSettings()
	batched.BatchSize = 3

	bufA, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), single)
	if err != nil {
		t.Fatalf("Render (single fetch) failed: %v", err)
	}
	bufB, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), batched)
	if err != nil {
		t.Fatalf("Render (batched) failed: %v", err)
	}

	// Paging must not drop, duplicate or reorder anything.
	if !reflect.DeepEqual(bufA.Rows, bufB.Rows) {
		t.Error("Rows differ between single fetch and batched fetch")
	}
	if !reflect.DeepEqual(bufA.Merges, bufB.Merges) {
		t.Errorf("Merges differ: %v vs %v", bufA.Merges, bufB.Merges)
	}
	if bufA.Stats != bufB.Stats {
		t.Errorf("Stats differ: %+v vs %+v", bufA.Stats, bufB.Stats)
	}
}

func TestRenderDeterminism(t *testing.T) {
	rows := []Row{
		{"dept": "A", "team": "x", "name": "n1"},
		{"dept": "A", "team": "x", "name": "n2"},
		{"dept": "A", "team": "y", "name": "n3"},
		{"dept": "B", "team": "y", "name": "n4"},
	}
	grid := Grid{Name: "det", Columns: []Column{
		{Field: "dept", Group: true},
		{Field: "team", Group: true},
		{Field: "name"},
	}}

	st := plainSettings()
	st.ShowFooter = true

	first, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
		if err != nil {
			t.Fatalf("Render run %d failed: %v", i, err)
		}
		if !reflect.DeepEqual(first.Rows, again.Rows) ||
			!reflect.DeepEqual(first.Merges, again.Merges) ||
			!reflect.DeepEqual(first.ColWidths, again.ColWidths) {
			t.Fatalf("Run %d produced a different buffer", i)
		}
	}
}

func TestRenderGrouping(t *testing.T) {
	rows := []Row{
		{"dept": "Research", "name": "n1"},
		{"dept": "Research", "name": "n2"},
		{"dept": "Sales", "name": "n3"},
	}
	grid := Grid{Name: "grp", Columns: []Column{
		{Field: "dept", Group: true},
		{Field: "name"},
	}}

	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), plainSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Header occupies row 0, the Research run spans data rows 1 and 2.
	want := MergeRange{FirstRow: 1, FirstCol: 0, LastRow: 2, LastCol: 0}
	if len(buf.Merges) != 1 || buf.Merges[0] != want {
		t.Fatalf("Expected merge %+v, got %v", want, buf.Merges)
	}
	if buf.Rows[2].Cells[0].Value != nil {
		t.Errorf("Repeated group value should be blanked, got %v", buf.Rows[2].Cells[0].Value)
	}
	anchor := buf.Rows[1].Cells[0]
	if anchor.Value != "Research" || anchor.Style == nil || anchor.Style.Fill == nil {
		t.Errorf("Anchor should keep its value and get the grouped style: %+v", anchor)
	}
	// A single-row run is not merged.
	if buf.Rows[3].Cells[0].Value != "Sales" {
		t.Errorf("Sales run of one should stay untouched, got %v", buf.Rows[3].Cells[0].Value)
	}
}

func TestRenderFooterAggregates(t *testing.T) {
	rows := []Row{
		{"name": "a", "v": 100},
		{"name": "b", "v": 200},
		{"name": "c", "v": 300},
	}
	grid := Grid{Name: "agg", Columns: []Column{
		{Field: "name", Footer: "Total"},
		{Field: "v", FooterAgg: "sum", Type: TypeNumber},
		{Field: "v", FooterAgg: "avg"},
		{Field: "v", FooterAgg: "count"},
		{Field: "v", FooterAgg: "min"},
		{Field: "v", FooterAgg: "max"},
	}}

	st := plainSettings()
	st.ShowFooter = true

	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	footer := buf.Rows[len(buf.Rows)-1]
	if footer.Kind != RowFooter {
		t.Fatalf("Last row should be the footer, got kind %d", footer.Kind)
	}
	if footer.Cells[0].Value != "Total" {
		t.Errorf("Static footer cell wrong: %v", footer.Cells[0].Value)
	}
	wantVals := []float64{600, 200, 3, 100, 300}
	for i, want := range wantVals {
		got, ok := footer.Cells[i+1].Value.(float64)
		if !ok || got != want {
			t.Errorf("Aggregate %d: expected %v, got %v", i+1, want, footer.Cells[i+1].Value)
		}
		if footer.Cells[i+1].Type != TypeNumber {
			t.Errorf("Aggregate %d should be typed as a number", i+1)
		}
	}
}

func TestRenderFooterRules(t *testing.T) {
	rows := []Row{{"v": 1}}
	withAgg := Grid{Name: "g", Columns: []Column{{Field: "v", FooterAgg: "sum"}}}
	noFooter := Grid{Name: "g", Columns: []Column{{Field: "v"}}}

	// ShowFooter off suppresses the row even when aggregates are declared.
	st := plainSettings()
	buf, err := Render(context.Background(), withAgg, withAgg.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Rows[len(buf.Rows)-1].Kind == RowFooter {
		t.Error("Footer rendered with ShowFooter off")
	}

	// ShowFooter on without any footer content renders none either.
	st.ShowFooter = true
	buf, err = Render(context.Background(), noFooter, noFooter.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Rows[len(buf.Rows)-1].Kind == RowFooter {
		t.Error("Footer rendered without footer columns")
	}
}

func TestRenderBanners(t *testing.T) {
	grid := Grid{Name: "ban", Columns: []Column{{Field: "a"}, {Field: "b"}}}
	st := plainSettings()
	st.ContentBefore = []Banner{{Value: "Quarterly Report"}}
	st.ContentAfter = []Banner{{Value: "Confidential"}}

	buf, err := Render(context.Background(), grid, grid.Columns,
		mustProvider(t, []Row{{"a": "1", "b": "2"}}), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	kinds := make([]RowKind, len(buf.Rows))
	for i, r := range buf.Rows {
		kinds[i] = r.Kind
	}
	want := []RowKind{RowBanner, RowHeader, RowData, RowBanner}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("Row kinds %v, want %v", kinds, want)
	}

	// Banners span the full column range and stay rectangular.
	if len(buf.Rows[0].Cells) != 2 || len(buf.Rows[3].Cells) != 2 {
		t.Error("Banner rows must be padded to the column span")
	}
	wantMerges := []MergeRange{
		{FirstRow: 0, FirstCol: 0, LastRow: 0, LastCol: 1},
		{FirstRow: 3, FirstCol: 0, LastRow: 3, LastCol: 1},
	}
	if !reflect.DeepEqual(buf.Merges, wantMerges) {
		t.Errorf("Merges %v, want %v", buf.Merges, wantMerges)
	}
}

func TestRenderHooks(t *testing.T) {
	grid := Grid{Name: "hooks", Columns: []Column{{Field: "a"}, {Field: "b"}}}

	var calls []string
	st := plainSettings()
	st.Hooks = Hooks{
		OnBufferCreate: func(*Buffer) { calls = append(calls, "buffer") },
		OnSheetCreate:  func(*Buffer) { calls = append(calls, "sheet") },
		OnHeaderCell:   func(*Cell, Column, int) { calls = append(calls, "header") },
		OnBodyCell: func(c *Cell, col Column, row, pos int) {
			calls = append(calls, "body")
			if col.Field == "b" {
				c.Value = "redacted"
			}
		},
		OnSheetComplete: func(*Buffer) { calls = append(calls, "complete") },
	}

	buf, err := Render(context.Background(), grid, grid.Columns,
		mustProvider(t, []Row{{"a": "1", "b": "2"}}), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := []string{"buffer", "sheet", "header", "header", "body", "body", "complete"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("Hook order %v, want %v", calls, want)
	}
	if buf.Rows[1].Cells[1].Value != "redacted" {
		t.Errorf("Body hook mutation lost: %v", buf.Rows[1].Cells[1].Value)
	}
}

func TestRenderExprColumn(t *testing.T) {
	grid := Grid{Name: "expr", Columns: []Column{
		{Key: "full_name", Expr: `first_name + " " + last_name`},
	}}
	buf, err := Render(context.Background(), grid, grid.Columns,
		mustProvider(t, []Row{{"first_name": "Ada", "last_name": "Lovelace"}}), plainSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Rows[1].Cells[0].Value != "Ada Lovelace" {
		t.Errorf("Expression value wrong: %v", buf.Rows[1].Cells[0].Value)
	}

	bad := Grid{Name: "expr", Columns: []Column{{Key: "x", Expr: `((`}}}
	_, err = Render(context.Background(), bad, bad.Columns, mustProvider(t, nil), plainSettings())
	if !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
}

func TestRenderStripHTML(t *testing.T) {
	rows := []Row{{"a": "<b>Hi</b> there"}}
	grid := Grid{Name: "strip", Columns: []Column{{Field: "a"}}}

	st := plainSettings()
	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Rows[1].Cells[0].Value != "Hi there" {
		t.Errorf("Markup should be stripped, got %v", buf.Rows[1].Cells[0].Value)
	}

	st.StripHTML = false
	buf, err = Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Rows[1].Cells[0].Value != "<b>Hi</b> there" {
		t.Errorf("Markup should be kept, got %v", buf.Rows[1].Cells[0].Value)
	}
}

func TestRenderColumnWidths(t *testing.T) {
	rows := []Row{{"short": "ab", "long": strings.Repeat("x", 100), "fixed": "whatever"}}
	grid := Grid{Name: "w", Columns: []Column{
		{Field: "short"},
		{Field: "long"},
		{Field: "fixed", Width: 14},
	}}

	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), plainSettings())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// "Short" header (5 runes) wins over the 2-rune value.
	if buf.ColWidths[0] != 7 {
		t.Errorf("Auto width should track the widest cell, got %v", buf.ColWidths[0])
	}
	if buf.ColWidths[1] != maxAutoWidth {
		t.Errorf("Auto width must cap at %d, got %v", maxAutoWidth, buf.ColWidths[1])
	}
	if buf.ColWidths[2] != 14 {
		t.Errorf("Fixed width must win, got %v", buf.ColWidths[2])
	}
}

type failingProvider struct{ calls int }

func (p *failingProvider) FetchRows(ctx context.Context, offset, limit int) ([]Row, error) {
	p.calls++
	if offset > 0 {
		return nil, errors.New("connection lost")
	}
	return []Row{{"a": "1"}}, nil
}

func (p *failingProvider) Close() error { return nil }

func TestRenderProviderError(t *testing.T) {
	grid := Grid{Name: "fail", Columns: []Column{{Field: "a"}}}
	st := plainSettings()
	st.BatchSize = 1

	_, err := Render(context.Background(), grid, grid.Columns, &failingProvider{}, st)
	if err == nil {
		t.Fatal("Expected an error from the failing provider")
	}
	if !strings.Contains(err.Error(), "offset 1") {
		t.Errorf("Error should name the failing offset: %v", err)
	}
}

func TestRenderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	grid := Grid{Name: "ctx", Columns: []Column{{Field: "a"}}}
	_, err := Render(ctx, grid, grid.Columns, mustProvider(t, []Row{{"a": "1"}}), plainSettings())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
