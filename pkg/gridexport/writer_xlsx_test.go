package gridexport

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBuffer(t *testing.T) *Buffer {
	t.Helper()
	grid := Grid{Name: "staff", Title: "Staff", Columns: []Column{
		{Field: "dept", Group: true},
		{Field: "name", FooterAgg: "count"},
	}}
	rows := []Row{
		{"dept": "Research", "name": "Ada"},
		{"dept": "Research", "name": "Grace"},
		{"dept": "Sales", "name": "Gwen"},
	}
	st := plainSettings()
	st.ShowFooter = true
	st.ContentBefore = []Banner{{Value: "Report"}}

	buf, err := Render(context.Background(), grid, grid.Columns, mustProvider(t, rows), st)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf
}

func writeWorkbook(t *testing.T, writerName string, buf *Buffer) *excelize.File {
	t.Helper()
	w, err := lookupWriter(writerName)
	if err != nil {
		t.Fatalf("lookupWriter(%s) failed: %v", writerName, err)
	}
	var out bytes.Buffer
	if err := w.Write(context.Background(), buf, Profile{}, &out); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open generated excel: %v", err)
	}
	return f
}

func verifyWorkbook(t *testing.T, f *excelize.File) {
	t.Helper()
	rows, err := f.GetRows("Staff")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	// Expected Rows:
	// Row 1: Report (banner, merged across both columns)
	// Row 2: Dept, Name (header)
	// Row 3: Research, Ada
	// Row 4: (blank, merged into row 3), Grace
	// Row 5: Sales, Gwen
	// Row 6: (blank), 3 (footer count)
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Report" {
		t.Errorf("Banner incorrect, got %v", rows[0])
	}
	if rows[1][0] != "Dept" || rows[1][1] != "Name" {
		t.Errorf("Header incorrect, got %v", rows[1])
	}
	if rows[2][0] != "Research" || rows[2][1] != "Ada" || rows[4][1] != "Gwen" {
		t.Errorf("Data seemingly incorrect: %v", rows)
	}
	if rows[3][0] != "" {
		t.Errorf("Merged-away group cell should be blank, got %q", rows[3][0])
	}
	if rows[5][1] != "3" {
		t.Errorf("Footer count incorrect, got %v", rows[5])
	}

	merges, err := f.GetMergeCells("Staff")
	if err != nil {
		t.Fatalf("GetMergeCells failed: %v", err)
	}
	got := make([]string, len(merges))
	for i, m := range merges {
		got[i] = m.GetStartAxis() + ":" + m.GetEndAxis()
	}
	want := []string{"A1:B1", "A3:A4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merged ranges %v, want %v", got, want)
	}
}

func TestXlsxWriter(t *testing.T) {
	f := writeWorkbook(t, "xlsx", workbookBuffer(t))
	defer f.Close()
	verifyWorkbook(t, f)
}

func TestXlsxStreamWriter(t *testing.T) {
	f := writeWorkbook(t, "xlsx-stream", workbookBuffer(t))
	defer f.Close()
	verifyWorkbook(t, f)
}

func TestXlsxSheetLimit(t *testing.T) {
	buf := &Buffer{SheetName: "big", Rows: make([]BufferRow, excelSheetMaxRows+1)}

	for _, name := range []string{"xlsx", "xlsx-stream"} {
		w, _ := lookupWriter(name)
		var out bytes.Buffer
		err := w.Write(context.Background(), buf, Profile{}, &out)
		if !errors.Is(err, ErrSheetLimit) {
			t.Errorf("%s: expected ErrSheetLimit, got %v", name, err)
		}
		if out.Len() != 0 {
			t.Errorf("%s: nothing may be written past the limit", name)
		}
	}
}
