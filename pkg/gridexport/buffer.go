package gridexport

import (
	"fmt"
	"strconv"
	"time"
)

// RowKind distinguishes the buffer's row bands.
type RowKind int

const (
	RowBanner RowKind = iota
	RowHeader
	RowData
	RowFooter
)

// Cell is one value of the buffer plus the style it will be written with.
type Cell struct {
	Value interface{}
	Type  CellType
	Style *StyleTemplate
}

// BufferRow is one row of the buffer.
type BufferRow struct {
	Kind  RowKind
	Cells []Cell
}

// MergeRange is an inclusive rectangle of merged cells, zero-based.
type MergeRange struct {
	FirstRow, FirstCol int
	LastRow, LastCol   int
}

// RenderStats summarizes one render pass.
type RenderStats struct {
	DataRows  int
	TotalRows int
	Columns   int
	Cells     int
}

// Buffer is the in-memory grid handed to a writer. It is built once per
// export, owned by that export alone, and discarded after serialization.
type Buffer struct {
	SheetName  string
	Rows       []BufferRow
	Merges     []MergeRange
	ColWidths  []float64
	Box        *BorderTemplate
	DateFormat string
	Stats      RenderStats
}

func newBuffer(columns int) *Buffer {
	return &Buffer{
		ColWidths:  make([]float64, columns),
		DateFormat: defaultDateFormat,
	}
}

func (b *Buffer) appendRow(kind RowKind, cells []Cell) {
	b.Rows = append(b.Rows, BufferRow{Kind: kind, Cells: cells})
	b.Stats.TotalRows++
	b.Stats.Cells += len(cells)
	if kind == RowData {
		b.Stats.DataRows++
	}
}

// HeaderRow returns the header band, or nil when the buffer has none.
func (b *Buffer) HeaderRow() *BufferRow {
	for i := range b.Rows {
		if b.Rows[i].Kind == RowHeader {
			return &b.Rows[i]
		}
	}
	return nil
}

// DataRows returns the data band in order.
func (b *Buffer) DataRows() []BufferRow {
	out := make([]BufferRow, 0, b.Stats.DataRows)
	for _, r := range b.Rows {
		if r.Kind == RowData {
			out = append(out, r)
		}
	}
	return out
}

// CellString renders a cell value for text-based writers.
func (b *Buffer) CellString(c Cell) string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(b.DateFormat)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coveredCells maps every merged-away position (not the top-left anchor) so
// writers that cannot merge can skip or blank them.
func (b *Buffer) coveredCells() map[[2]int]bool {
	covered := make(map[[2]int]bool)
	for _, m := range b.Merges {
		for r := m.FirstRow; r <= m.LastRow; r++ {
			for c := m.FirstCol; c <= m.LastCol; c++ {
				if r == m.FirstRow && c == m.FirstCol {
					continue
				}
				covered[[2]int{r, c}] = true
			}
		}
	}
	return covered
}

// mergeAt returns the merge range anchored at row/col, if any.
func (b *Buffer) mergeAt(row, col int) (MergeRange, bool) {
	for _, m := range b.Merges {
		if m.FirstRow == row && m.FirstCol == col {
			return m, true
		}
	}
	return MergeRange{}, false
}
