package gridexport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

func init() { mustRegister(&xlsxStreamWriter{}) }

// xlsxStreamWriter produces the same workbooks as the in-memory writer but
// through the excelize stream API, which keeps memory flat for very tall
// sheets. Rows must be emitted in ascending order, which the buffer already
// guarantees.
type xlsxStreamWriter struct{}

var _ Writer = (*xlsxStreamWriter)(nil)

func (*xlsxStreamWriter) Name() string { return "xlsx-stream" }

func (*xlsxStreamWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	if len(buf.Rows) > excelSheetMaxRows {
		return fmt.Errorf("%d rows exceed the sheet capacity of %d: %w",
			len(buf.Rows), excelSheetMaxRows, ErrSheetLimit)
	}

	b := newXlsxBook(buf.SheetName)
	b.box = buf.Box
	defer b.f.Close()

	sw, err := b.f.NewStreamWriter(b.sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	// Column widths must be set before the first row reaches the stream.
	for i, cw := range buf.ColWidths {
		if cw <= 0 {
			continue
		}
		if err := sw.SetColWidth(i+1, i+1, float64(cw)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	lastRow, lastCol := len(buf.Rows)-1, len(buf.ColWidths)-1
	for r, row := range buf.Rows {
		if r%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cells := make([]interface{}, len(row.Cells))
		for c, cell := range row.Cells {
			styleID, err := b.styleID(cellStyle(buf, cell), boxEdges(buf.Box, r, c, lastRow, lastCol))
			if err != nil {
				return fmt.Errorf("create style: %w", err)
			}
			cells[c] = toStreamCell(buf, cell, styleID)
		}
		anchor := b.cellAddr(1, r+1)
		if err := sw.SetRow(anchor, cells); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	for _, m := range buf.Merges {
		first := b.cellAddr(m.FirstCol+1, m.FirstRow+1)
		last := b.cellAddr(m.LastCol+1, m.LastRow+1)
		if err := sw.MergeCell(first, last); err != nil {
			return fmt.Errorf("merge %s:%s: %w", first, last, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush stream: %w", err)
	}
	if err := b.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toStreamCell(buf *Buffer, cell Cell, styleID int) excelize.Cell {
	out := excelize.Cell{StyleID: styleID}
	if cell.Value == nil {
		return out
	}
	switch cell.Type {
	case TypeString:
		out.Value = buf.CellString(cell)
	case TypeNumber:
		if fv, ok := toFloat(cell.Value); ok {
			out.Value = fv
		} else {
			out.Value = cell.Value
		}
	case TypeDate:
		if t, ok := cell.Value.(time.Time); ok {
			out.Value = t
		} else {
			out.Value = cell.Value
		}
	default:
		out.Value = cell.Value
	}
	return out
}
