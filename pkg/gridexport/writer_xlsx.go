package gridexport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// excelSheetMaxRows is the hard row capacity of one worksheet. Exceeding it
// fails the export rather than silently truncating.
const excelSheetMaxRows = 1048576

const defaultDateNumFmt = "yyyy-mm-dd"

func init() { mustRegister(&xlsxWriter{}) }

// xlsxWriter builds the workbook fully in memory, which keeps random access
// for merges and the box border. Use the streaming writer for very large
// exports.
type xlsxWriter struct{}

var _ Writer = (*xlsxWriter)(nil)

func (*xlsxWriter) Name() string { return "xlsx" }

func (*xlsxWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	if len(buf.Rows) > excelSheetMaxRows {
		return fmt.Errorf("%d rows exceed the sheet capacity of %d: %w",
			len(buf.Rows), excelSheetMaxRows, ErrSheetLimit)
	}

	b := newXlsxBook(buf.SheetName)
	b.box = buf.Box
	defer b.f.Close()

	for i, cw := range buf.ColWidths {
		if cw <= 0 {
			continue
		}
		name := b.colName(i + 1)
		if err := b.f.SetColWidth(b.sheet, name, name, cw); err != nil {
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
		for c, cell := range row.Cells {
			addr := b.cellAddr(c+1, r+1)
			if err := b.setCellValue(buf, addr, cell); err != nil {
				return err
			}
			styleID, err := b.styleID(cellStyle(buf, cell), boxEdges(buf.Box, r, c, lastRow, lastCol))
			if err != nil {
				return fmt.Errorf("create style: %w", err)
			}
			if styleID != 0 {
				if err := b.f.SetCellStyle(b.sheet, addr, addr, styleID); err != nil {
					return fmt.Errorf("set cell style: %w", err)
				}
			}
		}
	}

	for _, m := range buf.Merges {
		first := b.cellAddr(m.FirstCol+1, m.FirstRow+1)
		last := b.cellAddr(m.LastCol+1, m.LastRow+1)
		if err := b.f.MergeCell(b.sheet, first, last); err != nil {
			return fmt.Errorf("merge %s:%s: %w", first, last, err)
		}
	}

	if err := b.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellStyle returns the template to materialize for a cell, folding in the
// default date format for date-typed cells without an explicit one.
func cellStyle(buf *Buffer, cell Cell) *StyleTemplate {
	st := cell.Style
	if _, isDate := cell.Value.(time.Time); isDate || cell.Type == TypeDate {
		if st == nil || st.NumberFormat == "" {
			st = st.Merge(&StyleTemplate{NumberFormat: defaultDateNumFmt})
		}
	}
	return st
}

// boxEdges reports which sides of the surrounding box a cell touches, as a
// compact string usable in style cache keys.
func boxEdges(box *BorderTemplate, r, c, lastRow, lastCol int) string {
	if box == nil {
		return ""
	}
	var sb strings.Builder
	if r == 0 {
		sb.WriteByte('t')
	}
	if r == lastRow {
		sb.WriteByte('b')
	}
	if c == 0 {
		sb.WriteByte('l')
	}
	if c == lastCol {
		sb.WriteByte('r')
	}
	return sb.String()
}

// xlsxBook wraps an excelize file with the caches that keep repeated style
// and coordinate lookups cheap across large sheets.
type xlsxBook struct {
	f            *excelize.File
	sheet        string
	box          *BorderTemplate
	styleCache   map[string]int
	colNameCache map[int]string
}

func newXlsxBook(sheet string) *xlsxBook {
	f := excelize.NewFile()
	if sheet == "" {
		sheet = "Sheet1"
	} else {
		f.SetSheetName("Sheet1", sheet)
	}
	return &xlsxBook{
		f:            f,
		sheet:        sheet,
		styleCache:   make(map[string]int),
		colNameCache: make(map[int]string),
	}
}

func (b *xlsxBook) colName(col int) string {
	if name, ok := b.colNameCache[col]; ok {
		return name
	}
	name, _ := excelize.ColumnNumberToName(col)
	b.colNameCache[col] = name
	return name
}

func (b *xlsxBook) cellAddr(col, row int) string {
	return fmt.Sprintf("%s%d", b.colName(col), row)
}

func (b *xlsxBook) setCellValue(buf *Buffer, addr string, cell Cell) error {
	if cell.Value == nil {
		return nil
	}
	var err error
	switch cell.Type {
	case TypeString:
		err = b.f.SetCellStr(b.sheet, addr, buf.CellString(cell))
	case TypeNumber:
		if fv, ok := toFloat(cell.Value); ok {
			err = b.f.SetCellValue(b.sheet, addr, fv)
		} else {
			err = b.f.SetCellValue(b.sheet, addr, cell.Value)
		}
	case TypeBool:
		if bv, ok := cell.Value.(bool); ok {
			err = b.f.SetCellBool(b.sheet, addr, bv)
		} else {
			err = b.f.SetCellValue(b.sheet, addr, cell.Value)
		}
	default:
		err = b.f.SetCellValue(b.sheet, addr, cell.Value)
	}
	if err != nil {
		return fmt.Errorf("set cell %s: %w", addr, err)
	}
	return nil
}

// styleID materializes a style template plus box edges into a workbook style,
// caching by the template identity so each distinct style is created once.
func (b *xlsxBook) styleID(tmpl *StyleTemplate, edges string) (int, error) {
	if tmpl == nil && edges == "" {
		return 0, nil
	}
	key := tmpl.Key() + "#" + edges
	if id, ok := b.styleCache[key]; ok {
		return id, nil
	}

	style := &excelize.Style{}
	if tmpl != nil {
		if tmpl.Font != nil {
			style.Font = &excelize.Font{
				Bold:   tmpl.Font.Bold,
				Italic: tmpl.Font.Italic,
				Size:   tmpl.Font.Size,
				Color:  hexColor(tmpl.Font.Color),
			}
		}
		if tmpl.Fill != nil {
			style.Fill = excelize.Fill{
				Type:    "pattern",
				Color:   []string{hexColor(tmpl.Fill.Color)},
				Pattern: 1,
			}
		}
		if tmpl.Border != nil {
			for _, side := range []string{"top", "bottom", "left", "right"} {
				style.Border = append(style.Border, excelize.Border{
					Type:  side,
					Style: borderStyleID(tmpl.Border.Style),
					Color: hexColor(tmpl.Border.Color),
				})
			}
		}
		if tmpl.Alignment != nil || tmpl.WrapText {
			style.Alignment = &excelize.Alignment{WrapText: tmpl.WrapText}
			if tmpl.Alignment != nil {
				style.Alignment.Horizontal = tmpl.Alignment.Horizontal
				style.Alignment.Vertical = tmpl.Alignment.Vertical
			}
		}
		if tmpl.NumberFormat != "" {
			numFmt := tmpl.NumberFormat
			style.CustomNumFmt = &numFmt
		}
	}
	for _, e := range edges {
		side := map[rune]string{'t': "top", 'b': "bottom", 'l': "left", 'r': "right"}[e]
		style.Border = append(style.Border, excelize.Border{
			Type:  side,
			Style: borderStyleID(b.box.Style),
			Color: hexColor(b.box.Color),
		})
	}

	id, err := b.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	b.styleCache[key] = id
	return id, nil
}

func borderStyleID(name string) int {
	switch name {
	case "medium":
		return 2
	case "dashed":
		return 3
	case "dotted":
		return 4
	case "thick":
		return 5
	case "double":
		return 6
	default:
		return 1
	}
}
