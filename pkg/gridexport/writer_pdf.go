package gridexport

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

func init() { mustRegister(&pdfWriter{}) }

// pdfWriter lays the buffer out as a bordered table over A4 pages. Column
// widths are distributed proportionally to the tracked content widths and
// the header row is repeated after every page break.
//
// Profile options: "orientation" (P or L), "font" (core font name),
// "font_size" (points).
type pdfWriter struct{}

var _ Writer = (*pdfWriter)(nil)

func (*pdfWriter) Name() string { return "pdf" }

func (*pdfWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	orientation := profile.optionString("orientation", "P")
	font := profile.optionString("font", "Helvetica")
	fontSize := profile.optionFloat("font_size", 9)
	rowH := fontSize * 0.7

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(buf.SheetName, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if buf.Box != nil && buf.Box.Color != "" {
		r, g, b := rgbColor(buf.Box.Color)
		pdf.SetDrawColor(r, g, b)
	}
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	usable := pageW - 20
	bottom := pageH - 10
	widths := pdfColWidths(buf, usable)

	drawCell := func(cell Cell, width float64, banner bool) {
		style := ""
		fill := false
		align := "L"
		if cell.Type == TypeNumber {
			align = "R"
		}
		pdf.SetTextColor(0, 0, 0)
		if st := cell.Style; st != nil {
			if st.Font != nil {
				if st.Font.Bold {
					style += "B"
				}
				if st.Font.Italic {
					style += "I"
				}
				if st.Font.Color != "" {
					r, g, b := rgbColor(st.Font.Color)
					pdf.SetTextColor(r, g, b)
				}
			}
			if st.Fill != nil && st.Fill.Color != "" {
				r, g, b := rgbColor(st.Fill.Color)
				pdf.SetFillColor(r, g, b)
				fill = true
			}
			if st.Alignment != nil {
				switch st.Alignment.Horizontal {
				case "center":
					align = "C"
				case "right":
					align = "R"
				case "left":
					align = "L"
				}
			}
		}
		border := "1"
		if banner {
			border = "0"
			if buf.Box != nil {
				border = "1"
			}
		}
		size := fontSize
		if banner {
			size = fontSize + 2
		}
		pdf.SetFont(font, style, size)
		pdf.CellFormat(width, rowH, tr(buf.CellString(cell)), border, 0, align, fill, 0, "")
	}

	drawRow := func(row BufferRow) {
		if row.Kind == RowBanner {
			var anchor Cell
			if len(row.Cells) > 0 {
				anchor = row.Cells[0]
			}
			drawCell(anchor, usable, true)
			pdf.Ln(rowH)
			return
		}
		for i, cell := range row.Cells {
			width := usable / float64(len(row.Cells))
			if i < len(widths) {
				width = widths[i]
			}
			drawCell(cell, width, false)
		}
		pdf.Ln(rowH)
	}

	var header *BufferRow
	for i := range buf.Rows {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := buf.Rows[i]
		if pdf.GetY()+rowH > bottom {
			pdf.AddPage()
			if header != nil && row.Kind == RowData {
				drawRow(*header)
			}
		}
		if row.Kind == RowHeader {
			h := row
			header = &h
		}
		drawRow(row)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// pdfColWidths spreads the usable page width proportionally to the tracked
// character widths.
func pdfColWidths(buf *Buffer, usable float64) []float64 {
	total := 0.0
	for _, cw := range buf.ColWidths {
		total += cw
	}
	widths := make([]float64, len(buf.ColWidths))
	for i, cw := range buf.ColWidths {
		if total == 0 {
			widths[i] = usable / float64(len(buf.ColWidths))
			continue
		}
		widths[i] = usable * cw / total
	}
	return widths
}
