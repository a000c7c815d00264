package gridexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM is prepended when a profile sets the "bom" option so spreadsheet
// applications pick up the encoding of delimited files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func init() { mustRegister(&csvWriter{}) }

// csvWriter serializes the buffer as delimiter-separated values. The
// delimiter comes from the profile, so the same writer backs both the comma
// and the tab flavored formats.
type csvWriter struct{}

var _ Writer = (*csvWriter)(nil)

func (*csvWriter) Name() string { return "csv" }

func (*csvWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	if profile.optionBool("bom", false) {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if d := []rune(profile.Delimiter); len(d) > 0 {
		cw.Comma = d[0]
	}
	record := make([]string, 0, len(buf.ColWidths))
	for _, row := range buf.Rows {
		record = record[:0]
		for _, c := range row.Cells {
			record = append(record, buf.CellString(c))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
