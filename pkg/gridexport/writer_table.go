package gridexport

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func init() {
	mustRegister(&tableWriter{})
	mustRegister(&markdownWriter{})
}

// tableWriter serializes the buffer as a box-drawn plain-text table.
// Banner rows are emitted as plain lines around the table since text
// tables have no spanned cells.
type tableWriter struct{}

var _ Writer = (*tableWriter)(nil)

func (*tableWriter) Name() string { return "table" }

func (*tableWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	t, before, after := buildTable(buf)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.Style().Options.DrawBorder = buf.Box != nil
	return flushTable(w, t.Render(), before, after)
}

// markdownWriter serializes the buffer as a Markdown table with banners as
// bold paragraphs.
type markdownWriter struct{}

var _ Writer = (*markdownWriter)(nil)

func (*markdownWriter) Name() string { return "markdown" }

func (*markdownWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	t, before, after := buildTable(buf)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	for i, b := range before {
		before[i] = "**" + b + "**"
	}
	for i, b := range after {
		after[i] = "**" + b + "**"
	}
	return flushTable(w, t.RenderMarkdown(), before, after)
}

// buildTable splits the buffer into a go-pretty table plus the banner lines
// preceding and following it.
func buildTable(buf *Buffer) (table.Writer, []string, []string) {
	t := table.NewWriter()
	var before, after []string
	seenData := false
	for _, row := range buf.Rows {
		switch row.Kind {
		case RowBanner:
			line := ""
			if len(row.Cells) > 0 {
				line = buf.CellString(row.Cells[0])
			}
			if seenData {
				after = append(after, line)
			} else {
				before = append(before, line)
			}
		case RowHeader:
			t.AppendHeader(toPrettyRow(buf, row))
			seenData = true
		case RowFooter:
			t.AppendFooter(toPrettyRow(buf, row))
		default:
			t.AppendRow(toPrettyRow(buf, row))
			seenData = true
		}
	}
	return t, before, after
}

func toPrettyRow(buf *Buffer, row BufferRow) table.Row {
	out := make(table.Row, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = buf.CellString(c)
	}
	return out
}

func flushTable(w io.Writer, rendered string, before, after []string) error {
	for _, line := range before {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(before) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, rendered); err != nil {
		return err
	}
	if len(after) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	for _, line := range after {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
