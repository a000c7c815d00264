package gridexport

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strings"
)

func init() { mustRegister(&htmlWriter{}) }

// htmlWriter serializes the buffer as a standalone HTML document. Cell
// styles are deduplicated into CSS classes keyed by the template identity,
// merges become rowspan/colspan attributes.
type htmlWriter struct{}

var _ Writer = (*htmlWriter)(nil)

func (*htmlWriter) Name() string { return "html" }

func (*htmlWriter) Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	covered := buf.coveredCells()
	classes, order := collectClasses(buf)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n",
		html.EscapeString(buf.SheetName))
	bw.WriteString("<style>\n")
	bw.WriteString("table{border-collapse:collapse;font-family:sans-serif;font-size:10pt}\n")
	bw.WriteString("th,td{border:1px solid #E0E0E0;padding:4px 8px}\n")
	if buf.Box != nil {
		fmt.Fprintf(bw, "table{border:%s}\n", cssBorder(buf.Box))
	}
	for _, key := range order {
		fmt.Fprintf(bw, ".%s{%s}\n", classes[key].name, classes[key].rules)
	}
	bw.WriteString("</style>\n</head>\n<body>\n<table>\n")

	if len(buf.ColWidths) > 0 {
		bw.WriteString("<colgroup>\n")
		for _, cw := range buf.ColWidths {
			fmt.Fprintf(bw, "<col style=\"min-width:%.0fch\">\n", cw)
		}
		bw.WriteString("</colgroup>\n")
	}

	for r, row := range buf.Rows {
		bw.WriteString("<tr>")
		tag := "td"
		if row.Kind == RowHeader {
			tag = "th"
		}
		for c, cell := range row.Cells {
			if covered[[2]int{r, c}] {
				continue
			}
			var attrs strings.Builder
			if m, ok := buf.mergeAt(r, c); ok {
				if span := m.LastCol - m.FirstCol + 1; span > 1 {
					fmt.Fprintf(&attrs, " colspan=\"%d\"", span)
				}
				if span := m.LastRow - m.FirstRow + 1; span > 1 {
					fmt.Fprintf(&attrs, " rowspan=\"%d\"", span)
				}
			}
			if key := cell.Style.Key(); key != "" {
				fmt.Fprintf(&attrs, " class=\"%s\"", classes[key].name)
			}
			fmt.Fprintf(bw, "<%s%s>%s</%s>", tag, attrs.String(),
				html.EscapeString(buf.CellString(cell)), tag)
		}
		bw.WriteString("</tr>\n")
	}

	bw.WriteString("</table>\n</body>\n</html>\n")
	return bw.Flush()
}

type cssClass struct {
	name  string
	rules string
}

// collectClasses assigns a class per distinct style in first-seen order so
// repeated exports of the same buffer produce identical documents.
func collectClasses(buf *Buffer) (map[string]cssClass, []string) {
	classes := make(map[string]cssClass)
	var order []string
	for _, row := range buf.Rows {
		for _, cell := range row.Cells {
			key := cell.Style.Key()
			if key == "" {
				continue
			}
			if _, seen := classes[key]; seen {
				continue
			}
			classes[key] = cssClass{
				name:  fmt.Sprintf("s%d", len(order)),
				rules: cssRules(cell.Style),
			}
			order = append(order, key)
		}
	}
	return classes, order
}

func cssRules(st *StyleTemplate) string {
	var sb strings.Builder
	if st.Font != nil {
		if st.Font.Bold {
			sb.WriteString("font-weight:bold;")
		}
		if st.Font.Italic {
			sb.WriteString("font-style:italic;")
		}
		if st.Font.Size > 0 {
			fmt.Fprintf(&sb, "font-size:%gpt;", st.Font.Size)
		}
		if st.Font.Color != "" {
			fmt.Fprintf(&sb, "color:#%s;", hexColor(st.Font.Color))
		}
	}
	if st.Fill != nil && st.Fill.Color != "" {
		fmt.Fprintf(&sb, "background-color:#%s;", hexColor(st.Fill.Color))
	}
	if st.Border != nil {
		fmt.Fprintf(&sb, "border:%s;", cssBorder(st.Border))
	}
	if st.Alignment != nil {
		if st.Alignment.Horizontal != "" {
			fmt.Fprintf(&sb, "text-align:%s;", st.Alignment.Horizontal)
		}
		if st.Alignment.Vertical != "" {
			v := st.Alignment.Vertical
			if v == "center" {
				v = "middle"
			}
			fmt.Fprintf(&sb, "vertical-align:%s;", v)
		}
	}
	if st.WrapText {
		sb.WriteString("white-space:pre-wrap;")
	}
	return strings.TrimSuffix(sb.String(), ";")
}

func cssBorder(b *BorderTemplate) string {
	width, line := "1px", "solid"
	switch b.Style {
	case "medium":
		width = "2px"
	case "thick":
		width = "3px"
	case "dashed":
		line = "dashed"
	case "dotted":
		line = "dotted"
	case "double":
		width, line = "3px", "double"
	}
	color := b.Color
	if color == "" {
		color = "000000"
	}
	return fmt.Sprintf("%s %s #%s", width, line, hexColor(color))
}
