package gridexport

import (
	"fmt"
	"strconv"
	"strings"
)

// StyleTemplate describes the appearance of one region of cells. Nil
// sub-templates leave the corresponding aspect unset so templates can be
// layered with Merge.
type StyleTemplate struct {
	Font         *FontTemplate      `yaml:"font"`
	Fill         *FillTemplate      `yaml:"fill"`
	Border       *BorderTemplate    `yaml:"border"`
	Alignment    *AlignmentTemplate `yaml:"alignment"`
	NumberFormat string             `yaml:"number_format"`
	WrapText     bool               `yaml:"wrap_text"`
}

type FontTemplate struct {
	Bold   bool    `yaml:"bold"`
	Italic bool    `yaml:"italic"`
	Size   float64 `yaml:"size"`
	Color  string  `yaml:"color"` // hex, with or without leading '#'
}

type FillTemplate struct {
	Color string `yaml:"color"`
}

// BorderTemplate describes one border line. Style is one of
// thin, medium, thick, dashed, dotted, double.
type BorderTemplate struct {
	Style string `yaml:"style"`
	Color string `yaml:"color"`
}

type AlignmentTemplate struct {
	Horizontal string `yaml:"horizontal"` // left, center, right
	Vertical   string `yaml:"vertical"`   // top, center, bottom
}

// Merge returns s completed with the sub-templates of fallback where s has
// none. s wins on conflicts; sub-templates are taken whole.
func (s *StyleTemplate) Merge(fallback *StyleTemplate) *StyleTemplate {
	if s == nil {
		if fallback == nil {
			return nil
		}
		out := *fallback
		return &out
	}
	out := *s
	if fallback == nil {
		return &out
	}
	if out.Font == nil {
		out.Font = fallback.Font
	}
	if out.Fill == nil {
		out.Fill = fallback.Fill
	}
	if out.Border == nil {
		out.Border = fallback.Border
	}
	if out.Alignment == nil {
		out.Alignment = fallback.Alignment
	}
	if out.NumberFormat == "" {
		out.NumberFormat = fallback.NumberFormat
	}
	if fallback.WrapText {
		out.WrapText = true
	}
	return &out
}

// Key returns a stable identity string for the template, used to
// deduplicate generated styles (workbook style ids, CSS classes).
func (s *StyleTemplate) Key() string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	if s.Font != nil {
		fmt.Fprintf(&sb, "f:%v:%v:%v:%s|", s.Font.Bold, s.Font.Italic, s.Font.Size, s.Font.Color)
	}
	if s.Fill != nil {
		fmt.Fprintf(&sb, "i:%s|", s.Fill.Color)
	}
	if s.Border != nil {
		fmt.Fprintf(&sb, "b:%s:%s|", s.Border.Style, s.Border.Color)
	}
	if s.Alignment != nil {
		fmt.Fprintf(&sb, "a:%s:%s|", s.Alignment.Horizontal, s.Alignment.Vertical)
	}
	if s.NumberFormat != "" {
		fmt.Fprintf(&sb, "n:%s|", s.NumberFormat)
	}
	if s.WrapText {
		sb.WriteString("w|")
	}
	return sb.String()
}

// Styles groups the region styles applied while rendering. Box is the
// border drawn around the occupied rectangle of the sheet.
type Styles struct {
	Header  *StyleTemplate  `yaml:"header"`
	Body    *StyleTemplate  `yaml:"body"`
	Banner  *StyleTemplate  `yaml:"banner"`
	Footer  *StyleTemplate  `yaml:"footer"`
	Grouped *StyleTemplate  `yaml:"grouped"`
	Box     *BorderTemplate `yaml:"box"`
}

// DefaultStyles returns the built-in look: bold centered header on a light
// fill, bold banners, gray grouped rows, bordered box.
func DefaultStyles() Styles {
	return Styles{
		Header: &StyleTemplate{
			Font:      &FontTemplate{Bold: true},
			Fill:      &FillTemplate{Color: "E3F2FD"},
			Alignment: &AlignmentTemplate{Horizontal: "center", Vertical: "center"},
		},
		Banner: &StyleTemplate{
			Font:      &FontTemplate{Bold: true},
			Alignment: &AlignmentTemplate{Horizontal: "center", Vertical: "center"},
		},
		Footer: &StyleTemplate{
			Font: &FontTemplate{Bold: true},
			Fill: &FillTemplate{Color: "EEEEEE"},
		},
		Grouped: &StyleTemplate{
			Font: &FontTemplate{Bold: true},
			Fill: &FillTemplate{Color: "F5F5F5"},
		},
		Box: &BorderTemplate{Style: "thin", Color: "9E9E9E"},
	}
}

// merge completes unset regions of s from fallback.
func (s Styles) merge(fallback Styles) Styles {
	out := s
	if out.Header == nil {
		out.Header = fallback.Header
	}
	if out.Body == nil {
		out.Body = fallback.Body
	}
	if out.Banner == nil {
		out.Banner = fallback.Banner
	}
	if out.Footer == nil {
		out.Footer = fallback.Footer
	}
	if out.Grouped == nil {
		out.Grouped = fallback.Grouped
	}
	if out.Box == nil {
		out.Box = fallback.Box
	}
	return out
}

// hexColor normalizes a color to a bare RRGGBB hex string.
func hexColor(c string) string {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(c) == 3 {
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	}
	return strings.ToUpper(c)
}

// rgbColor parses a hex color into its components, defaulting to black.
func rgbColor(c string) (int, int, int) {
	h := hexColor(c)
	if len(h) != 6 {
		return 0, 0, 0
	}
	r, err1 := strconv.ParseInt(h[0:2], 16, 32)
	g, err2 := strconv.ParseInt(h[2:4], 16, 32)
	b, err3 := strconv.ParseInt(h[4:6], 16, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0
	}
	return int(r), int(g), int(b)
}
