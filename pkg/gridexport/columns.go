package gridexport

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// CellType pins the data type writers should use for a column's cells.
// TypeAuto lets the writer infer from the Go value.
type CellType string

const (
	TypeAuto   CellType = ""
	TypeString CellType = "string"
	TypeNumber CellType = "number"
	TypeBool   CellType = "bool"
	TypeDate   CellType = "date"
)

// FormatterFunc rewrites a raw field value before it is placed in a cell.
type FormatterFunc func(interface{}) interface{}

// Column describes one exportable field of the source grid. It is declared
// by the caller and read-only to the exporter.
type Column struct {
	// Key identifies the column to the column selector. Defaults to Field,
	// or to the column position when Field is empty too.
	Key   string `yaml:"key"`
	Field string `yaml:"field"`
	// Label is the header text; when empty the key is humanized
	// ("hire_date" and "hireDate" both become "Hire Date").
	Label string   `yaml:"label"`
	Type  CellType `yaml:"type"`

	// Expr computes the cell value from the whole row instead of a single
	// field, e.g. `first_name + " " + last_name`.
	Expr string `yaml:"expr"`

	Formatter     FormatterFunc `yaml:"-"`
	FormatterName string        `yaml:"formatter"`

	// Footer is a static footer cell value; FooterAgg computes one from the
	// column's numeric values: sum, avg, count, min or max.
	Footer    interface{} `yaml:"footer"`
	FooterAgg string      `yaml:"footer_agg"`

	// Group merges consecutive runs of equal values and applies the
	// grouped-row style to them.
	Group bool `yaml:"group"`

	Width float64        `yaml:"width"` // fixed; 0 enables auto-sizing
	Style *StyleTemplate `yaml:"style"` // body override for this column

	// HiddenFromExport keeps the column out of the default selection and
	// the selector UI; an explicit request naming it is still honored.
	HiddenFromExport bool `yaml:"hidden_from_export"`
	// DisabledInSelector renders the selector entry read-only.
	DisabledInSelector bool `yaml:"disabled_in_selector"`
	// ExcludeFromExport makes the column never exportable, even when
	// explicitly requested.
	ExcludeFromExport bool `yaml:"exclude_from_export"`
}

// SelectorKey returns the key used to address the column at position pos.
func (c Column) SelectorKey(pos int) string {
	if c.Key != "" {
		return c.Key
	}
	if c.Field != "" {
		return c.Field
	}
	return strconv.Itoa(pos)
}

// HeaderLabel returns the header text for the column at position pos.
func (c Column) HeaderLabel(pos int) string {
	if c.Label != "" {
		return c.Label
	}
	if c.Field != "" {
		return HumanizeLabel(c.Field)
	}
	if c.Key != "" {
		return HumanizeLabel(c.Key)
	}
	return "Column " + strconv.Itoa(pos+1)
}

// Grid is the caller-declared definition the exporter reads.
type Grid struct {
	Name    string
	Title   string // sheet name / table caption; Name when empty
	Columns []Column
}

func (g Grid) SheetName() string {
	if g.Title != "" {
		return g.Title
	}
	if g.Name != "" {
		return g.Name
	}
	return "Sheet1"
}

// HumanizeLabel turns attribute-style names into display labels:
// "first_name", "firstName" and "first-name" all become "First Name".
func HumanizeLabel(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		if r == '_' || r == '-' || r == '.' {
			b.WriteRune(' ')
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) && prevLower {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	words := strings.Fields(b.String())
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// resolveSelection computes the effective column set. With no explicit
// request it is every column that is neither excluded nor hidden. With one,
// the requested keys (names or positions) are intersected with the declared
// columns in declaration order; unknown and excluded keys land in dropped.
func resolveSelection(cols []Column, requested []string, explicit bool) (selected []Column, dropped []string) {
	if !explicit {
		for _, c := range cols {
			if c.ExcludeFromExport || c.HiddenFromExport {
				continue
			}
			selected = append(selected, c)
		}
		return selected, nil
	}

	want := make(map[int]bool, len(requested))
	for _, key := range requested {
		idx := -1
		for i, c := range cols {
			if c.SelectorKey(i) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			if n, err := strconv.Atoi(key); err == nil && n >= 0 && n < len(cols) {
				idx = n
			}
		}
		if idx < 0 || cols[idx].ExcludeFromExport {
			dropped = append(dropped, key)
			continue
		}
		want[idx] = true
	}
	for i, c := range cols {
		if want[i] {
			selected = append(selected, c)
		}
	}
	return selected, dropped
}

var (
	formattersMu sync.RWMutex
	formatters   = map[string]FormatterFunc{
		"upper": func(v interface{}) interface{} {
			if s, ok := v.(string); ok {
				return strings.ToUpper(s)
			}
			return v
		},
		"lower": func(v interface{}) interface{} {
			if s, ok := v.(string); ok {
				return strings.ToLower(s)
			}
			return v
		},
		"yesno": func(v interface{}) interface{} {
			if b, ok := v.(bool); ok {
				if b {
					return "Yes"
				}
				return "No"
			}
			return v
		},
	}
)

// RegisterFormatter makes f available to columns by name, for example from
// YAML column definitions. Registering an existing name replaces it.
func RegisterFormatter(name string, f FormatterFunc) {
	formattersMu.Lock()
	defer formattersMu.Unlock()
	formatters[name] = f
}

func lookupFormatter(name string) FormatterFunc {
	formattersMu.RLock()
	defer formattersMu.RUnlock()
	return formatters[name]
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripMarkup removes tags and resolves entities in rendered values.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
