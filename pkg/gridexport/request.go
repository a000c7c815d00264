package gridexport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Default form parameter names understood by ParseRequest and emitted by
// the menu fragment.
const (
	ParamExportFlag      = "export_flag"
	ParamExportType      = "export_type"
	ParamColumns         = "export_columns"
	ParamColumnsSel      = "export_columns_sel"
	ParamSelectorEnabled = "column_selector_enabled"
)

// ParamNames lets embedders rename the form fields.
type ParamNames struct {
	Flag            string
	Type            string
	Columns         string
	ColumnsSel      string
	SelectorEnabled string
}

func (p ParamNames) withDefaults() ParamNames {
	if p.Flag == "" {
		p.Flag = ParamExportFlag
	}
	if p.Type == "" {
		p.Type = ParamExportType
	}
	if p.Columns == "" {
		p.Columns = ParamColumns
	}
	if p.ColumnsSel == "" {
		p.ColumnsSel = ParamColumnsSel
	}
	if p.SelectorEnabled == "" {
		p.SelectorEnabled = ParamSelectorEnabled
	}
	return p
}

// Request is one parsed export request.
type Request struct {
	Flagged bool
	Format  string
	// Columns holds the requested selector keys; ColumnsSet distinguishes
	// an explicit empty selection from no selection parameter at all.
	Columns    []string
	ColumnsSet bool
	// SelectorEnabled mirrors the posted flag; nil when not sent.
	SelectorEnabled *bool
}

// ParseRequest reads the export parameters from posted form values. The
// column list is accepted either as a JSON array (names or positions) or as
// repeated checkbox values, which is what the menu fragment posts without
// any scripting.
func ParseRequest(form url.Values, names ParamNames) (Request, error) {
	names = names.withDefaults()

	req := Request{
		Flagged: form.Get(names.Flag) != "",
		Format:  form.Get(names.Type),
	}

	if raw := form.Get(names.Columns); raw != "" {
		keys, err := decodeColumnKeys(raw)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s: %v", ErrBadRequest, names.Columns, err)
		}
		req.Columns = keys
		req.ColumnsSet = true
	} else if vals, ok := form[names.ColumnsSel]; ok {
		req.Columns = append(req.Columns, vals...)
		req.ColumnsSet = true
	}

	if raw := form.Get(names.SelectorEnabled); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s: %v", ErrBadRequest, names.SelectorEnabled, err)
		}
		req.SelectorEnabled = &b
	}
	return req, nil
}

// decodeColumnKeys accepts JSON arrays mixing strings and numbers, e.g.
// [0,2] or ["emp_no","salary"]. Numbers address columns by position.
func decodeColumnKeys(raw string) ([]string, error) {
	var entries []interface{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			keys = append(keys, v)
		case float64:
			keys = append(keys, strconv.Itoa(int(v)))
		default:
			return nil, fmt.Errorf("unsupported column key %v", e)
		}
	}
	return keys, nil
}

// Resolution is the resolver output the renderer consumes: exactly one
// active profile, the effective selected columns in declaration order, the
// selector-active flag, and any requested keys that were ignored.
type Resolution struct {
	Profile        Profile
	Columns        []Column
	SelectorActive bool
	// Dropped lists requested keys ignored as unknown or excluded. Spelled
	// out here rather than silently discarded so callers can log or
	// surface them.
	Dropped []string
}

// Resolve turns a parsed request into a Resolution against the grid's
// declared columns. The explicit column list is honored only while the
// selector feature is active; otherwise the default selection (every
// column neither excluded nor hidden) applies. Excluded columns never make
// it into the selection, requested or not.
func Resolve(set *FormatSet, grid Grid, req Request, selectorEnabled bool) (*Resolution, error) {
	profile, err := set.Get(req.Format)
	if err != nil {
		return nil, err
	}

	active := selectorEnabled
	if req.SelectorEnabled != nil {
		active = active && *req.SelectorEnabled
	}

	explicit := active && req.ColumnsSet
	selected, dropped := resolveSelection(grid.Columns, req.Columns, explicit)

	return &Resolution{
		Profile:        profile,
		Columns:        selected,
		SelectorActive: active,
		Dropped:        dropped,
	}, nil
}
