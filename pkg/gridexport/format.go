package gridexport

import (
	"fmt"
	"sort"
)

// Built-in format identifiers.
const (
	FormatHTML     = "HTML"
	FormatCSV      = "Csv"
	FormatText     = "Text"
	FormatMarkdown = "Markdown"
	FormatPDF      = "Pdf"
	FormatExcel    = "Xls"
	FormatExcelX   = "Xlsx"
)

// Profile describes one output format: how it appears in the menu and which
// writer serializes it. A profile is resolved once per request and immutable
// afterwards.
type Profile struct {
	Format    string
	Label     string
	Icon      string
	MIME      string
	Extension string
	// Delimiter is consumed by delimited-text writers; profiles may share a
	// writer and differ only here (Csv and Text both use "csv").
	Delimiter string
	Writer    string
	// Options carries writer-specific knobs (csv "bom", pdf "orientation",
	// "font_size", xlsx "freeze_header").
	Options map[string]interface{}
}

func (p Profile) optionBool(key string, def bool) bool {
	if v, ok := p.Options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (p Profile) optionString(key, def string) string {
	if v, ok := p.Options[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func (p Profile) optionFloat(key string, def float64) float64 {
	switch v := p.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// ProfileOverride deep-merges onto a built-in profile. Nil fields keep the
// default; Disabled removes the format from the available set entirely.
type ProfileOverride struct {
	Disabled  bool                   `yaml:"disabled"`
	Label     *string                `yaml:"label"`
	Icon      *string                `yaml:"icon"`
	MIME      *string                `yaml:"mime"`
	Extension *string                `yaml:"extension"`
	Delimiter *string                `yaml:"delimiter"`
	Writer    *string                `yaml:"writer"`
	Options   map[string]interface{} `yaml:"options"`
}

var defaultFormatOrder = []string{
	FormatHTML, FormatCSV, FormatText, FormatMarkdown,
	FormatPDF, FormatExcel, FormatExcelX,
}

func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		FormatHTML: {
			Format:    FormatHTML,
			Label:     "HTML",
			Icon:      "mdi-language-html5",
			MIME:      "text/html",
			Extension: "html",
			Writer:    "html",
		},
		FormatCSV: {
			Format:    FormatCSV,
			Label:     "CSV",
			Icon:      "mdi-file-delimited-outline",
			MIME:      "text/csv",
			Extension: "csv",
			Delimiter: ",",
			Writer:    "csv",
			Options:   map[string]interface{}{"bom": true},
		},
		FormatText: {
			Format:    FormatText,
			Label:     "Text",
			Icon:      "mdi-file-document-outline",
			MIME:      "text/plain",
			Extension: "txt",
			Delimiter: "\t",
			Writer:    "csv",
		},
		FormatMarkdown: {
			Format:    FormatMarkdown,
			Label:     "Markdown",
			Icon:      "mdi-language-markdown-outline",
			MIME:      "text/markdown",
			Extension: "md",
			Writer:    "markdown",
		},
		FormatPDF: {
			Format:    FormatPDF,
			Label:     "PDF",
			Icon:      "mdi-file-pdf-box",
			MIME:      "application/pdf",
			Extension: "pdf",
			Writer:    "pdf",
			Options:   map[string]interface{}{"orientation": "L"},
		},
		// Go has no maintained BIFF encoder, so the legacy profile reuses
		// the OOXML writer behind the .xls extension and MIME. Consumers
		// that need true Excel-97 files should disable this profile.
		FormatExcel: {
			Format:    FormatExcel,
			Label:     "Excel 97-2003",
			Icon:      "mdi-file-excel-outline",
			MIME:      "application/vnd.ms-excel",
			Extension: "xls",
			Writer:    "xlsx",
		},
		FormatExcelX: {
			Format:    FormatExcelX,
			Label:     "Excel",
			Icon:      "mdi-file-excel",
			MIME:      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension: "xlsx",
			Writer:    "xlsx",
		},
	}
}

// FormatSet is the resolved, ordered set of enabled profiles for a menu.
type FormatSet struct {
	order    []string
	byKey    map[string]Profile
	disabled map[string]bool
}

// ResolveFormats merges overrides onto the built-in profile table. A
// disabled override removes the format; an override keyed by a new name
// defines a custom format and must carry writer, extension and MIME.
func ResolveFormats(overrides map[string]*ProfileOverride) (*FormatSet, error) {
	set := &FormatSet{
		byKey:    defaultProfiles(),
		disabled: make(map[string]bool),
	}
	set.order = append(set.order, defaultFormatOrder...)

	// Apply custom formats in a stable order.
	extra := make([]string, 0)
	for key := range overrides {
		if _, ok := set.byKey[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	for _, key := range append(append([]string{}, defaultFormatOrder...), extra...) {
		ov, ok := overrides[key]
		if !ok || ov == nil {
			continue
		}
		if ov.Disabled {
			delete(set.byKey, key)
			set.disabled[key] = true
			continue
		}
		base, exists := set.byKey[key]
		if !exists {
			base = Profile{Format: key, Label: key}
			set.order = append(set.order, key)
		}
		merged := mergeProfile(base, ov)
		if !exists && (merged.Writer == "" || merged.Extension == "" || merged.MIME == "") {
			return nil, fmt.Errorf("%w: custom format %q needs writer, extension and mime", ErrInvalidProfile, key)
		}
		set.byKey[key] = merged
	}
	return set, nil
}

func mergeProfile(base Profile, ov *ProfileOverride) Profile {
	out := base
	if ov.Label != nil {
		out.Label = *ov.Label
	}
	if ov.Icon != nil {
		out.Icon = *ov.Icon
	}
	if ov.MIME != nil {
		out.MIME = *ov.MIME
	}
	if ov.Extension != nil {
		out.Extension = *ov.Extension
	}
	if ov.Delimiter != nil {
		out.Delimiter = *ov.Delimiter
	}
	if ov.Writer != nil {
		out.Writer = *ov.Writer
	}
	if len(ov.Options) > 0 {
		merged := make(map[string]interface{}, len(base.Options)+len(ov.Options))
		for k, v := range base.Options {
			merged[k] = v
		}
		for k, v := range ov.Options {
			merged[k] = v
		}
		out.Options = merged
	}
	return out
}

// Profiles returns the enabled profiles in menu order.
func (s *FormatSet) Profiles() []Profile {
	out := make([]Profile, 0, len(s.byKey))
	for _, key := range s.order {
		if p, ok := s.byKey[key]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Get resolves one format key, distinguishing disabled from unknown.
func (s *FormatSet) Get(key string) (Profile, error) {
	if p, ok := s.byKey[key]; ok {
		return p, nil
	}
	if s.disabled[key] {
		return Profile{}, fmt.Errorf("%w: %s", ErrFormatDisabled, key)
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownFormat, key)
}

// Has reports whether key is enabled.
func (s *FormatSet) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}
