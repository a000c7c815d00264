package gridexport

const (
	defaultFilename   = "grid-export"
	defaultDateFormat = "2006-01-02"
)

// Banner is one full-width row emitted before or after the table body,
// merged across the column span.
type Banner struct {
	Value string         `yaml:"value"`
	Style *StyleTemplate `yaml:"style"`
}

// Settings is the embedder-facing configuration of one export menu.
// The zero value is usable; withDefaults fills the gaps.
type Settings struct {
	// Filename is the base of the download name; the profile extension is
	// appended.
	Filename string
	// Folder and LinkPath control the save-to-disk path and the public
	// link prefix used when Stream is false.
	Folder   string
	LinkPath string
	// Stream sends the payload as the response body; otherwise the file is
	// saved under Folder and the response carries the link.
	Stream bool
	// DeleteAfterSave removes a saved file once it has been downloaded.
	DeleteAfterSave bool
	// BatchSize bounds each provider fetch; 0 materializes in one call.
	BatchSize int
	// StripHTML removes markup from rendered string values.
	StripHTML bool
	// ShowFooter emits the footer row when any column declares footer
	// content.
	ShowFooter bool
	// ColumnSelector enables the column-selector feature.
	ColumnSelector bool

	ContentBefore []Banner
	ContentAfter  []Banner

	Styles     Styles
	DateFormat string

	// Overrides adjusts or disables format profiles for this menu.
	Overrides map[string]*ProfileOverride

	Params ParamNames
	Hooks  Hooks
}

// DefaultSettings returns the stock menu configuration: streaming enabled,
// markup stripped, column selector on, default styles.
func DefaultSettings() Settings {
	return Settings{
		Filename:       defaultFilename,
		Stream:         true,
		StripHTML:      true,
		ColumnSelector: true,
		Styles:         DefaultStyles(),
		DateFormat:     defaultDateFormat,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Filename == "" {
		s.Filename = defaultFilename
	}
	if s.DateFormat == "" {
		s.DateFormat = defaultDateFormat
	}
	s.Styles = s.Styles.merge(DefaultStyles())
	s.Params = s.Params.withDefaults()
	return s
}
