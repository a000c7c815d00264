package gridexport

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// MenuFile is the on-disk export configuration. Every field is optional and
// overlays the settings the menu was constructed with.
type MenuFile struct {
	Filename        *string `yaml:"filename"`
	Folder          *string `yaml:"folder"`
	LinkPath        *string `yaml:"link_path"`
	Stream          *bool   `yaml:"stream"`
	DeleteAfterSave *bool   `yaml:"delete_after_save"`
	BatchSize       *int    `yaml:"batch_size"`
	StripHTML       *bool   `yaml:"strip_html"`
	ShowFooter      *bool   `yaml:"show_footer"`
	ColumnSelector  *bool   `yaml:"column_selector"`
	DateFormat      *string `yaml:"date_format"`

	ContentBefore []Banner `yaml:"content_before"`
	ContentAfter  []Banner `yaml:"content_after"`
	Styles        *Styles  `yaml:"styles"`

	// Formats maps a format key to an override, or to the literal false to
	// remove the format from the menu entirely.
	Formats map[string]OverrideOrDisabled `yaml:"formats"`
}

// OverrideOrDisabled accepts either a profile override mapping or a bare
// boolean, mirroring configurations where `Pdf: false` switches a format
// off.
type OverrideOrDisabled struct {
	ProfileOverride
}

func (o *OverrideOrDisabled) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		o.ProfileOverride = ProfileOverride{Disabled: !b}
		return nil
	}
	var ov ProfileOverride
	if err := unmarshal(&ov); err != nil {
		return err
	}
	o.ProfileOverride = ov
	return nil
}

// LoadMenuFile reads a YAML configuration and applies it over base.
func LoadMenuFile(path string, base Settings) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read export config %s: %w", path, err)
	}
	var mf MenuFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return base, fmt.Errorf("decode export config %s: %w", path, err)
	}
	return mf.Apply(base), nil
}

// Apply overlays the file's values on st and returns the result.
func (mf *MenuFile) Apply(st Settings) Settings {
	if mf.Filename != nil {
		st.Filename = *mf.Filename
	}
	if mf.Folder != nil {
		st.Folder = *mf.Folder
	}
	if mf.LinkPath != nil {
		st.LinkPath = *mf.LinkPath
	}
	if mf.Stream != nil {
		st.Stream = *mf.Stream
	}
	if mf.DeleteAfterSave != nil {
		st.DeleteAfterSave = *mf.DeleteAfterSave
	}
	if mf.BatchSize != nil {
		st.BatchSize = *mf.BatchSize
	}
	if mf.StripHTML != nil {
		st.StripHTML = *mf.StripHTML
	}
	if mf.ShowFooter != nil {
		st.ShowFooter = *mf.ShowFooter
	}
	if mf.ColumnSelector != nil {
		st.ColumnSelector = *mf.ColumnSelector
	}
	if mf.DateFormat != nil {
		st.DateFormat = *mf.DateFormat
	}
	if len(mf.ContentBefore) > 0 {
		st.ContentBefore = mf.ContentBefore
	}
	if len(mf.ContentAfter) > 0 {
		st.ContentAfter = mf.ContentAfter
	}
	if mf.Styles != nil {
		st.Styles = mf.Styles.merge(st.Styles)
	}
	if len(mf.Formats) > 0 {
		if st.Overrides == nil {
			st.Overrides = make(map[string]*ProfileOverride, len(mf.Formats))
		}
		for key, ov := range mf.Formats {
			o := ov.ProfileOverride
			st.Overrides[key] = &o
		}
	}
	return st
}
