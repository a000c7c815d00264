package gridexport

import (
	"errors"
	"testing"
)

func TestResolveFormatsDefaults(t *testing.T) {
	set, err := ResolveFormats(nil)
	if err != nil {
		t.Fatalf("ResolveFormats failed: %v", err)
	}

	profiles := set.Profiles()
	want := []string{FormatHTML, FormatCSV, FormatText, FormatMarkdown, FormatPDF, FormatExcel, FormatExcelX}
	if len(profiles) != len(want) {
		t.Fatalf("Expected %d profiles, got %d", len(want), len(profiles))
	}
	for i, p := range profiles {
		if p.Format != want[i] {
			t.Errorf("Profile %d: expected %s, got %s", i, want[i], p.Format)
		}
	}

	csv, err := set.Get(FormatCSV)
	if err != nil {
		t.Fatalf("Get(Csv) failed: %v", err)
	}
	if csv.Delimiter != "," || csv.Writer != "csv" || csv.Extension != "csv" {
		t.Errorf("Csv profile incorrect: %+v", csv)
	}
	if !csv.optionBool("bom", false) {
		t.Error("Csv should default to emitting a BOM")
	}

	text, _ := set.Get(FormatText)
	if text.Delimiter != "\t" || text.Writer != "csv" {
		t.Errorf("Text profile should reuse the csv writer with a tab delimiter: %+v", text)
	}
}

func TestResolveFormatsDisable(t *testing.T) {
	set, err := ResolveFormats(map[string]*ProfileOverride{
		FormatPDF: {Disabled: true},
	})
	if err != nil {
		t.Fatalf("ResolveFormats failed: %v", err)
	}

	if set.Has(FormatPDF) {
		t.Error("Pdf should be removed from the set")
	}
	for _, p := range set.Profiles() {
		if p.Format == FormatPDF {
			t.Error("Pdf should not appear in Profiles()")
		}
	}

	// Disabled and unknown are distinct failures.
	if _, err := set.Get(FormatPDF); !errors.Is(err, ErrFormatDisabled) {
		t.Errorf("Expected ErrFormatDisabled, got %v", err)
	}
	if _, err := set.Get("Parquet"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestResolveFormatsOverride(t *testing.T) {
	label := "Semicolons"
	delim := ";"
	set, err := ResolveFormats(map[string]*ProfileOverride{
		FormatCSV: {
			Label:     &label,
			Delimiter: &delim,
			Options:   map[string]interface{}{"bom": false},
		},
	})
	if err != nil {
		t.Fatalf("ResolveFormats failed: %v", err)
	}

	csv, err := set.Get(FormatCSV)
	if err != nil {
		t.Fatalf("Get(Csv) failed: %v", err)
	}
	if csv.Label != label || csv.Delimiter != delim {
		t.Errorf("Override not applied: %+v", csv)
	}
	// Untouched fields keep their defaults.
	if csv.Writer != "csv" || csv.Extension != "csv" || csv.MIME != "text/csv" {
		t.Errorf("Override clobbered defaults: %+v", csv)
	}
	if csv.optionBool("bom", true) {
		t.Error("bom option should be overridden to false")
	}
}

func TestResolveFormatsCustom(t *testing.T) {
	writer := "csv"
	ext := "tsv"
	mime := "text/tab-separated-values"
	delim := "\t"
	set, err := ResolveFormats(map[string]*ProfileOverride{
		"Tsv": {Writer: &writer, Extension: &ext, MIME: &mime, Delimiter: &delim},
	})
	if err != nil {
		t.Fatalf("ResolveFormats failed: %v", err)
	}

	profiles := set.Profiles()
	last := profiles[len(profiles)-1]
	if last.Format != "Tsv" {
		t.Errorf("Custom formats should follow the built-ins, got %s last", last.Format)
	}
	if last.Label != "Tsv" {
		t.Errorf("Custom format label should default to the key, got %s", last.Label)
	}

	// A custom format missing its writer is a configuration error.
	_, err = ResolveFormats(map[string]*ProfileOverride{
		"Broken": {Extension: &ext, MIME: &mime},
	})
	if !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("Expected ErrInvalidProfile, got %v", err)
	}
}
