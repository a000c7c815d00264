package gridexport

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SaveResult describes a file written to the export folder.
type SaveResult struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Link string `json:"link"`
	Size int64  `json:"size"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename reduces a base name to characters safe for a filename
// and a URL path segment.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = defaultFilename
	}
	return name
}

// SaveToFolder writes the export under folder with a timestamped unique
// name and returns where it landed. linkPath is the URL prefix the file is
// served from.
func SaveToFolder(data []byte, base, ext, folder, linkPath string) (*SaveResult, error) {
	if folder == "" {
		folder = "."
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create export folder %s: %w", folder, err)
	}
	name := fmt.Sprintf("%s_%s.%s",
		SanitizeFilename(base), time.Now().UTC().Format("20060102_150405"), ext)
	full := filepath.Join(folder, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("write export file %s: %w", full, err)
	}
	return &SaveResult{
		Name: name,
		Path: full,
		Link: path.Join(linkPath, name),
		Size: int64(len(data)),
	}, nil
}
