package gridexport

import (
	"bytes"
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one export. Exactly one of Data and Saved is set
// on success; a vetoed export carries neither.
type Result struct {
	Profile  Profile       `json:"-"`
	Format   string        `json:"format"`
	Filename string        `json:"filename"`
	Data     []byte        `json:"-"`
	Saved    *SaveResult   `json:"saved,omitempty"`
	Stats    RenderStats   `json:"stats"`
	Dropped  []string      `json:"dropped_columns,omitempty"`
	Vetoed   bool          `json:"vetoed,omitempty"`
	Duration time.Duration `json:"-"`
}

// Export runs one request end to end: resolve the format and the column
// selection, render the buffer through the provider, serialize, then stream
// or save. Configuration failures surface before the first row is fetched,
// so a failed export never leaves partial output. The provider is closed
// before returning.
func Export(ctx context.Context, grid Grid, provider RowProvider, st Settings, req Request) (*Result, error) {
	start := time.Now()
	st = st.withDefaults()
	defer provider.Close()

	set, err := ResolveFormats(st.Overrides)
	if err != nil {
		return nil, err
	}
	res, err := Resolve(set, grid, req, st.ColumnSelector)
	if err != nil {
		return nil, err
	}
	writer, err := lookupWriter(res.Profile.Writer)
	if err != nil {
		return nil, err
	}
	if st.Hooks.OnWriterCreate != nil {
		st.Hooks.OnWriterCreate(writer)
	}

	buf, err := Render(ctx, grid, res.Columns, provider, st)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := writer.Write(ctx, buf, res.Profile, &out); err != nil {
		return nil, err
	}

	result := &Result{
		Profile:  res.Profile,
		Format:   res.Profile.Format,
		Filename: fmt.Sprintf("%s.%s", SanitizeFilename(st.Filename), res.Profile.Extension),
		Stats:    buf.Stats,
		Dropped:  res.Dropped,
	}

	if st.Hooks.OnFileGenerated != nil && !st.Hooks.OnFileGenerated(result.Filename, out.Bytes()) {
		result.Vetoed = true
		result.Duration = time.Since(start)
		return result, nil
	}

	if st.Stream {
		result.Data = out.Bytes()
	} else {
		saved, err := SaveToFolder(out.Bytes(), st.Filename, res.Profile.Extension, st.Folder, st.LinkPath)
		if err != nil {
			return nil, err
		}
		result.Saved = saved
		result.Filename = saved.Name
	}
	result.Duration = time.Since(start)
	return result, nil
}
