package gridexport

import (
	"html/template"
	"io"
)

// menuTemplate renders the export menu as a plain HTML form: one submit
// button per enabled format and a checkbox per selectable column. Disabled
// but checked columns get a hidden duplicate so their value still posts.
// The fragment works without any scripting.
var menuTemplate = template.Must(template.New("export-menu").Parse(`<form class="grid-export-menu" method="post" action="{{.Action}}">
<input type="hidden" name="{{.Params.Flag}}" value="1">
{{- if .Selector}}
<fieldset class="grid-export-columns">
<legend>Columns</legend>
<input type="hidden" name="{{.Params.SelectorEnabled}}" value="1">
{{- range .Columns}}
<label><input type="checkbox" name="{{$.Params.ColumnsSel}}" value="{{.Key}}"{{if .Checked}} checked{{end}}{{if .Disabled}} disabled{{end}}> {{.Label}}</label>
{{- if and .Disabled .Checked}}
<input type="hidden" name="{{$.Params.ColumnsSel}}" value="{{.Key}}">
{{- end}}
{{- end}}
</fieldset>
{{- end}}
<div class="grid-export-formats">
{{- range .Formats}}
<button type="submit" name="{{$.Params.Type}}" value="{{.Format}}" title="{{.Label}}"><i class="{{.Icon}}"></i> {{.Label}}</button>
{{- end}}
</div>
</form>
`))

type menuData struct {
	Action   string
	Params   ParamNames
	Formats  []Profile
	Columns  []menuColumn
	Selector bool
}

type menuColumn struct {
	Key      string
	Label    string
	Checked  bool
	Disabled bool
}

// RenderMenu writes the export menu fragment for a grid. Disabled formats
// are left out entirely; excluded columns never appear in the selector.
func RenderMenu(w io.Writer, grid Grid, set *FormatSet, st Settings, action string) error {
	st = st.withDefaults()

	data := menuData{
		Action:   action,
		Params:   st.Params.withDefaults(),
		Formats:  set.Profiles(),
		Selector: st.ColumnSelector,
	}
	for i, c := range grid.Columns {
		if c.ExcludeFromExport {
			continue
		}
		data.Columns = append(data.Columns, menuColumn{
			Key:      c.SelectorKey(i),
			Label:    c.HeaderLabel(i),
			Checked:  !c.HiddenFromExport,
			Disabled: c.DisabledInSelector,
		})
	}
	return menuTemplate.Execute(w, data)
}
