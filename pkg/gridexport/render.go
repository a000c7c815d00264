package gridexport

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Auto-sized columns never grow past this many characters.
const maxAutoWidth = 60

// Render builds the Tabular Buffer for the selected columns: banners before
// the header, one header cell per visible column, the data rows pulled from
// the provider (in bounded pages when a batch size is set), the optional
// footer row, banners after, and the box border over the whole rectangle.
// Zero rows and zero columns are both valid and produce the corresponding
// empty bands. Identical inputs produce an identical buffer.
func Render(ctx context.Context, grid Grid, cols []Column, rows RowProvider, st Settings) (*Buffer, error) {
	st = st.withDefaults()

	programs, err := compileColumns(cols)
	if err != nil {
		return nil, err
	}

	buf := newBuffer(len(cols))
	buf.DateFormat = st.DateFormat
	if st.Hooks.OnBufferCreate != nil {
		st.Hooks.OnBufferCreate(buf)
	}
	buf.SheetName = grid.SheetName()
	if st.Hooks.OnSheetCreate != nil {
		st.Hooks.OnSheetCreate(buf)
	}

	for _, b := range st.ContentBefore {
		appendBanner(buf, b, len(cols), st)
	}

	headerCells := make([]Cell, len(cols))
	for i, c := range cols {
		cell := Cell{Value: c.HeaderLabel(i), Type: TypeString, Style: st.Styles.Header}
		if st.Hooks.OnHeaderCell != nil {
			st.Hooks.OnHeaderCell(&cell, c, i)
		}
		headerCells[i] = cell
		trackWidth(buf, i, buf.CellString(cell))
	}
	buf.appendRow(RowHeader, headerCells)

	agg := newAggregates(cols)
	groups := newGroupTracker(cols, st.Styles.Grouped)

	rowIdx := 0
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := rows.FetchRows(ctx, offset, st.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("fetch rows at offset %d: %w", offset, err)
		}
		for _, row := range page {
			cells := make([]Cell, len(cols))
			for i, c := range cols {
				v, err := cellValue(c, i, programs[i], row, st.StripHTML)
				if err != nil {
					return nil, err
				}
				cell := Cell{Value: v, Type: c.Type, Style: c.Style.Merge(st.Styles.Body)}
				if st.Hooks.OnBodyCell != nil {
					st.Hooks.OnBodyCell(&cell, c, rowIdx, i)
				}
				cells[i] = cell
				agg.observe(i, cell.Value)
				trackWidth(buf, i, buf.CellString(cell))
			}
			buf.appendRow(RowData, cells)
			groups.observe(buf, cells)
			rowIdx++
		}
		if st.BatchSize <= 0 || len(page) < st.BatchSize {
			break
		}
		offset += len(page)
	}
	groups.finish(buf)

	if st.ShowFooter && hasFooter(cols) {
		footerCells := make([]Cell, len(cols))
		for i, c := range cols {
			cell := Cell{Style: st.Styles.Footer}
			if c.FooterAgg != "" {
				cell.Value = agg.value(i, c.FooterAgg)
				cell.Type = TypeNumber
			} else {
				cell.Value = c.Footer
			}
			if st.Hooks.OnFooterCell != nil {
				st.Hooks.OnFooterCell(&cell, c, i)
			}
			footerCells[i] = cell
			trackWidth(buf, i, buf.CellString(cell))
		}
		buf.appendRow(RowFooter, footerCells)
	}

	for _, b := range st.ContentAfter {
		appendBanner(buf, b, len(cols), st)
	}

	buf.Box = st.Styles.Box
	for i, c := range cols {
		if c.Width > 0 {
			buf.ColWidths[i] = c.Width
		}
	}
	buf.Stats.Columns = len(cols)

	if st.Hooks.OnSheetComplete != nil {
		st.Hooks.OnSheetComplete(buf)
	}
	return buf, nil
}

func compileColumns(cols []Column) ([]*vm.Program, error) {
	programs := make([]*vm.Program, len(cols))
	for i, c := range cols {
		if c.Expr == "" {
			continue
		}
		p, err := expr.Compile(c.Expr, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidColumn, c.SelectorKey(i), err)
		}
		programs[i] = p
	}
	return programs, nil
}

func cellValue(c Column, pos int, prog *vm.Program, row Row, strip bool) (interface{}, error) {
	var v interface{}
	if prog != nil {
		out, err := expr.Run(prog, map[string]interface{}(row))
		if err != nil {
			return nil, fmt.Errorf("column %s expression: %w", c.SelectorKey(pos), err)
		}
		v = out
	} else {
		field := c.Field
		if field == "" {
			field = c.Key
		}
		if field != "" {
			v = row[field]
		}
	}

	if c.Formatter != nil {
		v = c.Formatter(v)
	} else if c.FormatterName != "" {
		if fn := lookupFormatter(c.FormatterName); fn != nil {
			v = fn(v)
		}
	}
	if strip {
		if s, ok := v.(string); ok {
			v = stripMarkup(s)
		}
	}
	return v, nil
}

func appendBanner(buf *Buffer, b Banner, span int, st Settings) {
	style := b.Style.Merge(st.Styles.Banner)
	if span < 1 {
		span = 1
	}
	cells := make([]Cell, span)
	cells[0] = Cell{Value: b.Value, Type: TypeString, Style: style}
	for i := 1; i < span; i++ {
		cells[i] = Cell{Style: style}
	}
	if span > 1 {
		row := len(buf.Rows)
		buf.Merges = append(buf.Merges, MergeRange{
			FirstRow: row, FirstCol: 0, LastRow: row, LastCol: span - 1,
		})
	}
	buf.appendRow(RowBanner, cells)
}

func trackWidth(buf *Buffer, i int, s string) {
	if i >= len(buf.ColWidths) {
		return
	}
	w := float64(len([]rune(s)) + 2)
	if w > maxAutoWidth {
		w = maxAutoWidth
	}
	if w > buf.ColWidths[i] {
		buf.ColWidths[i] = w
	}
}

func hasFooter(cols []Column) bool {
	for _, c := range cols {
		if c.Footer != nil || c.FooterAgg != "" {
			return true
		}
	}
	return false
}

// groupTracker merges consecutive runs of equal values in group columns and
// applies the grouped style to them. Columns are walked in declaration
// order so the recorded merges are deterministic.
type groupTracker struct {
	style *StyleTemplate
	cols  []int
	runs  map[int]*groupRun
}

type groupRun struct {
	startRow int // buffer row index of the run anchor
	value    string
	length   int
}

func newGroupTracker(cols []Column, style *StyleTemplate) *groupTracker {
	t := &groupTracker{style: style, runs: make(map[int]*groupRun)}
	for i, c := range cols {
		if c.Group {
			t.cols = append(t.cols, i)
		}
	}
	return t
}

func (t *groupTracker) observe(buf *Buffer, cells []Cell) {
	if len(t.cols) == 0 {
		return
	}
	bufRow := len(buf.Rows) - 1
	for _, col := range t.cols {
		s := buf.CellString(cells[col])
		run := t.runs[col]
		if run != nil && run.value == s {
			run.length++
			// Repeated value: blank it, the merge shows the anchor.
			buf.Rows[bufRow].Cells[col].Value = nil
			buf.Rows[bufRow].Cells[col].Style = t.style.Merge(buf.Rows[bufRow].Cells[col].Style)
			continue
		}
		t.close(buf, col, run)
		t.runs[col] = &groupRun{startRow: bufRow, value: s, length: 1}
	}
}

func (t *groupTracker) close(buf *Buffer, col int, run *groupRun) {
	if run == nil || run.length < 2 {
		return
	}
	buf.Merges = append(buf.Merges, MergeRange{
		FirstRow: run.startRow, FirstCol: col,
		LastRow: run.startRow + run.length - 1, LastCol: col,
	})
	anchor := &buf.Rows[run.startRow].Cells[col]
	anchor.Style = t.style.Merge(anchor.Style)
}

func (t *groupTracker) finish(buf *Buffer) {
	for _, col := range t.cols {
		t.close(buf, col, t.runs[col])
	}
}

// aggregates accumulates footer aggregates over the data band.
type aggregates struct {
	active bool
	count  []int
	nums   []int
	sum    []float64
	min    []float64
	max    []float64
}

func newAggregates(cols []Column) *aggregates {
	a := &aggregates{
		count: make([]int, len(cols)),
		nums:  make([]int, len(cols)),
		sum:   make([]float64, len(cols)),
		min:   make([]float64, len(cols)),
		max:   make([]float64, len(cols)),
	}
	for _, c := range cols {
		if c.FooterAgg != "" {
			a.active = true
			break
		}
	}
	return a
}

func (a *aggregates) observe(i int, v interface{}) {
	if !a.active || v == nil {
		return
	}
	a.count[i]++
	f, ok := toFloat(v)
	if !ok {
		return
	}
	if a.nums[i] == 0 || f < a.min[i] {
		a.min[i] = f
	}
	if a.nums[i] == 0 || f > a.max[i] {
		a.max[i] = f
	}
	a.nums[i]++
	a.sum[i] += f
}

func (a *aggregates) value(i int, agg string) interface{} {
	switch agg {
	case "sum":
		return a.sum[i]
	case "avg":
		if a.nums[i] == 0 {
			return nil
		}
		return a.sum[i] / float64(a.nums[i])
	case "count":
		return float64(a.count[i])
	case "min":
		if a.nums[i] == 0 {
			return nil
		}
		return a.min[i]
	case "max":
		if a.nums[i] == 0 {
			return nil
		}
		return a.max[i]
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
