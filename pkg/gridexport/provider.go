package gridexport

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// Row is one record of the caller's data source, keyed by field name.
type Row map[string]interface{}

// RowProvider feeds rows to the renderer. FetchRows returns up to limit
// rows starting at offset; limit <= 0 means everything remaining. A short
// page signals the end of the data. Close releases whatever the provider
// holds and must be safe to call once after any outcome.
type RowProvider interface {
	FetchRows(ctx context.Context, offset, limit int) ([]Row, error)
	Close() error
}

// SliceProvider serves rows from memory. The slice is converted once at
// construction; structs and struct pointers are read through a per-type
// field cache, maps are taken as-is.
type SliceProvider struct {
	rows []Row
}

type fieldCacheKey struct {
	typ  reflect.Type
	name string
}

// NewSliceProvider accepts []Row, a slice of maps, or a slice of structs /
// struct pointers.
func NewSliceProvider(data interface{}) (*SliceProvider, error) {
	if rows, ok := data.([]Row); ok {
		return &SliceProvider{rows: rows}, nil
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("slice provider needs a slice, got %T", data)
	}

	fieldCache := make(map[fieldCacheKey][]int)
	rows := make([]Row, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		row, err := toRow(v.Index(i), fieldCache)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return &SliceProvider{rows: rows}, nil
}

func toRow(item reflect.Value, fieldCache map[fieldCacheKey][]int) (Row, error) {
	for item.Kind() == reflect.Ptr {
		if item.IsNil() {
			return Row{}, nil
		}
		item = item.Elem()
	}
	switch item.Kind() {
	case reflect.Map:
		row := make(Row, item.Len())
		iter := item.MapRange()
		for iter.Next() {
			row[fmt.Sprintf("%v", iter.Key().Interface())] = iter.Value().Interface()
		}
		return row, nil
	case reflect.Struct:
		t := item.Type()
		row := make(Row, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}
			key := fieldCacheKey{typ: t, name: f.Name}
			idx, ok := fieldCache[key]
			if !ok {
				idx = f.Index
				fieldCache[key] = idx
			}
			row[f.Name] = item.FieldByIndex(idx).Interface()
		}
		return row, nil
	default:
		return nil, fmt.Errorf("unsupported element kind %s", item.Kind())
	}
}

func (p *SliceProvider) FetchRows(ctx context.Context, offset, limit int) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset >= len(p.rows) {
		return nil, nil
	}
	end := len(p.rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return p.rows[offset:end], nil
}

func (p *SliceProvider) Close() error { return nil }

// Len reports the number of rows held.
func (p *SliceProvider) Len() int { return len(p.rows) }

// ColumnsFromRows derives a column list from row data when the grid does
// not declare one: the union of keys across the first rows (at most 50),
// sorted for a stable order.
func ColumnsFromRows(rows []Row) []Column {
	seen := make(map[string]bool)
	limit := len(rows)
	if limit > 50 {
		limit = 50
	}
	for i := 0; i < limit; i++ {
		for k := range rows[i] {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Field: k}
	}
	return cols
}
