package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/iblockql/internal/domain"
)

const (
	// ContentTypeXLSX is the MIME type of generated workbooks.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheet   = "Elements"
	propsPrefix    = domain.PropsKey + "."
	multiValueGlue = ", "
)

// Columns returns the header of a collection export: every row key in
// first-seen order, with properties flattened as "props.<code>".
func Columns(collection *domain.Collection) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
	}

	for _, row := range collection.Rows() {
		for _, key := range row.Keys() {
			props, ok := row.Props()
			if key != domain.PropsKey || !ok {
				add(key)
				continue
			}
			for _, code := range sortedCodes(props) {
				add(propsPrefix + code)
			}
		}
	}
	return columns
}

// WriteCollection renders the collection as a single-sheet XLSX workbook.
func WriteCollection(w io.Writer, collection *domain.Collection) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), defaultSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(defaultSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	columns := Columns(collection)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range collection.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := sw.SetRow(cell, rowValues(row, columns)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func rowValues(row *domain.OutputRow, columns []string) []interface{} {
	props, _ := row.Props()
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		if strings.HasPrefix(column, propsPrefix) && props != nil {
			if value, ok := props[strings.TrimPrefix(column, propsPrefix)]; ok {
				values[i] = strings.Join(value.Values(), multiValueGlue)
				continue
			}
		}
		value, ok := row.Get(column)
		if !ok {
			continue
		}
		values[i] = cellValue(value)
	}
	return values
}

func cellValue(v any) interface{} {
	switch value := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time:
		return value
	default:
		return fmt.Sprint(value)
	}
}

func sortedCodes(props domain.Props) []string {
	codes := make([]string, 0, len(props))
	for code := range props {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
