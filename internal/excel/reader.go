// Package excel reads and writes the xlsx workbooks the pipeline works on.
package excel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"adenrich/internal/pipeline"
)

// InputError marks a problem with the input workbook itself, as opposed to a
// failure while enriching its rows.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input workbook %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ReadRows loads the first worksheet of an xlsx workbook. The first row is
// the header; every following row becomes one pipeline.Row keyed by header
// name. Short rows are padded with empty cells, cells beyond the header are
// dropped.
func ReadRows(path string) ([]pipeline.Row, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, &InputError{Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &InputError{Path: path, Err: errors.New("workbook has no worksheets")}
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &InputError{Path: path, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(raw) == 0 {
		return nil, nil, &InputError{Path: path, Err: fmt.Errorf("sheet %q has no header row", sheet)}
	}

	columns, err := headerColumns(raw[0])
	if err != nil {
		return nil, nil, &InputError{Path: path, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}

	rows := make([]pipeline.Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := pipeline.Row{Cells: make(map[string]string, len(columns))}
		for i, col := range columns {
			if i < len(cells) {
				row.Cells[col] = cells[i]
			} else {
				row.Cells[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, columns, nil
}

func headerColumns(header []string) ([]string, error) {
	columns := make([]string, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("header cell %d is empty", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate header %q", name)
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, errors.New("header row is empty")
	}
	return columns, nil
}
