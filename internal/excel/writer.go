package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"adenrich/internal/pipeline"
)

const (
	dataSheet  = "Data"
	errorSheet = "Errors"
)

// WriteWorkbook saves the enriched rows and the run's error messages as an
// xlsx workbook. The Data sheet is written only when rows exist and the
// Errors sheet only when messages exist, so an all-good run yields a workbook
// without an Errors tab.
func WriteWorkbook(path string, columns []string, rows []pipeline.Row, errs []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(rows) > 0 {
		if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
			return fmt.Errorf("name sheet %s: %w", dataSheet, err)
		}
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(dataSheet, cell, col)
		}
		for r := range rows {
			for c, col := range columns {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				f.SetCellValue(dataSheet, cell, rows[r].Cell(col))
			}
		}
	}

	if len(errs) > 0 {
		if len(rows) > 0 {
			if _, err := f.NewSheet(errorSheet); err != nil {
				return fmt.Errorf("add sheet %s: %w", errorSheet, err)
			}
		} else if err := f.SetSheetName("Sheet1", errorSheet); err != nil {
			return fmt.Errorf("name sheet %s: %w", errorSheet, err)
		}
		f.SetCellValue(errorSheet, "A1", "Error")
		for i, msg := range errs {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			f.SetCellValue(errorSheet, cell, msg)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
