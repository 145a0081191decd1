package output

import (
	"fmt"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/logging"
	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes one workbook per service with a single sheet
type XLSXWriter struct{}

func (XLSXWriter) Extension() string { return ".xlsx" }

// WriteRecords saves a workbook whose only sheet is named sheet. Every cell is a string.
func (XLSXWriter) WriteRecords(path string, sheet string, header []string, records []entities.Record) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Warn("Failed to close workbook", "path", path, "error", cerr)
		}
	}()

	if sheet != "" {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
	} else {
		sheet = f.GetSheetName(0)
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, r := range records {
		if err := setRow(f, sheet, i+2, r.Values()); err != nil {
			return err
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	logging.Debug("XLSX written", "path", path, "sheet", sheet, "rows", len(records))
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
