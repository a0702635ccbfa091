// Package export writes the sample window as a spreadsheet.
package export

import (
	"fmt"

	"stockticker/src/series"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Samples"

// Workbook lays out snap with one row per axis entry and one column per name.
// A series shorter than the axis leaves its trailing cells empty.
func Workbook(snap series.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}
	header := make([]interface{}, 0, len(snap.Names)+1)
	header = append(header, "Time")
	for _, name := range snap.Names {
		header = append(header, name)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	labels := snap.Labels()
	for i, label := range labels {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := make([]interface{}, 0, len(snap.Names)+1)
		row = append(row, label)
		for _, name := range snap.Names {
			values := snap.Values[name]
			if i < len(values) {
				row = append(row, values[i].InexactFloat64())
			} else {
				row = append(row, nil)
			}
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}
