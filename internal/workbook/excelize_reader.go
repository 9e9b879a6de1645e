package workbook

import (
	"github.com/xuri/excelize/v2"
)

// ExcelizeReader reads a real .xlsx workbook via excelize.
type ExcelizeReader struct {
	f *excelize.File
}

// OpenExcelizeReader opens path with excelize and wraps it as a Reader.
func OpenExcelizeReader(path string) (*ExcelizeReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ReaderError{Op: "open", Err: err}
	}
	return &ExcelizeReader{f: f}, nil
}

// Close releases the underlying file handle.
func (r *ExcelizeReader) Close() error { return r.f.Close() }

func (r *ExcelizeReader) SheetNames() ([]string, error) {
	return r.f.GetSheetList(), nil
}

func (r *ExcelizeReader) Records() ([]Record, error) {
	sheets := r.f.GetSheetList()
	var out []Record
	for _, sheet := range sheets {
		rows, err := r.f.Rows(sheet)
		if err != nil {
			return nil, &ReaderError{Op: "rows:" + sheet, Err: err}
		}
		rowIdx := uint32(0)
		for rows.Next() {
			rowIdx++
			cols, err := rows.Columns()
			if err != nil {
				_ = rows.Close()
				return nil, &ReaderError{Op: "columns:" + sheet, Err: err}
			}
			for colIdx, raw := range cols {
				if raw == "" {
					continue
				}
				cellName, err := excelize.CoordinatesToCellName(colIdx+1, int(rowIdx))
				if err != nil {
					continue
				}
				formula, _ := r.f.GetCellFormula(sheet, cellName)
				out = append(out, Record{
					Sheet:    sheet,
					Row:      rowIdx,
					Col:      uint32(colIdx + 1),
					RawValue: raw,
					HasRaw:   true,
					Formula:  formula,
				})
			}
		}
		if err := rows.Close(); err != nil {
			return nil, &ReaderError{Op: "close:" + sheet, Err: err}
		}
	}
	return out, nil
}

func (r *ExcelizeReader) NamedRanges() ([]NamedRangeDef, error) {
	defined := r.f.GetDefinedName()
	out := make([]NamedRangeDef, 0, len(defined))
	for _, d := range defined {
		out = append(out, NamedRangeDef{Name: d.Name, Definition: d.RefersTo})
	}
	return out, nil
}
