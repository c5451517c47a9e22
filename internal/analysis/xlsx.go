package analysis

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes one sheet of a .xlsx workbook into a Table.
// If sheetName is empty, sheetIndex (1-based) selects the sheet; <= 0 means the first.
func ReadXLSX(path, sheetName string, sheetIndex int, opt Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, filepath.Base(path), sheetName, sheetIndex, opt)
}

// ReadXLSXReader is ReadXLSX for an in-memory workbook.
func ReadXLSXReader(r io.Reader, name, sheetName string, sheetIndex int, opt Options) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, name, sheetName, sheetIndex, opt)
}

// SheetNames lists the sheets of a workbook in order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func readWorkbook(f *excelize.File, book, sheetName string, sheetIndex int, opt Options) (*Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook '%s' has no sheets", book)
	}
	target := ""
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(sheetName)) {
				target = s
				break
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, book, strings.Join(sheets, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range in workbook '%s' (%d sheets)", idx, book, len(sheets))
		}
		target = sheets[idx-1]
	}

	// Raw values keep numbers free of the workbook's display formatting.
	rows, err := f.GetRows(target, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	if len(rows) == 0 {
		return NewTable(target, nil, nil, opt), nil
	}
	return NewTable(target, rows[0], rows[1:], opt), nil
}
