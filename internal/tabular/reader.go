package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Row is one decoded row; cells keep the order they had in the source file.
type Row []string

var (
	// ErrUnsupportedFormat is returned before any decode attempt when the
	// file extension is not one of the supported families.
	ErrUnsupportedFormat = errors.New("unsupported file format: expected .csv, .xls or .xlsx")

	// ErrBadFile marks a file that carries a supported extension but cannot
	// be decoded. Distinct from an empty-but-valid file.
	ErrBadFile = errors.New("could not read file")
)

// Read decodes an uploaded participant export into rows of cells, header row
// included as row 0. A file with fewer than two rows (nothing beyond the
// header) yields an empty result, not an error; callers report that as
// "no participants found".
func Read(r io.Reader, filename string) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readWorkbook(r)
	case ".xls":
		rows, err = readLegacyWorkbook(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read csv content: %v", ErrBadFile, err)
	}
	var rows []Row
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitCSVLine(line))
	}
	return rows, nil
}

// splitCSVLine splits on commas while respecting double-quoted fields. A
// quote toggles the in-quotes state; commas inside quotes stay literal.
// Deliberately lenient: meeting exports contain stray quotes that
// encoding/csv rejects.
func splitCSVLine(line string) Row {
	var (
		cells    Row
		cell     strings.Builder
		inQuotes bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteRune(ch)
		}
	}
	cells = append(cells, cell.String())
	return cells
}

func readWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrBadFile, err)
	}
	defer f.Close()

	// First sheet only; exports never carry data on other sheets.
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook contains no sheets", ErrBadFile)
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrBadFile, sheet, err)
	}
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, Row(r))
	}
	return rows, nil
}

// readLegacyWorkbook handles the pre-OOXML .xls (BIFF) family, which
// excelize cannot decode.
func readLegacyWorkbook(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read workbook content: %v", ErrBadFile, err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrBadFile, err)
	}

	sh, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: workbook contains no sheets", ErrBadFile)
	}
	var rows []Row
	// GetNumberRows reports the last row index, hence the inclusive bound.
	for i := 0; i <= sh.GetNumberRows(); i++ {
		rw, err := sh.GetRow(i)
		if err != nil {
			continue
		}
		var cells Row
		for _, cell := range rw.GetCols() {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
