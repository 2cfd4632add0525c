package phenology

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"agriref/internal/services"
)

// LoadXLSX reads observations from the first sheet of a workbook. Date
// cells stored as serial numbers are converted with the workbook's epoch.
func LoadXLSX(path string) (Observations, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "phenology", "open workbook", path, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return Observations{}, nil
	}
	rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "phenology", "read sheet", sheets[0], err)
	}
	use1904 := false
	if props, err := book.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		use1904 = *props.Date1904
	}
	if len(rows) > 0 {
		cols, err := locateColumns(rows[0])
		if err != nil {
			return nil, err
		}
		for _, row := range rows[1:] {
			if cols.date < len(row) {
				row[cols.date] = serialToDate(row[cols.date], use1904)
			}
		}
	}
	return collect(rows)
}

// serialToDate converts an Excel serial day number to an ISO date and
// leaves any other text untouched.
func serialToDate(raw string, use1904 bool) string {
	raw = strings.TrimSpace(raw)
	if len(raw) == 8 && !strings.ContainsAny(raw, ".-/") {
		return raw
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 || serial > 2958465 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, use1904)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}
