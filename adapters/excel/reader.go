package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"labsignal/internal"
	"labsignal/internal/errors"
)

// DataReader handles reading lab workbooks from Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return &DataReader{filePath: filePath, fileType: FileType(filePath), logger: internal.DefaultLogger}
}

// FileType returns "csv" or "xlsx" from a file name, or "" when neither fits
func FileType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv"
	case ".xlsx", ".xlsm":
		return "xlsx"
	}
	return ""
}

// ReadData reads the workbook into rows keyed by normalized header
func (r *DataReader) ReadData() (*SheetData, error) {
	if r.fileType == "" {
		return nil, errors.UnsupportedFormat(filepath.Ext(r.filePath))
	}
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError("open", r.filePath, err)
	}
	defer file.Close()

	return readFrom(file, r.fileType, r.logger)
}

// ReadFrom reads a workbook of the given type ("xlsx" or "csv") from src
func ReadFrom(src io.Reader, fileType string) (*SheetData, error) {
	return readFrom(src, fileType, internal.DefaultLogger)
}

func readFrom(src io.Reader, fileType string, logger *internal.Logger) (*SheetData, error) {
	var rows [][]string
	var err error
	start := time.Now()
	switch fileType {
	case "csv":
		rows, err = readCSV(src)
	case "xlsx":
		rows, err = readExcel(src)
	default:
		return nil, errors.UnsupportedFormat(fileType)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("[DataReader] %s read in %.2fms (%d rows)", fileType, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file must have at least a header row and one data row", strings.ToUpper(fileType)))
	}
	return processRows(rows), nil
}

// readExcel reads the first sheet with raw cell values, so dates come back
// as serial numbers rather than locale formatted text
func readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	return rows, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.IOError("read", "csv", err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(data)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// sniffDelimiter picks ';' when the header line uses it, as European
// spreadsheet exports do
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

// processRows converts raw string rows into SheetData, dropping blank rows
func processRows(rows [][]string) *SheetData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = NormalizeHeader(header)
	}

	var dataRows []RawRowData
	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range row {
			if j < len(headers) && headers[j] != "" {
				cell = strings.TrimSpace(cell)
				rowData[headers[j]] = cell
				if cell != "" {
					blank = false
				}
			}
		}
		if !blank {
			dataRows = append(dataRows, rowData)
		}
	}

	return &SheetData{
		Headers: headers,
		Rows:    dataRows,
	}
}

// NormalizeHeader lower-cases a heading, turns spaces and dashes into
// underscores and resolves known aliases
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if col, ok := headerAliases[h]; ok {
		return col
	}
	return h
}
