package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"biasclean/domain/dataset"
	"biasclean/internal"
	"biasclean/ports"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	config ReaderConfig
	logger *internal.Logger
}

var _ ports.DatasetReader = (*DataReader)(nil)

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &DataReader{config: config, logger: logger.With("DataReader")}
}

// FormatFor picks a format from a file extension
func FormatFor(path string) (ports.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ports.FormatCSV, nil
	case ".xlsx":
		return ports.FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// Read loads a CSV or XLSX file
func (r *DataReader) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s file not found: %w", strings.ToUpper(string(format)), err)
	}
	defer f.Close()
	return r.ReadFrom(ctx, f, format)
}

// ReadFrom decodes a stream and infers column kinds
func (r *DataReader) ReadFrom(ctx context.Context, src io.Reader, format ports.Format) (*dataset.Dataset, error) {
	r.logger.Debug("starting to read %s data", format)
	readStart := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch format {
	case ports.FormatCSV:
		rows, err = r.readCSV(src)
	case ports.FormatXLSX:
		rows, err = r.readExcel(src)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("%s data read in %.2fms (%d rows)", format, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(string(format)))
	}
	return r.build(processRows(rows))
}

func (r *DataReader) readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (r *DataReader) readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}

// processRows trims cells and pads short rows to the header width
func processRows(rows [][]string) rawTable {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	table := rawTable{Headers: headers, Rows: make([][]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		for j := 0; j < len(row) && j < len(headers); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// build infers kinds: a column is numeric when every non-null cell parses as
// a float and it is not forced categorical
func (r *DataReader) build(table rawTable) (*dataset.Dataset, error) {
	forced := make(map[string]bool, len(r.config.Categorical))
	for _, c := range r.config.Categorical {
		forced[c] = true
	}
	nulls := make(map[string]bool, len(r.config.NullTokens))
	for _, t := range r.config.NullTokens {
		nulls[strings.ToLower(t)] = true
	}
	isNull := func(cell string) bool { return cell == "" || nulls[strings.ToLower(cell)] }

	columns := make([]dataset.Column, len(table.Headers))
	for i, name := range table.Headers {
		kind := dataset.KindCategorical
		if !forced[name] && numericColumn(table.Rows, i, isNull) {
			kind = dataset.KindNumeric
		}
		columns[i] = dataset.Column{Name: name, Kind: kind}
	}
	schema, err := dataset.NewSchema(columns)
	if err != nil {
		return nil, err
	}

	records := make([]dataset.Record, len(table.Rows))
	for n, row := range table.Rows {
		rec := make(dataset.Record, len(columns))
		for i, cell := range row {
			switch {
			case isNull(cell):
				rec[i] = dataset.Null()
			case columns[i].Kind == dataset.KindNumeric:
				f, _ := strconv.ParseFloat(cell, 64)
				rec[i] = dataset.Number(f)
			default:
				rec[i] = dataset.Text(cell)
			}
		}
		records[n] = rec
	}

	r.logger.Info("dataset loaded (%d columns, %d rows)", len(columns), len(records))
	return dataset.New(schema, records)
}

func numericColumn(rows [][]string, col int, isNull func(string) bool) bool {
	seen := false
	for _, row := range rows {
		cell := row[col]
		if isNull(cell) {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
