package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"biasclean/domain/dataset"
	"biasclean/ports"
)

// DefaultSheet is the worksheet name used when writing XLSX
const DefaultSheet = "Sheet1"

// DataWriter writes datasets as CSV or XLSX
type DataWriter struct{}

var _ ports.DatasetWriter = DataWriter{}

// NewDataWriter creates a writer
func NewDataWriter() DataWriter {
	return DataWriter{}
}

// Write creates path, picking the format from its extension
func (w DataWriter) Write(ctx context.Context, path string, ds *dataset.Dataset) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := w.WriteTo(ctx, f, format, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo encodes ds; nulls become empty cells
func (w DataWriter) WriteTo(ctx context.Context, dst io.Writer, format ports.Format, ds *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch format {
	case ports.FormatCSV:
		return writeCSV(dst, ds)
	case ports.FormatXLSX:
		return writeExcel(dst, ds)
	default:
		return fmt.Errorf("unsupported file type: %s", format)
	}
}

func writeCSV(dst io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(dst)
	if err := cw.Write(headers(ds)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	row := make([]string, len(ds.Schema.Columns))
	for _, rec := range ds.Records {
		for i, c := range ds.Schema.Columns {
			row[i] = rec[i].Label(c.Kind)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeExcel(dst io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ds.Schema.Columns))
	for i, h := range headers(ds) {
		header[i] = h
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write Excel header: %w", err)
	}

	for r, rec := range ds.Records {
		row := make([]interface{}, len(rec))
		for i, v := range rec {
			switch {
			case v.Null:
				row[i] = nil
			case ds.Schema.Columns[i].Kind == dataset.KindNumeric:
				row[i] = v.Number
			default:
				row[i] = v.Text
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write Excel row %d: %w", r+1, err)
		}
	}
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func headers(ds *dataset.Dataset) []string {
	out := make([]string, len(ds.Schema.Columns))
	for i, c := range ds.Schema.Columns {
		out[i] = c.Name
	}
	return out
}
