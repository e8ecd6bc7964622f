package ports

import (
	"context"
	"io"

	"biasclean/domain/dataset"
)

// Format names a tabular file encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DatasetReader loads a dataset and infers column kinds
type DatasetReader interface {
	// Read loads a file, picking the format from its extension
	Read(ctx context.Context, path string) (*dataset.Dataset, error)

	// ReadFrom decodes a stream in the given format
	ReadFrom(ctx context.Context, r io.Reader, format Format) (*dataset.Dataset, error)
}

// DatasetWriter persists a dataset
type DatasetWriter interface {
	Write(ctx context.Context, path string, ds *dataset.Dataset) error
	WriteTo(ctx context.Context, w io.Writer, format Format, ds *dataset.Dataset) error
}
