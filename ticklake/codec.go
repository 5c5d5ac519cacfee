package ticklake

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Record is one decoded row of a dataset file.
type Record map[string]any

// Codec decodes the records of one dataset file format. Downloaded
// datasets are read-only mirrors, so codecs only decode; ParquetCodec
// additionally encodes for local exports and test fixtures.
type Codec interface {
	// Name returns the codec identifier ("csv" or "parquet").
	Name() string

	// Decode reads every record from one (already decompressed) file.
	Decode(r io.Reader) ([]Record, error)
}

// -----------------------------------------------------------------------------
// CSV codec
// -----------------------------------------------------------------------------

// CSVCodec decodes comma-separated dataset files. Dataset objects are
// headerless; the column names come from the dataset's metadata
// (DatasetMetadata.CSVColumns). With no declared columns the first row is
// treated as a header instead.
type CSVCodec struct {
	Columns []string
}

// NewCSVCodec creates a CSV codec for the given column names.
func NewCSVCodec(columns []string) *CSVCodec {
	return &CSVCodec{Columns: columns}
}

func (c *CSVCodec) Name() string { return "csv" }

// Decode reads all rows, mapping each field to its column name. Short
// rows are an error; every value decodes as a string, since the metadata
// service does not declare CSV column types.
func (c *CSVCodec) Decode(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	columns := c.Columns
	if len(columns) == 0 {
		header, err := cr.Read()
		if err == io.EOF {
			return []Record{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ticklake: csv header: %w", err)
		}
		columns = header
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ticklake: csv row %d: %w", len(records)+1, err)
		}
		if len(row) < len(columns) {
			return nil, fmt.Errorf("ticklake: csv row %d has %d fields, want %d", len(records)+1, len(row), len(columns))
		}
		rec := make(Record, len(columns))
		for i, name := range columns {
			rec[name] = row[i]
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

var _ Codec = (*CSVCodec)(nil)
