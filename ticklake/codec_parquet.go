package ticklake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// -----------------------------------------------------------------------------
// Parquet schema
// -----------------------------------------------------------------------------

// ParquetType enumerates the column types market datasets use.
type ParquetType int

// Parquet column type constants.
const (
	ParquetInt64 ParquetType = iota
	ParquetFloat64
	ParquetString
	ParquetBool
	ParquetTimestamp
	parquetTypeMax // sentinel for validation
)

// ParquetField defines a single column in a parquet dataset.
type ParquetField struct {
	Name     string
	Type     ParquetType
	Nullable bool
}

// ParquetSchema defines the record structure of a parquet dataset file.
type ParquetSchema struct {
	Fields []ParquetField
}

// ErrInvalidFormat indicates a file that is not valid parquet.
var ErrInvalidFormat = errors.New("invalid parquet file")

// -----------------------------------------------------------------------------
// Parquet codec
// -----------------------------------------------------------------------------

// ParquetCodec decodes parquet dataset files into Records and encodes
// Records for local exports and test fixtures.
type ParquetCodec struct {
	schema     ParquetSchema
	pqSchema   *parquet.Schema
	fieldOrder []string
}

// NewParquetCodec creates a codec for the given schema. Columns absent
// from the schema are ignored during decode.
func NewParquetCodec(schema ParquetSchema) (*ParquetCodec, error) {
	seen := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Type < 0 || f.Type >= parquetTypeMax {
			return nil, fmt.Errorf("ticklake: invalid ParquetType %d for field %q", f.Type, f.Name)
		}
		if f.Name == "" {
			return nil, errors.New("ticklake: parquet field name cannot be empty")
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("ticklake: duplicate parquet field %q", f.Name)
		}
		seen[f.Name] = true
	}

	c := &ParquetCodec{schema: schema}
	c.pqSchema = buildParquetSchema(schema)
	c.fieldOrder = make([]string, len(schema.Fields))
	for i, f := range c.pqSchema.Fields() {
		c.fieldOrder[i] = f.Name()
	}
	return c, nil
}

func (c *ParquetCodec) Name() string { return "parquet" }

// Decode reads every record from one parquet file. Parquet needs random
// access to reach its footer, so the file is buffered in memory.
func (c *ParquetCodec) Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ticklake: read parquet file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidFormat
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInvalidFormat
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	numRows := file.NumRows()
	if numRows == 0 {
		return []Record{}, nil
	}

	reader := parquet.NewReader(file)
	defer func() { _ = reader.Close() }()

	records := make([]Record, 0, numRows)
	rows := make([]parquet.Row, 100)
	for {
		n, err := reader.ReadRows(rows)
		for i := 0; i < n; i++ {
			records = append(records, c.rowToRecord(rows[i]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read rows: %w", ErrInvalidFormat, err)
		}
	}
	return records, nil
}

// Encode writes records as one parquet file with snappy compression.
func (c *ParquetCodec) Encode(w io.Writer, records []Record) error {
	var buf bytes.Buffer
	rowBuf := parquet.NewBuffer(c.pqSchema)
	for i, record := range records {
		row, err := c.recordToRow(record, i)
		if err != nil {
			return err
		}
		if _, err := rowBuf.WriteRows([]parquet.Row{row}); err != nil {
			return fmt.Errorf("ticklake: parquet write row %d: %w", i, err)
		}
	}

	pqWriter := parquet.NewWriter(&buf, c.pqSchema, parquet.Compression(&parquet.Snappy))
	if _, err := pqWriter.WriteRowGroup(rowBuf); err != nil {
		_ = pqWriter.Close()
		return fmt.Errorf("ticklake: parquet write row group: %w", err)
	}
	if err := pqWriter.Close(); err != nil {
		return fmt.Errorf("ticklake: parquet close writer: %w", err)
	}

	_, err := io.Copy(w, &buf)
	return err
}

// -----------------------------------------------------------------------------
// Row conversion
// -----------------------------------------------------------------------------

func (c *ParquetCodec) fieldByName(name string) ParquetField {
	for _, f := range c.schema.Fields {
		if f.Name == name {
			return f
		}
	}
	return ParquetField{}
}

func (c *ParquetCodec) recordToRow(record Record, index int) (parquet.Row, error) {
	row := make(parquet.Row, len(c.fieldOrder))
	for i, name := range c.fieldOrder {
		field := c.fieldByName(name)

		val, exists := record[name]
		if !exists || val == nil {
			if !field.Nullable {
				return nil, fmt.Errorf("ticklake: record %d missing required field %q", index, name)
			}
			row[i] = parquet.NullValue().Level(0, 0, i)
			continue
		}

		pqVal, err := toParquetValue(val, field, index)
		if err != nil {
			return nil, err
		}
		defLevel := 1
		if !field.Nullable {
			defLevel = 0
		}
		row[i] = pqVal.Level(0, defLevel, i)
	}
	return row, nil
}

func (c *ParquetCodec) rowToRecord(row parquet.Row) Record {
	record := make(Record, len(c.fieldOrder))
	for i, name := range c.fieldOrder {
		if i >= len(row) {
			continue
		}
		field := c.fieldByName(name)
		val := row[i]
		if val.IsNull() {
			record[name] = nil
			continue
		}
		record[name] = fromParquetValue(val, field)
	}
	return record
}

func toParquetValue(val any, field ParquetField, index int) (parquet.Value, error) {
	switch field.Type {
	case ParquetInt64:
		switch v := val.(type) {
		case int:
			return parquet.Int64Value(int64(v)), nil
		case int64:
			return parquet.Int64Value(v), nil
		default:
			return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: expected int64, got %T", index, field.Name, val)
		}
	case ParquetFloat64:
		switch v := val.(type) {
		case float32:
			return parquet.DoubleValue(float64(v)), nil
		case float64:
			return parquet.DoubleValue(v), nil
		default:
			return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: expected float64, got %T", index, field.Name, val)
		}
	case ParquetString:
		v, ok := val.(string)
		if !ok {
			return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: expected string, got %T", index, field.Name, val)
		}
		return parquet.ByteArrayValue([]byte(v)), nil
	case ParquetBool:
		v, ok := val.(bool)
		if !ok {
			return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: expected bool, got %T", index, field.Name, val)
		}
		return parquet.BooleanValue(v), nil
	case ParquetTimestamp:
		switch v := val.(type) {
		case time.Time:
			return parquet.Int64Value(v.UnixNano()), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: invalid timestamp: %w", index, field.Name, err)
			}
			return parquet.Int64Value(t.UnixNano()), nil
		default:
			return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: expected time.Time, got %T", index, field.Name, val)
		}
	default:
		return parquet.Value{}, fmt.Errorf("ticklake: record %d field %q: unknown type %d", index, field.Name, field.Type)
	}
}

func fromParquetValue(val parquet.Value, field ParquetField) any {
	switch field.Type {
	case ParquetInt64:
		return val.Int64()
	case ParquetFloat64:
		return val.Double()
	case ParquetString:
		return string(val.ByteArray())
	case ParquetBool:
		return val.Boolean()
	case ParquetTimestamp:
		return time.Unix(0, val.Int64()).UTC()
	default:
		return nil
	}
}

func buildParquetSchema(schema ParquetSchema) *parquet.Schema {
	group := make(parquet.Group, len(schema.Fields))
	for _, field := range schema.Fields {
		group[field.Name] = buildFieldNode(field)
	}
	return parquet.NewSchema("record", group)
}

func buildFieldNode(field ParquetField) parquet.Node {
	var node parquet.Node
	switch field.Type {
	case ParquetInt64:
		node = parquet.Int(64)
	case ParquetFloat64:
		node = parquet.Leaf(parquet.DoubleType)
	case ParquetString:
		node = parquet.String()
	case ParquetBool:
		node = parquet.Leaf(parquet.BooleanType)
	case ParquetTimestamp:
		node = parquet.Timestamp(parquet.Nanosecond)
	default:
		// NewParquetCodec validates types before this can run.
		panic(fmt.Sprintf("invalid ParquetType %d for field %q", field.Type, field.Name))
	}
	if field.Nullable {
		node = parquet.Optional(node)
	}
	return node
}

var _ Codec = (*ParquetCodec)(nil)
