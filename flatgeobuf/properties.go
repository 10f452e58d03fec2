package flatgeobuf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// column is one property column of a file being written. Only the column
// types a vector tile value can hold are ever inferred.
type column struct {
	name string
	typ  flattypes.ColumnType
}

// inferSchema collects every property name across the features, in sorted
// order, and picks a column type that can hold all of its values.
func inferSchema(features []*geojson.Feature) []column {
	types := make(map[string]flattypes.ColumnType)
	for _, f := range features {
		if f == nil {
			continue
		}
		for name, value := range f.Properties {
			if value == nil {
				continue
			}

			t := inferColumnType(value)
			if existing, ok := types[name]; ok {
				t = promoteColumnType(existing, t)
			}
			types[name] = t
		}
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := make([]column, len(names))
	for i, name := range names {
		schema[i] = column{name: name, typ: types[name]}
	}
	return schema
}

// writerColumns builds the header columns for a schema.
func writerColumns(schema []column, builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(schema))
	for _, c := range schema {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name)
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

func inferColumnType(value interface{}) flattypes.ColumnType {
	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int, int8, int16, int32, int64:
		return flattypes.ColumnTypeLong
	case uint, uint8, uint16, uint32, uint64:
		return flattypes.ColumnTypeULong
	case float32:
		return flattypes.ColumnTypeFloat
	case float64:
		return flattypes.ColumnTypeDouble
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	default:
		return flattypes.ColumnTypeString
	}
}

// promoteColumnType returns a type that holds values of both a and b.
// Mixed numeric columns become Double, anything else mixed becomes String.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if isNumeric(a) && isNumeric(b) {
		return flattypes.ColumnTypeDouble
	}
	return flattypes.ColumnTypeString
}

func isNumeric(t flattypes.ColumnType) bool {
	switch t {
	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong,
		flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
		return true
	}
	return false
}

// encodeProperties writes the feature's properties in column order as
// [uint16 column index][value] pairs. Nil values are left out.
func encodeProperties(props geojson.Properties, schema []column) ([]byte, error) {
	if len(props) == 0 || len(schema) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for i, c := range schema {
		value, ok := props[c.name]
		if !ok || value == nil {
			continue
		}

		if err := binary.Write(&buf, binary.LittleEndian, uint16(i)); err != nil {
			return nil, err
		}
		if err := writeValue(&buf, value, c.typ); err != nil {
			return nil, errors.Wrapf(err, "property %q", c.name)
		}
	}

	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, value interface{}, typ flattypes.ColumnType) error {
	var b [8]byte

	switch typ {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return errors.Newf("expected bool, got %T", value)
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		if !ok {
			return errors.Newf("expected integer, got %T", value)
		}
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeULong:
		v, ok := toUint64(value)
		if !ok {
			return errors.Newf("expected unsigned integer, got %T", value)
		}
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])

	case flattypes.ColumnTypeFloat:
		v, ok := value.(float32)
		if !ok {
			return errors.Newf("expected float32, got %T", value)
		}
		binary.LittleEndian.PutUint32(b[:4], math.Float32bits(v))
		buf.Write(b[:4])

	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return errors.Newf("expected number, got %T", value)
		}
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeString:
		s := toString(value)
		binary.LittleEndian.PutUint32(b[:4], uint32(len(s)))
		buf.Write(b[:4])
		buf.WriteString(s)

	default:
		return errors.Wrapf(ErrInvalidColumn, "%s", flattypes.EnumNamesColumnType[typ])
	}

	return nil
}

// decodeProperties reads a feature's property buffer using the header's
// columns. Values come back as the Go types a vector tile value accepts:
// string, bool, int64, uint64, float32 and float64.
func decodeProperties(data []byte, header *flattypes.Header) (geojson.Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}

	props := make(geojson.Properties)
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, errors.Newf("flatgeobuf: truncated column index at byte %d", offset)
		}
		idx := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		var col flattypes.Column
		if idx >= header.ColumnsLength() || !header.Columns(&col, idx) {
			return nil, errors.Newf("flatgeobuf: column index %d out of range", idx)
		}

		value, n, err := readValue(data[offset:], col.Type())
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", col.Name())
		}
		offset += n

		props[string(col.Name())] = value
	}

	return props, nil
}

func readValue(data []byte, typ flattypes.ColumnType) (interface{}, int, error) {
	need := func(n int) error {
		if len(data) < n {
			return errors.Newf("flatgeobuf: need %d bytes, have %d", n, len(data))
		}
		return nil
	}

	switch typ {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0] != 0, 1, nil

	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int64(int8(data[0])), 1, nil

	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return uint64(data[0]), 1, nil

	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(data))), 2, nil

	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return uint64(binary.LittleEndian.Uint16(data)), 2, nil

	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(data))), 4, nil

	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return uint64(binary.LittleEndian.Uint32(data)), 4, nil

	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint64(data)), 8, nil

	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return binary.LittleEndian.Uint64(data), 8, nil

	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), 4, nil

	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(binary.LittleEndian.Uint32(data))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		return string(data[4 : 4+n]), 4 + n, nil

	default:
		return nil, 0, errors.Wrapf(ErrInvalidColumn, "%s", flattypes.EnumNamesColumnType[typ])
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case json.Number:
		i, err := val.Int64()
		return i, err == nil
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint:
		return uint64(val), true
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}

	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
