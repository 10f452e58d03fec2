package mvt

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/paulmach/orb/geojson"
)

// valueKind is the Tile.Value variant a property value is stored as.
type valueKind uint8

const (
	kindString valueKind = iota + 1
	kindFloat
	kindDouble
	kindUint
	kindSint
	kindBool
)

// valueKey identifies a value for interning. Two values share a table
// entry only if both the variant and the exact payload bits match.
type valueKey struct {
	kind valueKind
	s    string
	n    uint64
}

// keyValueEncoder interns the keys and values of one layer.
type keyValueEncoder struct {
	Keys   []string
	keyMap map[string]uint32

	Values   []*vectortile.Tile_Value
	valueMap map[valueKey]uint32

	keySortBuffer []string
}

func newKeyValueEncoder() *keyValueEncoder {
	return &keyValueEncoder{
		keyMap:   make(map[string]uint32),
		valueMap: make(map[valueKey]uint32),
	}
}

func (kve *keyValueEncoder) Key(s string) uint32 {
	if i, ok := kve.keyMap[s]; ok {
		return i
	}

	i := uint32(len(kve.Keys))
	kve.Keys = append(kve.Keys, s)
	kve.keyMap[s] = i

	return i
}

func (kve *keyValueEncoder) Value(v interface{}) (uint32, error) {
	key, err := canonicalValue(v)
	if err != nil {
		return 0, err
	}

	if i, ok := kve.valueMap[key]; ok {
		return i, nil
	}

	i := uint32(len(kve.Values))
	kve.Values = append(kve.Values, key.tileValue())
	kve.valueMap[key] = i

	return i, nil
}

// Tags interns the properties and returns the feature's tag list. Keys are
// visited in sorted order so the output does not depend on map iteration.
// Nil values are left out since MVT has no null.
func (kve *keyValueEncoder) Tags(props geojson.Properties) ([]uint32, error) {
	tags := make([]uint32, 0, 2*len(props))

	kve.keySortBuffer = kve.keySortBuffer[:0]
	for k, v := range props {
		if v != nil {
			kve.keySortBuffer = append(kve.keySortBuffer, k)
		}
	}
	sort.Strings(kve.keySortBuffer)

	for _, k := range kve.keySortBuffer {
		vi, err := kve.Value(props[k])
		if err != nil {
			return nil, schemaViolation("property %q: %v", k, err)
		}
		tags = append(tags, kve.Key(k), vi)
	}

	return tags, nil
}

// canonicalValue maps a Go value onto its wire variant. Signed integers
// become sint, unsigned integers uint, float32 float and float64 double.
// Integral floats stay floats.
func canonicalValue(v interface{}) (valueKey, error) {
	switch t := v.(type) {
	case string:
		return valueKey{kind: kindString, s: t}, nil
	case bool:
		if t {
			return valueKey{kind: kindBool, n: 1}, nil
		}
		return valueKey{kind: kindBool}, nil
	case int:
		return sintKey(int64(t)), nil
	case int8:
		return sintKey(int64(t)), nil
	case int16:
		return sintKey(int64(t)), nil
	case int32:
		return sintKey(int64(t)), nil
	case int64:
		return sintKey(t), nil
	case uint:
		return valueKey{kind: kindUint, n: uint64(t)}, nil
	case uint8:
		return valueKey{kind: kindUint, n: uint64(t)}, nil
	case uint16:
		return valueKey{kind: kindUint, n: uint64(t)}, nil
	case uint32:
		return valueKey{kind: kindUint, n: uint64(t)}, nil
	case uint64:
		return valueKey{kind: kindUint, n: t}, nil
	case float32:
		return valueKey{kind: kindFloat, n: uint64(math.Float32bits(t))}, nil
	case float64:
		return valueKey{kind: kindDouble, n: math.Float64bits(t)}, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return sintKey(i), nil
		}
		if f, err := t.Float64(); err == nil {
			return valueKey{kind: kindDouble, n: math.Float64bits(f)}, nil
		}
		return valueKey{}, errors.Newf("invalid number %q", string(t))
	}

	return valueKey{}, errors.Newf("unable to encode value of type %T", v)
}

func sintKey(i int64) valueKey {
	return valueKey{kind: kindSint, n: uint64(i)}
}

func (k valueKey) tileValue() *vectortile.Tile_Value {
	tv := &vectortile.Tile_Value{}
	switch k.kind {
	case kindString:
		s := k.s
		tv.StringValue = &s
	case kindFloat:
		f := math.Float32frombits(uint32(k.n))
		tv.FloatValue = &f
	case kindDouble:
		f := math.Float64frombits(k.n)
		tv.DoubleValue = &f
	case kindUint:
		u := k.n
		tv.UintValue = &u
	case kindSint:
		i := int64(k.n)
		tv.SintValue = &i
	case kindBool:
		b := k.n == 1
		tv.BoolValue = &b
	}
	return tv
}

// decodeValue returns the Go value for a table entry. int and sint values
// decode to int64, uint to uint64, float to float32 and double to float64.
func decodeValue(v *vectortile.Tile_Value) (interface{}, error) {
	switch {
	case v == nil:
		return nil, errors.New("nil value")
	case v.StringValue != nil:
		return *v.StringValue, nil
	case v.FloatValue != nil:
		return *v.FloatValue, nil
	case v.DoubleValue != nil:
		return *v.DoubleValue, nil
	case v.IntValue != nil:
		return *v.IntValue, nil
	case v.UintValue != nil:
		return *v.UintValue, nil
	case v.SintValue != nil:
		return *v.SintValue, nil
	case v.BoolValue != nil:
		return *v.BoolValue, nil
	}
	return nil, errors.New("value has no known variant")
}

// decodeTags resolves a feature's tag list against the layer tables.
func decodeTags(tags []uint32, keys []string, values []*vectortile.Tile_Value) (geojson.Properties, error) {
	if len(tags)%2 != 0 {
		return nil, schemaViolation("odd number of tags: %d", len(tags))
	}

	props := make(geojson.Properties, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		ki, vi := tags[i], tags[i+1]
		if int(ki) >= len(keys) {
			return nil, schemaViolation("key index %d out of range [0, %d)", ki, len(keys))
		}
		if int(vi) >= len(values) {
			return nil, schemaViolation("value index %d out of range [0, %d)", vi, len(values))
		}

		v, err := decodeValue(values[vi])
		if err != nil {
			return nil, schemaViolation("key %q: %v", keys[ki], err)
		}
		props[keys[ki]] = v
	}

	return props, nil
}
