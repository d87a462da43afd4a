package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// toInt coerces v to an integer. Text is read as an integer, then as a
// float, then base 10 up to its first non-numeric character. Anything
// unreadable or outside the int64 range is zero.
func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case string:
		return textToInt(t)
	case []byte:
		return textToInt(string(t))
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	}
	if n, err := cast.ToIntE(v); err == nil {
		return n
	}
	return 0
}

func textToInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(f)
	}
	return floatToInt(leadingNumber(s))
}

// floatToInt truncates f, mapping NaN, infinities and values that do not
// fit in an int64 to zero.
func floatToInt(f float64) int {
	if math.IsNaN(f) || f < -(1<<63) || f >= 1<<63 {
		return 0
	}
	return int(f)
}

// toFloat coerces v to a float, decoding the Infinity, -Infinity and NaN
// tokens.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case []byte:
		return toFloat(string(t))
	case string:
		switch strings.TrimSpace(t) {
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		case "NaN":
			return math.NaN()
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
		return leadingNumber(t)
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f
	}
	return 0
}

// leadingNumber parses the longest numeric prefix of s.
func leadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			if !seenDigit {
				return 0
			}
			f, _ := strconv.ParseFloat(s[:end], 64)
			return f
		}
	}
	if !seenDigit {
		return 0
	}
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

// toDecimal formats v as fixed-point text with the given number of
// fraction digits, rounding half away from zero.
func toDecimal(v any, digits int) (string, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case decimal.Decimal:
		d = t
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(t))
	case []byte:
		d, err = decimal.NewFromString(strings.TrimSpace(string(t)))
	case float32:
		d = decimal.NewFromFloat32(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("%v is not a finite number", t)
		}
		d = decimal.NewFromFloat(t)
	case int, int8, int16, int32, int64:
		d = decimal.NewFromInt(cast.ToInt64(t))
	case uint, uint8, uint16, uint32, uint64:
		d, err = decimal.NewFromString(cast.ToString(t))
	default:
		var s string
		s, err = cast.ToStringE(v)
		if err == nil {
			d, err = decimal.NewFromString(s)
		}
	}
	if err != nil {
		return "", err
	}
	return d.StringFixed(int32(digits)), nil
}

// toString coerces v to text.
func toString(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// toBool coerces v to a boolean. Unrecognised text is true unless empty
// or "0".
func toBool(v any) bool {
	if b, err := cast.ToBoolE(v); err == nil {
		return b
	}
	if s, ok := v.(string); ok {
		return s != "" && s != "0"
	}
	return !reflect.ValueOf(v).IsZero()
}

// isNumeric reports whether v is a number or numeric text.
func isNumeric(v any) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil && strings.TrimSpace(t) != ""
	case json.Number:
		return true
	}
	return false
}

// fromJSON decodes textual values as JSON and passes anything else through.
// With asObject, top-level lists become index-keyed maps.
func fromJSON(codec Codec, v any, asObject bool) (any, error) {
	var data []byte
	switch t := v.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	default:
		if asObject {
			return listToObject(v), nil
		}
		return v, nil
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var out any
	if err := codec.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if asObject {
		return listToObject(out), nil
	}
	return out, nil
}

func listToObject(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	obj := make(map[string]any, len(list))
	for i, e := range list {
		obj[strconv.Itoa(i)] = e
	}
	return obj
}

// asJSON encodes v as JSON text for storage.
func asJSON(codec Codec, v any) (string, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// toCollection wraps a decoded value in a Collection. Objects contribute
// their values in key order.
func toCollection(v any) Collection {
	switch t := v.(type) {
	case nil:
		return Collection{}
	case Collection:
		return t
	case []any:
		return Collection(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Collection, len(keys))
		for i, k := range keys {
			out[i] = t[k]
		}
		return out
	}

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		out := make(Collection, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = val.Index(i).Interface()
		}
		return out
	}
	return Collection{v}
}

// isComposite reports whether v is an object-like value rather than a scalar.
func isComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}
