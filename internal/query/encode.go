package query

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Decimal is a fixed-point value as reported by the driver, kept in its
// exact textual form until it is encoded.
type Decimal string

func (d Decimal) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(d)), 64)
}

// JSONValue converts one cell into a value encoding/json renders as a plain
// scalar. Fixed-point decimals become float64.
func JSONValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case Decimal:
		f, err := typed.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return string(typed)
		}
		return f
	case *big.Rat:
		if typed == nil {
			return nil
		}
		f, _ := typed.Float64()
		return f
	case *big.Float:
		if typed == nil {
			return nil
		}
		f, _ := typed.Float64()
		return f
	case *big.Int:
		if typed == nil {
			return nil
		}
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	case interface{ Float64() float64 }:
		return typed.Float64()
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	default:
		return typed
	}
}

// JSONRows applies JSONValue to every cell. The result is never nil so it
// always encodes as a JSON array.
func JSONRows(rows ResultSet) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		converted := make(map[string]any, len(row))
		for column, value := range row {
			converted[column] = JSONValue(value)
		}
		out = append(out, converted)
	}
	return out
}

// MarshalRows renders rows as JSON text with decimals converted.
func MarshalRows(rows ResultSet) ([]byte, error) {
	return json.Marshal(JSONRows(rows))
}
