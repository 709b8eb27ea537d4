package table

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ErrNotNumeric is returned when a value cannot be read as a number.
var ErrNotNumeric = errors.New("value is not numeric")

// SQL column types produced by SQLType.
const (
	TypeBigInt    = "BIGINT"
	TypeDouble    = "DOUBLE"
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
	TypeVarchar   = "VARCHAR"
)

// Normalize converts a driver value into one of the plain cell types:
// nil, int64, float64, bool, string or time.Time.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, int64, float64, bool, string, time.Time:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		// DECIMAL values from drivers that expose a float view
		return x.Float64()
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

// ToFloat reads a cell as float64. Strings are parsed after trimming spaces.
// A nil cell is not numeric.
func ToFloat(v any) (float64, error) {
	switch x := Normalize(v).(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrNotNumeric, v, v)
	}
}

// SQLType infers a column type from its values. Missing values are ignored;
// an all-missing column is VARCHAR.
func SQLType(values []any) string {
	var ints, floats, bools, times, others int
	for _, v := range values {
		switch Normalize(v).(type) {
		case nil:
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return TypeVarchar
	case bools > 0 && ints+floats+times == 0:
		return TypeBoolean
	case times > 0 && ints+floats+bools == 0:
		return TypeTimestamp
	case floats > 0 && bools+times == 0:
		return TypeDouble
	case ints > 0 && bools+times == 0:
		return TypeBigInt
	case ints+floats+bools+times == 0:
		return TypeVarchar
	default:
		return TypeVarchar
	}
}

// Coerce adapts a cell to the SQL type of the column it is written to.
// Values that already fit, and types it does not know, pass through unchanged.
func Coerce(v any, sqlType string) any {
	v = Normalize(v)
	if v == nil {
		return nil
	}

	switch strings.ToUpper(sqlType) {
	case TypeVarchar, "TEXT", "STRING":
		if s, ok := v.(string); ok {
			return s
		}
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	case TypeDouble, "FLOAT", "REAL":
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	}
	return v
}

// integerTypes are the SQL column types that cannot hold a fraction.
var integerTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INTEGER": true, "INT": true, TypeBigInt: true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true,
}

// Truncates reports whether writing v to a column of sqlType would drop a
// fractional part.
func Truncates(v any, sqlType string) bool {
	f, ok := Normalize(v).(float64)
	if !ok || !integerTypes[strings.ToUpper(sqlType)] {
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f != math.Trunc(f)
}
