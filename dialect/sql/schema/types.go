package schema

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/oolong-dev/oolong/schema/field"
)

// ErrUnsupportedType is returned for type information that has no MySQL
// column type.
var ErrUnsupportedType = errors.New("unsupported column type")

// MySQL limits used by the type mapping.
const (
	maxFloatDigits   = 23
	maxDoubleDigits  = 53
	maxDecimalDigits = 65
	maxVarLength     = 255
	maxTextLength    = 65535
	maxMediumLength  = 16777215
)

// ColumnType is a MySQL column type, e.g. DECIMAL(10, 2) UNSIGNED.
type ColumnType struct {
	// Base is the type name in upper case.
	Base     string
	Args     []int
	Values   []string
	Unsigned bool
}

// String renders the column type.
func (t *ColumnType) String() string {
	var b strings.Builder
	b.WriteString(t.Base)
	switch {
	case len(t.Values) > 0:
		quoted := make([]string, len(t.Values))
		for i, v := range t.Values {
			quoted[i] = Quote(v)
		}
		b.WriteString("(" + strings.Join(quoted, ", ") + ")")
	case len(t.Args) > 0:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = strconv.Itoa(a)
		}
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	if t.Unsigned {
		b.WriteString(" UNSIGNED")
	}
	return b.String()
}

// Blob reports whether the type cannot carry a literal default value.
func (t *ColumnType) Blob() bool {
	switch t.Base {
	case "TEXT", "MEDIUMTEXT", "LONGTEXT", "BLOB", "MEDIUMBLOB", "LONGBLOB", "JSON":
		return true
	}
	return false
}

// ColumnTypeOf maps resolved type information to a MySQL column type.
func ColumnTypeOf(info field.TypeInfo) (*ColumnType, error) {
	switch info.Type {
	case field.TypeInt:
		return intType(info)
	case field.TypeFloat:
		return floatType(info)
	case field.TypeDecimal:
		if info.TotalDigits > maxDecimalDigits {
			return nil, unsupported(info, "totalDigits %d exceeds %d", info.TotalDigits, maxDecimalDigits)
		}
		return &ColumnType{Base: "DECIMAL", Args: precision(info), Unsigned: info.Unsigned}, nil
	case field.TypeText:
		return lengthType(info, "CHAR", "VARCHAR", [3]string{"TEXT", "MEDIUMTEXT", "LONGTEXT"})
	case field.TypeBinary:
		return lengthType(info, "BINARY", "VARBINARY", [3]string{"BLOB", "MEDIUMBLOB", "LONGBLOB"})
	case field.TypeBool:
		return &ColumnType{Base: "TINYINT", Args: []int{1}}, nil
	case field.TypeDatetime:
		switch strings.ToLower(info.Range) {
		case "", "datetime":
			return &ColumnType{Base: "DATETIME"}, nil
		case "date":
			return &ColumnType{Base: "DATE"}, nil
		case "time":
			return &ColumnType{Base: "TIME"}, nil
		case "year":
			return &ColumnType{Base: "YEAR"}, nil
		case "timestamp":
			return &ColumnType{Base: "TIMESTAMP"}, nil
		default:
			return nil, unsupported(info, "datetime range %q", info.Range)
		}
	case field.TypeEnum:
		if len(info.Values) == 0 {
			return nil, unsupported(info, "enum without values")
		}
		return &ColumnType{Base: "ENUM", Values: info.Values}, nil
	case field.TypeObject, field.TypeArray:
		return &ColumnType{Base: "JSON"}, nil
	default:
		return nil, unsupported(info, "type %q", info.Type)
	}
}

func intType(info field.TypeInfo) (*ColumnType, error) {
	t := &ColumnType{Unsigned: info.Unsigned}
	switch d := info.Digits; {
	case d > 0:
		switch {
		case d <= 2:
			t.Base = "TINYINT"
		case d <= 4:
			t.Base = "SMALLINT"
		case d <= 7:
			t.Base = "MEDIUMINT"
		case d <= 10:
			t.Base = "INT"
		default:
			t.Base = "BIGINT"
		}
		t.Args = []int{d}
	case info.Bytes > 0:
		switch b := info.Bytes; {
		case b == 1:
			t.Base = "TINYINT"
		case b == 2:
			t.Base = "SMALLINT"
		case b == 3:
			t.Base = "MEDIUMINT"
		case b == 4:
			t.Base = "INT"
		case b <= 8:
			t.Base = "BIGINT"
		default:
			return nil, unsupported(info, "int of %d bytes", b)
		}
	default:
		t.Base = "INT"
	}
	return t, nil
}

func floatType(info field.TypeInfo) (*ColumnType, error) {
	t := &ColumnType{Base: "FLOAT", Unsigned: info.Unsigned}
	switch d := info.TotalDigits; {
	case d <= maxFloatDigits:
	case d <= maxDoubleDigits:
		t.Base = "DOUBLE"
	default:
		return nil, unsupported(info, "totalDigits %d exceeds %d", d, maxDoubleDigits)
	}
	t.Args = precision(info)
	return t, nil
}

func precision(info field.TypeInfo) []int {
	switch {
	case info.TotalDigits > 0 && info.DecimalDigits > 0:
		return []int{info.TotalDigits, info.DecimalDigits}
	case info.TotalDigits > 0:
		return []int{info.TotalDigits}
	default:
		return nil
	}
}

func lengthType(info field.TypeInfo, fixed, variable string, blobs [3]string) (*ColumnType, error) {
	if n := info.FixedLength; n > 0 && n <= maxVarLength {
		return &ColumnType{Base: fixed, Args: []int{n}}, nil
	}
	n := info.MaxLength
	if n == 0 {
		n = info.FixedLength
	}
	switch {
	case n > 0 && n <= maxVarLength:
		return &ColumnType{Base: variable, Args: []int{n}}, nil
	case n <= maxTextLength:
		return &ColumnType{Base: blobs[0]}, nil
	case n <= maxMediumLength:
		return &ColumnType{Base: blobs[1]}, nil
	default:
		return &ColumnType{Base: blobs[2]}, nil
	}
}

func unsupported(info field.TypeInfo, format string, args ...any) error {
	return errors.Wrapf(ErrUnsupportedType, "%s: "+format, append([]any{info.Type}, args...)...)
}

// Quote quotes a string literal.
func Quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// Ident quotes an identifier.
func Ident(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// TypeInfo returns the type information mapping back to t. It is the
// inverse of ColumnTypeOf for the types ColumnTypeOf emits; bt tells a
// boolean TINYINT(1) from an integer one.
func (t *ColumnType) TypeInfo(bt field.Type) field.TypeInfo {
	arg := func(i int) int {
		if i < len(t.Args) {
			return t.Args[i]
		}
		return 0
	}
	switch t.Base {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT":
		if bt == field.TypeBool {
			return field.TypeInfo{Type: field.TypeBool}
		}
		info := field.TypeInfo{Type: field.TypeInt, Unsigned: t.Unsigned, Digits: arg(0)}
		if info.Digits == 0 {
			info.Bytes = map[string]int{"TINYINT": 1, "SMALLINT": 2, "MEDIUMINT": 3, "INT": 4, "BIGINT": 8}[t.Base]
		}
		return info
	case "FLOAT", "DOUBLE":
		info := field.TypeInfo{Type: field.TypeFloat, Unsigned: t.Unsigned, TotalDigits: arg(0), DecimalDigits: arg(1)}
		if t.Base == "DOUBLE" && info.TotalDigits <= maxFloatDigits {
			info.TotalDigits = maxDoubleDigits
		}
		return info
	case "DECIMAL":
		return field.TypeInfo{Type: field.TypeDecimal, Unsigned: t.Unsigned, TotalDigits: arg(0), DecimalDigits: arg(1)}
	case "CHAR":
		return field.TypeInfo{Type: field.TypeText, FixedLength: arg(0)}
	case "VARCHAR":
		return field.TypeInfo{Type: field.TypeText, MaxLength: arg(0)}
	case "TEXT":
		return field.TypeInfo{Type: field.TypeText}
	case "MEDIUMTEXT":
		return field.TypeInfo{Type: field.TypeText, MaxLength: maxMediumLength}
	case "LONGTEXT":
		return field.TypeInfo{Type: field.TypeText, MaxLength: maxMediumLength + 1}
	case "BINARY":
		return field.TypeInfo{Type: field.TypeBinary, FixedLength: arg(0)}
	case "VARBINARY":
		return field.TypeInfo{Type: field.TypeBinary, MaxLength: arg(0)}
	case "BLOB":
		return field.TypeInfo{Type: field.TypeBinary}
	case "MEDIUMBLOB":
		return field.TypeInfo{Type: field.TypeBinary, MaxLength: maxMediumLength}
	case "LONGBLOB":
		return field.TypeInfo{Type: field.TypeBinary, MaxLength: maxMediumLength + 1}
	case "DATE", "TIME", "YEAR", "TIMESTAMP":
		return field.TypeInfo{Type: field.TypeDatetime, Range: strings.ToLower(t.Base)}
	case "ENUM":
		return field.TypeInfo{Type: field.TypeEnum, Values: t.Values}
	case "JSON":
		return field.TypeInfo{Type: field.TypeObject}
	case "DATETIME":
		return field.TypeInfo{Type: field.TypeDatetime}
	default:
		return field.TypeInfo{Type: field.Type(strings.ToLower(t.Base))}
	}
}
