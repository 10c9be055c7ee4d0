package sqlengine

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"modernc.org/sqlite"
)

// FunctionCategory groups the SQL functions a query may use
type FunctionCategory struct {
	Name      string   `json:"name"`
	Functions []string `json:"functions"`
}

// Functions is the capability list surfaced to callers. It names SQLite built-ins
// plus the scalar functions registered below.
var Functions = []FunctionCategory{
	{Name: "aggregate", Functions: []string{"avg", "count", "group_concat", "max", "min", "string_agg", "sum", "total"}},
	{Name: "array", Functions: []string{"json_array", "json_array_length", "json_each", "json_extract", "json_group_array"}},
	{Name: "bitwise", Functions: []string{"bit_count", "& (and)", "| (or)", "~ (not)", "<< and >> (shift)"}},
	{Name: "conditional", Functions: []string{"case", "coalesce", "greatest", "ifnull", "iif", "least", "nullif"}},
	{Name: "mathematical", Functions: []string{"abs", "ceil", "ceiling", "exp", "floor", "ln", "log", "log10", "log2", "mod", "pi", "pow", "power", "round", "sign", "sqrt", "trunc"}},
	{Name: "string", Functions: []string{"concat", "concat_ws", "ends_with", "format", "initcap", "instr", "left", "length", "like", "lower", "ltrim", "octet_length", "regexp", "regexp_like", "replace", "reverse", "right", "rtrim", "starts_with", "strpos", "substr", "trim", "upper"}},
	{Name: "temporal", Functions: []string{"date", "datetime", "julianday", "strftime", "time", "unixepoch"}},
	{Name: "type", Functions: []string{"cast", "typeof"}},
	{Name: "trigonometric", Functions: []string{"acos", "acosh", "asin", "asinh", "atan", "atan2", "atanh", "cos", "cosh", "cot", "degrees", "radians", "sin", "sinh", "tan", "tanh"}},
}

// FunctionsDoc renders Functions for tool descriptions
func FunctionsDoc() string {
	var b strings.Builder
	for i, cat := range Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(capitalize(cat.Name))
		b.WriteString(":\n")
		for _, fn := range cat.Functions {
			b.WriteString("- ")
			b.WriteString(fn)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("starts_with", 2, stringPredicate(strings.HasPrefix))
	sqlite.MustRegisterDeterministicScalarFunction("ends_with", 2, stringPredicate(strings.HasSuffix))
	sqlite.MustRegisterDeterministicScalarFunction("initcap", 1, initcap)
	sqlite.MustRegisterDeterministicScalarFunction("left", 2, left)
	sqlite.MustRegisterDeterministicScalarFunction("right", 2, right)
	sqlite.MustRegisterDeterministicScalarFunction("reverse", 1, reverse)
	sqlite.MustRegisterDeterministicScalarFunction("strpos", 2, strpos)
	sqlite.MustRegisterDeterministicScalarFunction("regexp_like", 2, regexpLike)
	// X REGEXP Y calls regexp(Y, X)
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		return regexpLike(ctx, []driver.Value{args[1], args[0]})
	})
	sqlite.MustRegisterDeterministicScalarFunction("greatest", -1, extreme(1))
	sqlite.MustRegisterDeterministicScalarFunction("least", -1, extreme(-1))
	sqlite.MustRegisterDeterministicScalarFunction("bit_count", 1, bitCount)
	sqlite.MustRegisterDeterministicScalarFunction("cot", 1, cot)
}

type scalarFunc = func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error)

func stringPredicate(pred func(s, affix string) bool) scalarFunc {
	return func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if hasNull(args) {
			return nil, nil
		}
		return boolInt(pred(asString(args[0]), asString(args[1]))), nil
	}
}

func initcap(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	runes := []rune(strings.ToLower(asString(args[0])))
	start := true
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start {
				runes[i] = unicode.ToUpper(r)
			}
			start = false
		} else {
			start = true
		}
	}
	return string(runes), nil
}

func left(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	runes := []rune(asString(args[0]))
	n, err := asInt(args[1])
	if err != nil {
		return nil, err
	}
	n = clamp(n, len(runes))
	return string(runes[:n]), nil
}

func right(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	runes := []rune(asString(args[0]))
	n, err := asInt(args[1])
	if err != nil {
		return nil, err
	}
	n = clamp(n, len(runes))
	return string(runes[len(runes)-n:]), nil
}

func reverse(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	runes := []rune(asString(args[0]))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func strpos(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	s, sub := asString(args[0]), asString(args[1])
	idx := strings.Index(s, sub)
	if idx < 0 {
		return int64(0), nil
	}
	return int64(len([]rune(s[:idx])) + 1), nil
}

func regexpLike(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	re, err := regexp.Compile(asString(args[1]))
	if err != nil {
		return nil, err
	}
	return boolInt(re.MatchString(asString(args[0]))), nil
}

// extreme returns greatest (sign 1) or least (sign -1) of the non-null arguments
func extreme(sign int) scalarFunc {
	return func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		var best driver.Value
		for _, v := range args {
			if v == nil {
				continue
			}
			if best == nil || compareValues(v, best)*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func bitCount(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	n, err := asInt(args[0])
	if err != nil {
		return nil, err
	}
	return int64(bits.OnesCount64(uint64(n))), nil
}

func cot(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if hasNull(args) {
		return nil, nil
	}
	x, ok := asFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("cot: numeric argument required")
	}
	return 1 / math.Tan(x), nil
}

func compareValues(a, b driver.Value) int {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(asString(a), asString(b))
}

func hasNull(args []driver.Value) bool {
	for _, a := range args {
		if a == nil {
			return true
		}
	}
	return false
}

func asString(v driver.Value) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v driver.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func asInt(v driver.Value) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("integer argument required, got %T", v)
	}
}

func clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
