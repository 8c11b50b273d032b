package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing.
// This is the ONLY serialization that should be used for model hashing.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. Numbers use the ECMAScript shortest round-trip form
// 5. No null, NaN or Inf (returns error); callers encode infinite bounds
//    with CanonicalBound
func MarshalCanonical(v any) ([]byte, error) {
	return marshalCanonical(v)
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(strconv.Itoa(val)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		return marshalCanonicalNumber(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case []float64:
		arr := make([]any, len(val))
		for i, f := range val {
			arr[i] = f
		}
		return marshalCanonicalArray(arr)
	case []int:
		arr := make([]any, len(val))
		for i, n := range val {
			arr[i] = n
		}
		return marshalCanonicalArray(arr)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// CanonicalBound maps a bound to its canonical value: finite bounds stay
// numbers, infinite ones become "+inf" / "-inf".
func CanonicalBound(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return f
	}
}

// marshalCanonicalNumber formats a finite float the way ECMAScript's
// Number.prototype.toString does, which is what RFC 8785 mandates.
func marshalCanonicalNumber(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number is forbidden in canonical JSON: %v", f)
	}
	if f == 0 {
		return []byte("0"), nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	return []byte(mant + "e" + string(sign) + exp), nil
}

// marshalCanonicalString produces canonical JSON string with NFC normalization.
// RFC 8785 compliance:
// - No HTML escaping (<, >, & are NOT escaped)
// - U+2028 and U+2029 are NOT escaped
// - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters. An escape preceded by an odd run of backslashes is a literal
// "\\u2028" in the source text and stays untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// marshalCanonicalArray marshals an array to canonical JSON.
func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals an object to canonical JSON with RFC 8785 key ordering.
func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785. Go's default string comparison uses UTF-8 which
// produces a different order for supplementary-plane characters.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// CanonicalMap converts the model to the map form consumed by
// MarshalCanonical. Handles are excluded.
func (m *Model) CanonicalMap() map[string]any {
	vars := make([]any, len(m.Variables))
	for i, v := range m.Variables {
		vars[i] = map[string]any{
			"name":   v.Name,
			"role":   string(v.Role),
			"i":      v.I,
			"j":      v.J,
			"domain": string(v.Domain),
			"lower":  CanonicalBound(v.Lower),
			"upper":  CanonicalBound(v.Upper),
			"obj":    v.Obj,
		}
	}

	cons := make([]any, len(m.Constraints))
	for i, c := range m.Constraints {
		cons[i] = c.CanonicalMap()
	}

	out := map[string]any{
		"name":        m.Name,
		"n":           m.N,
		"d":           m.D,
		"k":           m.K,
		"mode":        string(m.Mode),
		"ridge":       m.Ridge,
		"capacity":    m.Capacity,
		"objective":   m.Objective,
		"variables":   vars,
		"constraints": cons,
	}
	if m.Weights != nil {
		out["weights"] = m.Weights
	}
	return out
}

// CanonicalMap converts the constraint to the map form consumed by
// MarshalCanonical. The handle is excluded.
func (c Constraint) CanonicalMap() map[string]any {
	linear := make([]any, len(c.Linear))
	for i, t := range c.Linear {
		linear[i] = map[string]any{"var": t.Var, "coef": t.Coef}
	}
	out := map[string]any{
		"name":   c.Name,
		"kind":   string(c.Kind),
		"linear": linear,
		"lower":  CanonicalBound(c.Lower),
		"upper":  CanonicalBound(c.Upper),
		"flags": map[string]any{
			"initial":   c.Flags.Initial,
			"separate":  c.Flags.Separate,
			"enforce":   c.Flags.Enforce,
			"check":     c.Flags.Check,
			"propagate": c.Flags.Propagate,
			"removable": c.Flags.Removable,
		},
	}
	if c.Cone != nil {
		out["cone"] = map[string]any{"x": c.Cone.X, "y": c.Cone.Y, "z": c.Cone.Z}
	}
	if c.Product != nil {
		out["product"] = map[string]any{
			"vars":     c.Product.Vars,
			"exponent": c.Product.Exponent,
			"coef":     c.Product.Coef,
		}
	}
	if c.LogSum != nil {
		out["log_sum"] = map[string]any{
			"vars":  c.LogSum.Vars,
			"coefs": c.LogSum.Coefs,
		}
	}
	return out
}
