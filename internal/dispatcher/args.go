package dispatcher

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Args is the loosely typed argument bag of one call. Values are
// whatever the host codec produced; accessors normalize the shapes JSON
// decoding yields.
type Args map[string]any

// ParseArgs decodes a JSON object. Empty input is an empty bag.
func ParseArgs(raw []byte) (Args, error) {
	if len(raw) == 0 {
		return Args{}, nil
	}
	var a Args
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode arguments: %w", ErrInvalidArgument, err)
	}
	if a == nil {
		a = Args{}
	}
	return a, nil
}

func (a Args) lookup(key string) (any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %q is required", ErrInvalidArgument, key)
	}
	return v, nil
}

func mismatch(key, want string, got any) error {
	return fmt.Errorf("%w: %q must be %s, got %T", ErrInvalidArgument, key, want, got)
}

func (a Args) String(key string) (string, error) {
	v, err := a.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(key, "a string", v)
	}
	return s, nil
}

// OptString returns "" and false when key is absent or null.
func (a Args) OptString(key string) (string, bool) {
	s, err := a.String(key)
	if err != nil {
		return "", false
	}
	return s, true
}

func (a Args) Bool(key string) (bool, error) {
	v, err := a.lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, mismatch(key, "a boolean", v)
	}
	return b, nil
}

func (a Args) Int(key string) (int, error) {
	v, err := a.lookup(key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok {
		return 0, mismatch(key, "an integer", v)
	}
	return n, nil
}

func (a Args) Float(key string) (float64, error) {
	v, err := a.lookup(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, mismatch(key, "a number", v)
		}
		return f, nil
	}
	return 0, mismatch(key, "a number", v)
}

// IntString reads a decimal integer sent as a string, e.g. "30000".
func (a Args) IntString(key string) (int64, error) {
	s, err := a.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidArgument, key, err)
	}
	return n, nil
}

// Int32String is IntString for values the SDK takes as a 32-bit int.
// Out of range values are rejected rather than truncated.
func (a Args) Int32String(key string) (int, error) {
	s, err := a.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidArgument, key, err)
	}
	return int(n), nil
}

func (a Args) Strings(key string) ([]string, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, mismatch(key, "a list of strings", v)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, mismatch(key, "a list of strings", v)
}

func (a Args) Ints(key string) ([]int, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	switch l := v.(type) {
	case []int:
		return l, nil
	case []any:
		out := make([]int, 0, len(l))
		for _, item := range l {
			n, ok := toInt(item)
			if !ok {
				return nil, mismatch(key, "a list of integers", v)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, mismatch(key, "a list of integers", v)
}

func (a Args) StringMap(key string) (map[string]string, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, item := range m {
			s, ok := item.(string)
			if !ok {
				return nil, mismatch(key, "a string map", v)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, mismatch(key, "a string map", v)
}

// IntStringMap reads an integer-keyed map. JSON objects carry the keys
// as decimal strings.
func (a Args) IntStringMap(key string) (map[int]string, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case map[int]string:
		return m, nil
	case map[string]string:
		out := make(map[int]string, len(m))
		for k, s := range m {
			n, err := strconv.Atoi(k)
			if err != nil {
				return nil, mismatch(key, "an integer-keyed map", v)
			}
			out[n] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[int]string, len(m))
		for k, item := range m {
			n, err := strconv.Atoi(k)
			if err != nil {
				return nil, mismatch(key, "an integer-keyed map", v)
			}
			s, ok := item.(string)
			if !ok {
				return nil, mismatch(key, "an integer-keyed string map", v)
			}
			out[n] = s
		}
		return out, nil
	}
	return nil, mismatch(key, "an integer-keyed map", v)
}

// toInt accepts integers in 32-bit range, the width of every integer
// argument the SDK takes.
func toInt(v any) (int, bool) {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		i = int64(n)
	case json.Number:
		var err error
		if i, err = n.Int64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}
