// Package keycase rewrites JSON object keys from the backend's snake_case
// wire convention to the camelCase convention used by clients.
//
// The rewrite is cosmetic and best-effort: keys that do not look like
// snake_case (uppercase letters, dashes, leading or doubled underscores) pass
// through untouched, and no value is ever altered.
package keycase

import "regexp"

// snakeKey matches segment(_segment)* with lowercase letters and digits.
var snakeKey = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// CamelKey converts a single key. "user_id" becomes "userId"; "a_1" stays
// "a_1" because only an underscore followed by a letter is folded.
func CamelKey(key string) string {
	if !snakeKey.MatchString(key) {
		return key
	}

	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '_' && i+1 < len(key) && key[i+1] >= 'a' && key[i+1] <= 'z' {
			out = append(out, key[i+1]-('a'-'A'))
			i++
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// ToCamel returns v with every object key passed through CamelKey,
// recursively. Arrays keep their length and order. Anything that is not a
// map[string]any or []any is returned as is.
//
// When an object carries both a snake_case key and its camelCase form, the
// key already spelled in camelCase wins.
//
// Applying ToCamel twice yields the same result as applying it once.
func ToCamel(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if CamelKey(k) == k {
				out[k] = ToCamel(val)
			}
		}
		for k, val := range t {
			ck := CamelKey(k)
			if ck == k {
				continue
			}
			if _, taken := out[ck]; !taken {
				out[ck] = ToCamel(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ToCamel(val)
		}
		return out
	default:
		return v
	}
}
