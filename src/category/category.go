// Package category turns the category values found in transaction rows into
// an ordered list, most general first.
package category

import (
	"encoding/json"
	"fmt"
	"strings"
)

const Uncategorized = "Uncategorized"

// Normalize accepts nil, a plain or JSON-encoded string, *string, []string or
// []any. Strings holding a JSON list are decoded; any other string is a single
// category. Empty list elements are dropped.
func Normalize(v any) []string {
	switch c := v.(type) {
	case nil:
		return []string{Uncategorized}
	case *string:
		if c == nil {
			return []string{Uncategorized}
		}
		return Normalize(*c)
	case string:
		s := strings.TrimSpace(c)
		if s == "" {
			return []string{Uncategorized}
		}
		if strings.HasPrefix(s, "[") {
			var list []any
			if err := json.Unmarshal([]byte(s), &list); err == nil {
				return fromList(list)
			}
		}
		return []string{s}
	case []string:
		out := make([]string, 0, len(c))
		for _, e := range c {
			if e != "" {
				out = append(out, e)
			}
		}
		return out
	case []any:
		return fromList(c)
	default:
		return []string{fmt.Sprint(c)}
	}
}

// Primary returns the first normalized category.
func Primary(v any) string {
	list := Normalize(v)
	if len(list) == 0 {
		return Uncategorized
	}
	return list[0]
}

func fromList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		switch x := e.(type) {
		case nil:
			continue
		case string:
			if x == "" {
				continue
			}
			out = append(out, x)
		case bool:
			if x {
				out = append(out, "true")
			}
		case float64:
			if x != 0 {
				out = append(out, fmt.Sprint(x))
			}
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}
