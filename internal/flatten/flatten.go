// Package flatten converts nested JSON documents into flat colon-delimited
// configuration keys. All configuration sources share this logic so that a
// JSON secret payload and a hierarchical parameter path produce the same
// key shape.
package flatten

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Delimiter separates key segments in the flat configuration table.
const Delimiter = ":"

// Flatten parses raw as JSON and walks it into a flat key/value map rooted at
// prefix. Objects recurse with "prefix:property", arrays with "prefix:index".
// If raw is not valid JSON the input is stored verbatim under prefix and no
// error is reported; a source value that merely looks like text is still a
// valid configuration value.
func Flatten(raw []byte, prefix string) map[string]string {
	out := make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		out[prefix] = string(raw)
		return out
	}
	// Trailing garbage after the document also means "not JSON".
	if dec.More() {
		out[prefix] = string(raw)
		return out
	}

	walk(doc, prefix, out)
	return out
}

// IsJSON reports whether raw parses as a JSON object or array. Scalar JSON
// values are deliberately excluded: a plain "42" or "true" secret should stay
// a single configuration value, not be re-rooted.
func IsJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid(trimmed)
}

func walk(node interface{}, prefix string, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			return
		}
		// Sorted iteration keeps output deterministic for identical input.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(v[k], join(prefix, k), out)
		}
	case []interface{}:
		for i, elem := range v {
			walk(elem, join(prefix, strconv.Itoa(i)), out)
		}
	case string:
		out[prefix] = v
	case json.Number:
		out[prefix] = v.String()
	case bool:
		if v {
			out[prefix] = "true"
		} else {
			out[prefix] = "false"
		}
	case nil:
		out[prefix] = ""
	}
}

func join(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + Delimiter + segment
}
