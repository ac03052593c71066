// Package translate rewrites logging message templates from framework
// dialects (Serilog-style destructuring, NLog-style renderers, Log4Net-style
// conversion patterns) into the common {Name} placeholder form, and orders
// parameter maps to match template placeholder order.
//
// Translation never fails a log call: on any error the original template is
// returned unchanged.
package translate

import (
	"regexp"
	"sort"
)

// Syntax identifies the placeholder dialect a template is written in.
type Syntax int

const (
	// SyntaxCommon is the shared {Name} form; translation is a no-op apart
	// from format-specifier cleanup.
	SyntaxCommon Syntax = iota
	// SyntaxSerilog covers {@Name}, {$Name}, alignment and format specifiers.
	SyntaxSerilog
	// SyntaxNLog covers ${renderer} forms and parameterized directives.
	SyntaxNLog
	// SyntaxLog4Net covers %property{Name} and % conversion patterns.
	SyntaxLog4Net
	// SyntaxZLogger uses brace placeholders with format specifiers.
	SyntaxZLogger
)

var (
	// {@Name or {$Name -> {Name
	reSigil = regexp.MustCompile(`\{[@$]`)
	// {Name:N2} or {Name,8:json} -> {Name}
	reFormat = regexp.MustCompile(`\{(\w+)[,:][^{}]*\}`)
	// ${when:...}, ${var:...}, ${event-properties:...} and other
	// parameterized directives are removed
	reDirective = regexp.MustCompile(`\$\{[\w-]+:[^}]*\}`)
	// ${name} -> {name}
	reRenderer = regexp.MustCompile(`\$\{(\w+)\}`)
	// %property{Name} -> {Name}
	reProperty = regexp.MustCompile(`%property\{(\w+)\}`)
	// remaining %x / %xyz conversion patterns are removed
	reConversion = regexp.MustCompile(`%-?\d*\.?\d*[a-zA-Z]+(\{[^}]*\})?`)

	rePlaceholder = regexp.MustCompile(`\{(\w+)\}`)
)

// log4netAliases maps conversion patterns with a direct placeholder
// equivalent; everything else is layout noise and gets dropped.
var log4netAliases = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`%(?:message|m)\b(\{[^}]*\})?`), "{Message}"},
	{regexp.MustCompile(`%(?:level|p)\b(\{[^}]*\})?`), "{Level}"},
	{regexp.MustCompile(`%(?:logger|c)\b(\{[^}]*\})?`), "{Logger}"},
	{regexp.MustCompile(`%(?:date|d)\b(\{[^}]*\})?`), "{Timestamp}"},
	{regexp.MustCompile(`%exception\b(\{[^}]*\})?`), "{Exception}"},
	{regexp.MustCompile(`%(?:newline|n)\b`), ""},
}

// Translate rewrites template from the given dialect into the common {Name}
// form. Unsupported directives are removed; any internal failure returns the
// template untouched.
func Translate(template string, from Syntax) (out string) {
	out = template
	defer func() {
		if recover() != nil {
			out = template
		}
	}()

	switch from {
	case SyntaxSerilog, SyntaxZLogger, SyntaxCommon:
		out = reSigil.ReplaceAllString(out, "{")
		out = reFormat.ReplaceAllString(out, "{$1}")
	case SyntaxNLog:
		out = reDirective.ReplaceAllString(out, "")
		out = reRenderer.ReplaceAllString(out, "{$1}")
		out = reFormat.ReplaceAllString(out, "{$1}")
	case SyntaxLog4Net:
		out = reProperty.ReplaceAllString(out, "{$1}")
		for _, alias := range log4netAliases {
			out = alias.re.ReplaceAllString(out, alias.replacement)
		}
		out = reConversion.ReplaceAllString(out, "")
	}
	return out
}

// Placeholders returns the template's placeholder names in order of first
// appearance, without duplicates.
func Placeholders(template string) []string {
	matches := rePlaceholder.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Param is a named parameter in template placeholder order.
type Param struct {
	Name  string
	Value interface{}
}

// MetadataKey collects parameters that have no matching placeholder.
const MetadataKey = "Metadata"

// OrderParams returns params ordered by first placeholder appearance in
// template. Parameters without a placeholder are gathered under a trailing
// Metadata entry, keyed by their original names.
func OrderParams(template string, params map[string]interface{}) []Param {
	ordered := make([]Param, 0, len(params))
	used := make(map[string]struct{}, len(params))

	for _, name := range Placeholders(template) {
		if value, ok := params[name]; ok {
			ordered = append(ordered, Param{Name: name, Value: value})
			used[name] = struct{}{}
		}
	}

	var leftovers []string
	for name := range params {
		if _, ok := used[name]; !ok {
			leftovers = append(leftovers, name)
		}
	}
	if len(leftovers) > 0 {
		sort.Strings(leftovers)
		meta := make(map[string]interface{}, len(leftovers))
		for _, name := range leftovers {
			meta[name] = params[name]
		}
		ordered = append(ordered, Param{Name: MetadataKey, Value: meta})
	}

	return ordered
}
