// Package masking replaces sensitive values before they reach a log sink.
//
// A value is masked when one of these markers applies, checked in order:
//
//  1. the value's type declares itself sensitive (Sensitive interface)
//  2. the call site wrapped it with Mask or MaskAs
//  3. its parameter name matches a configured name pattern
//  4. its struct type carries `mask` field tags, in which case a shallow
//     clone is returned with only the tagged fields replaced
//
// Masking is best-effort: if a struct cannot be cloned faithfully the
// original value is returned unchanged rather than failing the log call.
package masking

import (
	"reflect"
	"strings"
	"sync"
)

// DefaultReplacement substitutes masked values when no custom text is configured.
const DefaultReplacement = "***MASKED***"

// Sensitive marks a type whose values are always masked in full.
// Masked() returns the replacement text to log instead of the value.
type Sensitive interface {
	Masked() string
}

// Value is a call-site masking wrapper around a single parameter value.
type Value struct {
	replacement string
}

// Masked implements Sensitive.
func (v Value) Masked() string {
	return v.replacement
}

// Mask wraps a call-site value so the engine replaces it with the default
// replacement text. The original value is discarded immediately; it cannot
// leak through any formatter.
func Mask(interface{}) Value {
	return Value{replacement: DefaultReplacement}
}

// MaskAs is Mask with custom replacement text.
func MaskAs(_ interface{}, replacement string) Value {
	return Value{replacement: replacement}
}

// TagName is the struct tag marking fields to mask. A tag value of "true"
// uses the engine replacement; any other non-empty value is custom
// replacement text for that field.
const TagName = "mask"

// Engine applies the masking rules. Safe for concurrent use.
type Engine struct {
	replacement string
	patterns    []pattern
	plans       sync.Map // reflect.Type -> *plan
}

// Option configures an Engine.
type Option func(*Engine)

// WithReplacement overrides the default replacement text.
func WithReplacement(text string) Option {
	return func(e *Engine) {
		e.replacement = text
	}
}

// WithPatterns adds case-insensitive parameter-name patterns. Supported
// forms: exact name, "name*" prefix, "*name" suffix, "*name*" contains.
func WithPatterns(names ...string) Option {
	return func(e *Engine) {
		for _, name := range names {
			e.patterns = append(e.patterns, parsePattern(name))
		}
	}
}

// NewEngine creates a masking engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{replacement: DefaultReplacement}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply masks value according to the engine rules. name is the parameter or
// property name the value is logged under; it may be empty when unknown.
func (e *Engine) Apply(name string, value interface{}) interface{} {
	if value == nil {
		return nil
	}

	if s, ok := value.(Sensitive); ok {
		if text := s.Masked(); text != "" {
			return text
		}
		return e.replacement
	}

	if name != "" && e.matchesPattern(name) {
		return e.replacement
	}

	return e.maskStruct(value)
}

func (e *Engine) matchesPattern(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range e.patterns {
		if p.match(lower) {
			return true
		}
	}
	return false
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternSuffix
	patternContains
)

type pattern struct {
	kind patternKind
	text string
}

func parsePattern(raw string) pattern {
	lower := strings.ToLower(raw)
	leading := strings.HasPrefix(lower, "*")
	trailing := strings.HasSuffix(lower, "*")
	trimmed := strings.Trim(lower, "*")

	switch {
	case leading && trailing:
		return pattern{kind: patternContains, text: trimmed}
	case trailing:
		return pattern{kind: patternPrefix, text: trimmed}
	case leading:
		return pattern{kind: patternSuffix, text: trimmed}
	default:
		return pattern{kind: patternExact, text: trimmed}
	}
}

func (p pattern) match(name string) bool {
	switch p.kind {
	case patternPrefix:
		return strings.HasPrefix(name, p.text)
	case patternSuffix:
		return strings.HasSuffix(name, p.text)
	case patternContains:
		return strings.Contains(name, p.text)
	default:
		return name == p.text
	}
}

// plan records which fields of a struct type are tagged for masking.
type plan struct {
	fields    []plannedField
	cloneable bool
}

type plannedField struct {
	index       int
	replacement string // empty means use engine replacement
	isString    bool
}

// maskStruct returns a shallow clone of tagged struct values, or the value
// unchanged when its type carries no mask tags or cannot be cloned.
func (e *Engine) maskStruct(value interface{}) interface{} {
	rv := reflect.ValueOf(value)
	isPtr := rv.Kind() == reflect.Ptr
	if isPtr {
		if rv.IsNil() {
			return value
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return value
	}

	p := e.planFor(rv.Type())
	if len(p.fields) == 0 {
		// Identity no-op for unmarked types.
		return value
	}
	if !p.cloneable {
		// Unexported fields cannot be copied faithfully; returning the
		// original is the documented best-effort fallback.
		return value
	}

	clone := reflect.New(rv.Type()).Elem()
	for i := 0; i < rv.NumField(); i++ {
		clone.Field(i).Set(rv.Field(i))
	}
	for _, f := range p.fields {
		field := clone.Field(f.index)
		if f.isString {
			text := f.replacement
			if text == "" {
				text = e.replacement
			}
			field.SetString(text)
		} else {
			field.Set(reflect.Zero(field.Type()))
		}
	}

	if isPtr {
		out := reflect.New(rv.Type())
		out.Elem().Set(clone)
		return out.Interface()
	}
	return clone.Interface()
}

// planFor returns the cached masking plan for t, scanning it once per
// process lifetime.
func (e *Engine) planFor(t reflect.Type) *plan {
	if cached, ok := e.plans.Load(t); ok {
		return cached.(*plan)
	}

	p := &plan{cloneable: true}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			p.cloneable = false
			continue
		}
		tag, ok := field.Tag.Lookup(TagName)
		if !ok || tag == "" || tag == "false" || tag == "-" {
			continue
		}
		pf := plannedField{
			index:    i,
			isString: field.Type.Kind() == reflect.String,
		}
		if tag != "true" {
			pf.replacement = tag
		}
		p.fields = append(p.fields, pf)
	}

	actual, _ := e.plans.LoadOrStore(t, p)
	return actual.(*plan)
}
