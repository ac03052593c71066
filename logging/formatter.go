package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saruyev/flexkit/logging/translate"
)

// Formatter renders a completed entry into one output line.
type Formatter interface {
	Format(Entry) string
}

// WriterSink formats entries and writes one line each to w.
type WriterSink struct {
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
}

// NewWriterSink creates a sink writing formatted entries to w.
func NewWriterSink(w io.Writer, f Formatter) *WriterSink {
	return &WriterSink{w: w, formatter: f}
}

// Emit implements Sink.
func (s *WriterSink) Emit(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, s.formatter.Format(e))
}

// TextFormatter renders a human-readable single line.
type TextFormatter struct{}

// Format implements Formatter.
func (TextFormatter) Format(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s", e.Target, e.Method)
	if e.Success {
		fmt.Fprintf(&b, " completed in %s", e.Duration)
	} else {
		fmt.Fprintf(&b, " failed after %s: %s", e.Duration, e.Error)
	}
	for _, p := range e.Input {
		fmt.Fprintf(&b, " %s=%v", p.Name, p.Value)
	}
	if e.Output != nil {
		fmt.Fprintf(&b, " -> %v", e.Output)
	}
	return b.String()
}

// JSONFormatter renders the entry as a single JSON object.
type JSONFormatter struct{}

type jsonEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Target     string                 `json:"target"`
	Method     string                 `json:"method"`
	Success    bool                   `json:"success"`
	DurationMs float64                `json:"duration_ms"`
	Input      map[string]interface{} `json:"input,omitempty"`
	Output     interface{}            `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Format implements Formatter.
func (JSONFormatter) Format(e Entry) string {
	je := jsonEntry{
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Target:     e.Target,
		Method:     e.Method,
		Success:    e.Success,
		DurationMs: float64(e.Duration) / float64(time.Millisecond),
		Output:     e.Output,
		Error:      e.Error,
	}
	if len(e.Input) > 0 {
		je.Input = make(map[string]interface{}, len(e.Input))
		for _, p := range e.Input {
			je.Input[p.Name] = p.Value
		}
	}

	raw, err := json.Marshal(je)
	if err != nil {
		// Some parameter was not serializable; fall back to the text form
		// rather than dropping the entry.
		return TextFormatter{}.Format(e)
	}
	return string(raw)
}

// LogfmtFormatter renders key=value pairs.
type LogfmtFormatter struct{}

// Format implements Formatter.
func (LogfmtFormatter) Format(e Entry) string {
	pairs := []string{
		"target=" + quoteIfNeeded(e.Target),
		"method=" + quoteIfNeeded(e.Method),
		fmt.Sprintf("success=%t", e.Success),
		fmt.Sprintf("duration=%s", e.Duration),
	}
	for _, p := range e.Input {
		pairs = append(pairs, p.Name+"="+quoteIfNeeded(fmt.Sprint(p.Value)))
	}
	if e.Output != nil {
		pairs = append(pairs, "output="+quoteIfNeeded(fmt.Sprint(e.Output)))
	}
	if e.Error != "" {
		pairs = append(pairs, "error="+quoteIfNeeded(e.Error))
	}
	return strings.Join(pairs, " ")
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// TemplateFormatter renders entries through a message template written in
// any supported dialect. The template is translated to the common {Name}
// form once at construction.
type TemplateFormatter struct {
	template string
}

// NewTemplateFormatter translates template from the given dialect and
// returns a formatter rendering entries through it. Besides input parameter
// names, the placeholders Target, Method, Duration, Output and Error are
// available.
func NewTemplateFormatter(template string, from translate.Syntax) *TemplateFormatter {
	return &TemplateFormatter{template: translate.Translate(template, from)}
}

// Format implements Formatter.
func (f *TemplateFormatter) Format(e Entry) string {
	params := map[string]interface{}{
		"Target":   e.Target,
		"Method":   e.Method,
		"Duration": e.Duration,
	}
	if e.Output != nil {
		params["Output"] = e.Output
	}
	if e.Error != "" {
		params["Error"] = e.Error
	}
	for _, p := range e.Input {
		params[p.Name] = p.Value
	}

	out := f.template
	matched := make(map[string]struct{})
	for _, name := range translate.Placeholders(f.template) {
		value, ok := params[name]
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, "{"+name+"}", fmt.Sprint(value))
		matched[name] = struct{}{}
	}

	// Entry parameters without a placeholder trail the message so no
	// captured data is silently dropped.
	var extras []string
	for _, p := range e.Input {
		if _, ok := matched[p.Name]; !ok {
			extras = append(extras, fmt.Sprintf("%s=%v", p.Name, p.Value))
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		out += " [" + strings.Join(extras, " ") + "]"
	}
	return out
}
