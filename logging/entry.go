package logging

import (
	"time"

	"github.com/saruyev/flexkit/logging/masking"
)

// Param is a named input parameter captured for a tracked call.
type Param struct {
	Name  string
	Value interface{}
}

// P builds a Param.
func P(name string, value interface{}) Param {
	return Param{Name: name, Value: value}
}

// Entry is an immutable record of one tracked method call.
type Entry struct {
	Target    string
	Method    string
	Success   bool
	Duration  time.Duration
	Timestamp time.Time
	Input     []Param
	Output    interface{}
	Error     string
}

// Sink consumes completed entries.
type Sink interface {
	Emit(Entry)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Entry)

// Emit implements Sink.
func (f SinkFunc) Emit(e Entry) {
	f(e)
}

// Interceptor produces one Entry per tracked call, masking inputs and
// outputs before they reach the sink.
type Interceptor struct {
	target string
	sink   Sink
	engine *masking.Engine
	now    func() time.Time
}

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithMasking sets the masking engine applied to inputs and outputs.
func WithMasking(engine *masking.Engine) InterceptorOption {
	return func(i *Interceptor) {
		i.engine = engine
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) InterceptorOption {
	return func(i *Interceptor) {
		i.now = now
	}
}

// NewInterceptor creates an interceptor for the named target (usually a
// type or component name) emitting entries to sink.
func NewInterceptor(target string, sink Sink, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		target: target,
		sink:   sink,
		engine: masking.NewEngine(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Track starts recording a call. The returned completion function must be
// called exactly once with the call's output and error, typically deferred:
//
//	done := interceptor.Track("Load", logging.P("path", path))
//	defer func() { done(result, err) }()
//
// Parameters are masked at capture time so sensitive inputs never sit in
// memory inside the entry.
func (i *Interceptor) Track(method string, params ...Param) func(output interface{}, err error) {
	started := i.now()

	masked := make([]Param, len(params))
	for n, p := range params {
		masked[n] = Param{Name: p.Name, Value: i.engine.Apply(p.Name, p.Value)}
	}

	return func(output interface{}, err error) {
		entry := Entry{
			Target:    i.target,
			Method:    method,
			Success:   err == nil,
			Duration:  i.now().Sub(started),
			Timestamp: started,
			Input:     masked,
			Output:    i.engine.Apply("", output),
		}
		if err != nil {
			entry.Error = err.Error()
		}
		i.sink.Emit(entry)
	}
}
