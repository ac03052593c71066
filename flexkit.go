// Package flexkit layers remote configuration sources — AWS SSM Parameter
// Store, AWS Secrets Manager, Azure App Configuration, Azure Key Vault — into
// one flat colon-delimited key/value table with last-wins override semantics.
//
// Sources are added to a Builder in override order and loaded once at Build
// time. Sources marked optional may fail without aborting the build; required
// sources abort it with a wrapped error. Sources with a reload interval are
// refreshed in the background, each refresh swapping in a complete immutable
// snapshot so readers never observe a partially updated table.
package flexkit

import (
	"context"
	"fmt"
	"time"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
	"github.com/saruyev/flexkit/logging"
)

// Source is one remote configuration location. Load returns the full flat
// key/value table for the source; it is called once at build time and again
// on every reload tick.
type Source interface {
	// Name is a stable identifier like "aws.parameterstore" used in errors,
	// logs and metrics.
	Name() string

	// Load fetches the complete flat table for this source.
	Load(ctx context.Context) (map[string]string, error)

	// Options returns the source's fetch options.
	Options() SourceOptions
}

// SourceOptions holds per-source fetch behavior shared by all source types.
type SourceOptions struct {
	// Optional sources may fail to load without aborting Build. Their keys
	// are simply absent until a later reload succeeds.
	Optional bool

	// ReloadInterval enables periodic background refresh when positive.
	ReloadInterval time.Duration

	// OnLoadError is invoked with the wrapped error whenever an optional
	// source load or any reload fails. May be nil.
	OnLoadError func(error)

	// ProcessJSON flattens values that parse as JSON objects or arrays into
	// nested keys instead of storing the document verbatim.
	ProcessJSON bool

	// JSONFilters restricts ProcessJSON to paths or names with one of these
	// prefixes. Empty means all values are candidates.
	JSONFilters []string

	// KeyProcessor is an optional hook applied to every flat key after the
	// source's own key transform.
	KeyProcessor func(string) string
}

// ShouldProcessJSON reports whether JSON flattening applies to the value
// fetched from the given remote path or name.
func (o SourceOptions) ShouldProcessJSON(name string) bool {
	if !o.ProcessJSON {
		return false
	}
	if len(o.JSONFilters) == 0 {
		return true
	}
	for _, filter := range o.JSONFilters {
		if len(name) >= len(filter) && name[:len(filter)] == filter {
			return true
		}
	}
	return false
}

// ProcessKey applies the KeyProcessor hook when configured.
func (o SourceOptions) ProcessKey(key string) string {
	if o.KeyProcessor == nil {
		return key
	}
	return o.KeyProcessor(key)
}

// Builder composes sources into a FlexConfig. Later sources override earlier
// ones key by key.
type Builder struct {
	sources []Source
	logger  *logging.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the diagnostic logger used during builds and reloads.
func WithLogger(logger *logging.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: logging.New(false, false)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends a source. Append order is override order: keys from sources
// added later win.
func (b *Builder) Add(source Source) *Builder {
	b.sources = append(b.sources, source)
	return b
}

// Build loads every source and assembles the merged configuration. A
// required source that fails to load aborts the build with a wrapped error;
// optional failures invoke the source's OnLoadError callback and contribute
// nothing. Reload goroutines for sources with a ReloadInterval are started
// before returning; call Close on the returned config to stop them.
func (b *Builder) Build(ctx context.Context) (*FlexConfig, error) {
	cfg := &FlexConfig{
		logger: b.logger,
		stop:   make(chan struct{}),
	}

	for _, source := range b.sources {
		p := newProvider(source)
		if err := p.load(ctx); err != nil {
			wrapped := fkerrors.SourceError(source.Name(), "load", err)
			if !source.Options().Optional {
				cfg.Close()
				return nil, fmt.Errorf("building configuration: %w", wrapped)
			}
			b.logger.Warn("optional source %s failed to load: %v", source.Name(), err)
			if cb := source.Options().OnLoadError; cb != nil {
				cb(wrapped)
			}
		}
		cfg.providers = append(cfg.providers, p)
	}

	cfg.remerge()
	cfg.startReloaders()
	return cfg, nil
}
