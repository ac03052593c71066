// Package commands implements the flexkit CLI subcommands.
package commands

import (
	"context"

	flexkit "github.com/saruyev/flexkit"
	"github.com/saruyev/flexkit/internal/definition"
	"github.com/saruyev/flexkit/logging"
)

// Options carries state shared by every subcommand, populated from the
// root command's persistent flags.
type Options struct {
	// Path is the flexkit.yaml location.
	Path string
	// Logger is the diagnostic logger built from --debug/--no-color.
	Logger *logging.Logger
}

// loadDefinition reads and validates the flexkit.yaml file.
func (o *Options) loadDefinition() (*definition.Definition, error) {
	return definition.Load(o.Path)
}

// buildConfig loads the definition, creates every source, and assembles the
// merged configuration. The caller owns the returned config and must Close it.
func (o *Options) buildConfig(ctx context.Context) (*flexkit.FlexConfig, error) {
	def, err := o.loadDefinition()
	if err != nil {
		return nil, err
	}

	sources, err := definition.NewRegistry().BuildSources(def)
	if err != nil {
		return nil, err
	}

	builder := flexkit.NewBuilder(flexkit.WithLogger(o.Logger))
	for _, src := range sources {
		builder.Add(src)
	}
	return builder.Build(ctx)
}
