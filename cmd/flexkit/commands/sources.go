package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saruyev/flexkit/internal/definition"
)

// NewSourcesCommand returns the "sources" subcommand.
func NewSourcesCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List supported source types and the configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := definition.NewRegistry()

			fmt.Println("Supported source types:")
			for _, sourceType := range registry.SupportedTypes() {
				fmt.Printf("  %s\n", sourceType)
			}

			def, err := opts.loadDefinition()
			if err != nil {
				// No definition is fine here; the supported list alone is useful.
				opts.Logger.Debug("no configuration loaded: %v", err)
				return nil
			}

			fmt.Printf("\nConfigured sources (%s):\n", opts.Path)
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  ORDER\tTYPE\tOPTIONAL\tRELOAD")
			for i, src := range def.Sources {
				reload := src.ReloadInterval
				if reload == "" {
					reload = "-"
				}
				fmt.Fprintf(w, "  %d\t%s\t%v\t%s\n", i+1, src.Type, src.Optional, reload)
			}
			return w.Flush()
		},
	}

	return cmd
}
