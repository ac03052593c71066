package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
)

// NewGetCommand returns the "get" subcommand.
func NewGetCommand(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a single configuration value",
		Long: `Retrieve and display a single configuration value by its flat key.

By default, only the raw value is printed, making it suitable for scripting.

Examples:
  # Get a single value
  flexkit get database:host

  # Get value with metadata in JSON format
  flexkit get database:host --json

  # Use in scripts
  export DB_HOST=$(flexkit get database:host)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := opts.buildConfig(context.Background())
			if err != nil {
				return err
			}
			defer cfg.Close()

			value, exists := cfg.Get(key)
			if !exists {
				section := cfg.Section("")
				suggestion := "Use 'flexkit render' to list all available keys"
				if roots := section.Keys(); len(roots) > 0 && len(roots) <= 10 {
					suggestion = fmt.Sprintf("Top-level sections: %v", roots)
				}
				return fkerrors.UserError{
					Message:    fmt.Sprintf("Key '%s' not found", key),
					Suggestion: suggestion,
				}
			}

			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]string{
					"key":   key,
					"value": value,
				})
			}

			fmt.Print(value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	return cmd
}
