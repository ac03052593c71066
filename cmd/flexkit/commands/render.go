package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saruyev/flexkit/logging/masking"
)

// sensitivePatterns flags keys whose values must not be printed in clear.
var sensitivePatterns = []string{
	"*password*",
	"*secret*",
	"*token*",
	"*apikey*",
	"*api-key*",
	"*credential*",
	"*connectionstring*",
}

// NewRenderCommand returns the "render" subcommand.
func NewRenderCommand(opts *Options) *cobra.Command {
	var (
		reveal     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the merged configuration",
		Long: `Load every source, merge them in definition order, and print the flat
key/value table. Values under keys that look sensitive (password, secret,
token, ...) are masked unless --reveal is given.

Examples:
  # Dump the merged configuration with secrets masked
  flexkit render

  # Dump everything in clear text
  flexkit render --reveal

  # Machine-readable output
  flexkit render --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.buildConfig(context.Background())
			if err != nil {
				return err
			}
			defer cfg.Close()

			engine := masking.NewEngine(masking.WithPatterns(sensitivePatterns...))

			table := make(map[string]string)
			for _, key := range cfg.Keys() {
				value, _ := cfg.Get(key)
				if !reveal {
					value = engine.Apply(key, value).(string)
				}
				table[key] = value
			}

			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(table)
			}

			for _, key := range cfg.Keys() {
				fmt.Printf("%s=%s\n", key, table[key])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print sensitive values in clear text")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as a JSON object")

	return cmd
}
