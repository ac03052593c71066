package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saruyev/flexkit/internal/definition"
	fkerrors "github.com/saruyev/flexkit/internal/errors"
)

// NewVerifyCommand returns the "verify" subcommand.
func NewVerifyCommand(opts *Options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every configured source is reachable",
		Long: `Validate flexkit.yaml and attempt a load from every source, reporting
each one's status. Optional sources that fail are reported as warnings;
required sources that fail make the command exit non-zero.

Examples:
  flexkit verify
  flexkit verify --timeout 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := opts.loadDefinition()
			if err != nil {
				return err
			}
			opts.Logger.Info("Configuration file is valid (%d sources)", len(def.Sources))

			registry := definition.NewRegistry()
			failed := 0

			for i, srcDef := range def.Sources {
				label := fmt.Sprintf("[%d] %s", i+1, srcDef.Type)

				src, err := registry.CreateSource(srcDef)
				if err != nil {
					opts.Logger.Error("%s: %v", label, err)
					failed++
					continue
				}

				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				data, err := src.Load(ctx)
				cancel()

				switch {
				case err == nil:
					opts.Logger.Info("%s: %d keys", label, len(data))
				case srcDef.Optional:
					opts.Logger.Warn("%s (optional): %v", label, err)
				default:
					opts.Logger.Error("%s: %v", label, err)
					failed++
				}
			}

			if failed > 0 {
				return fkerrors.UserError{
					Message:    fmt.Sprintf("%d required source(s) failed verification", failed),
					Suggestion: "Fix the reported sources or mark them optional",
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-source load timeout")

	return cmd
}
