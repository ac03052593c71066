package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saruyev/flexkit/cmd/flexkit/commands"
	"github.com/saruyev/flexkit/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "flexkit",
		Short: "Layered configuration from cloud parameter and secret stores",
		Long: `flexkit reads a flexkit.yaml describing AWS Parameter Store, AWS Secrets
Manager, Azure App Configuration and Azure Key Vault sources, merges them
into one flat key space (later sources win), and lets you inspect the result.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Path = configFile
			opts.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "flexkit.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewGetCommand(opts),
		commands.NewRenderCommand(opts),
		commands.NewVerifyCommand(opts),
		commands.NewSourcesCommand(opts),
	)

	return rootCmd.Execute()
}
