// Command stsh is the entrypoint for the shell: it parses flags, loads
// configuration, and hands off to the top-level loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stsh/internal/config"
	"stsh/internal/shell"
)

var (
	version   = "dev"
	cfgFile   string
	verbose   bool
	promptArg string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stsh",
		Short:         "stsh is a Unix shell with job control",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runShell,
	}

	root.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file (default $HOME/.stsh.yaml)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging to stderr")
	root.Flags().StringVar(&promptArg, "prompt", "", "override the configured prompt string")

	return root
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("stsh: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	if promptArg != "" {
		cfg.Prompt = promptArg
	}

	s, err := shell.New(cfg)
	if err != nil {
		return fmt.Errorf("stsh: %w", err)
	}
	return s.Run()
}
