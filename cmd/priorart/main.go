package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var current *app

var rootCmd = &cobra.Command{
	Use:   "priorart",
	Short: "Prior-art search and patentability assessment",
	Long: `priorart searches public patent literature for prior art relevant to an
invention description, ranks the hits by similarity and scores how thorough
the search was. The assess command combines that search with an AI
patentability analysis and adjusts the scores by the prior art found.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		level, _ := cmd.Flags().GetString("log-level")
		a, err := newApp(cmd.Context(), cfgFile, level)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./priorart.yaml or ~/.config/priorart/priorart.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

// run executes one command line and then releases the app, whether or not
// the command succeeded. Cobra skips post-run hooks after a RunE error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		err = errors.Join(err, current.Close(context.WithoutCancel(ctx)))
		current = nil
	}
	return err
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
