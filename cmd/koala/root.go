package main

import (
	"io"
	"log/slog"

	"github.com/rocjay1/koala-laundry/internal/config"
	"github.com/spf13/cobra"
)

const description = `
Koala Laundry operations tooling.

Launch the dashboard, summarize the form responses CSV
or serve the upload and summary API.
`

// app is shared by all sub-commands once flags are parsed.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "koala",
		Short:         description,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringSlice("env-file", config.DotEnvFiles, "env files to load if present")
	flags.BoolP("verbose", "v", false, "print debug logs")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env-file")
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}

		a.cfg = config.Load()
		level := a.cfg.LogLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		slog.SetDefault(config.NewLogger(stderr, a.cfg.LogFormat, level))
		return nil
	}

	root.AddCommand(
		newRunCommand(a),
		newSummaryCommand(a),
		newServeCommand(a),
	)
	return root
}
