package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rocjay1/koala-laundry/internal/launcher"
	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch the dashboard from its directory",
		Long: `Changes into the dashboard directory and runs the dashboard runner
(default "streamlit run koala_dashboard.py") with the terminal attached.
The exit code of the runner becomes the exit code of this command.`,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.StringP("dir", "d", "", "dashboard directory, relative to --base (env KOALA_DASHBOARD_DIR)")
	flags.String("base", "", "directory relative paths resolve against (default: directory of the koala binary)")
	flags.String("runner", "", "dashboard runner command (env KOALA_RUNNER)")
	flags.String("script", "", "script passed to the runner (env KOALA_SCRIPT)")
	flags.StringP("message", "m", "", "status line printed before launching")
	flags.Bool("no-fail-fast", false, "run from the current directory when the dashboard directory is missing")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		cfg := launcher.Config{
			Dir:      stringFlag(cmd, "dir", a.cfg.DashboardDir),
			BaseDir:  stringFlag(cmd, "base", executableDir()),
			Script:   stringFlag(cmd, "script", a.cfg.Script),
			FailFast: a.cfg.FailFast,
			Stdin:    a.stdin,
			Stdout:   a.stdout,
			Stderr:   a.stderr,
		}
		cfg.Message, _ = flags.GetString("message")
		if noFailFast, _ := flags.GetBool("no-fail-fast"); noFailFast {
			cfg.FailFast = false
		}

		runner, err := launcher.ParseRunner(stringFlag(cmd, "runner", a.cfg.Runner))
		if err != nil {
			return err
		}
		cfg.Runner = runner

		l, err := launcher.New(cfg)
		if err != nil {
			return err
		}

		code, err := l.Run(cmd.Context())
		if err != nil {
			var exitErr *launcher.ExitError
			if errors.As(err, &exitErr) {
				return err
			}
			return &codedError{code: code, err: err}
		}
		return nil
	}

	return cmd
}

// stringFlag returns the flag value when set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// executableDir is the directory holding the running binary, with symlinks resolved.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
