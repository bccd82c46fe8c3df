package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redersoft/rustvm/internal/env"
)

func (a *App) useCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <version>",
		Short: "Switch to an installed toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.switcher == nil {
				return errors.New("use command is unavailable")
			}
			version := strings.TrimSpace(args[0])
			if err := a.switcher.UseVersion(version); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Now using Rust %s\n", version)
			return nil
		},
	}
}

func (a *App) envCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print shell exports for the active toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.lister == nil {
				return errors.New("env command is unavailable")
			}
			current, err := a.lister.CurrentToolchain()
			if err != nil {
				return err
			}
			if current == nil {
				return errors.New("no active Rust toolchain, run 'rustvm use <version>' first")
			}
			if current.UsedSystem {
				fmt.Fprintln(a.out, "# system toolchain in use, no overrides required")
				return nil
			}
			for _, pair := range sortedPairs(env.Environ(current.HomeDir)) {
				fmt.Fprintf(a.out, "export %s=\"%s\"\n", pair[0], pair[1])
			}
			fmt.Fprintf(a.out, "export PATH=\"%s:$PATH\"\n", env.PathPrefix(current.HomeDir))
			return nil
		},
	}
}

func sortedPairs(vars map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(vars))
	for _, key := range []string{"CARGO_HOME", "RUSTUP_HOME"} {
		if value, ok := vars[key]; ok {
			pairs = append(pairs, [2]string{key, value})
		}
	}
	return pairs
}
