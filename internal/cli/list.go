package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redersoft/rustvm/internal/toolchain"
)

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed toolchains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.lister == nil {
				return errors.New("list command is unavailable")
			}
			toolchains, err := a.lister.LocalToolchains()
			if err != nil {
				return err
			}
			if len(toolchains) == 0 {
				fmt.Fprintln(a.out, "No toolchains installed.")
				return nil
			}
			fmt.Fprintln(a.out, "Installed toolchains:")
			for _, tc := range toolchains {
				fmt.Fprintf(a.out, "  %s\n", toolchain.FormatToolchain(tc))
			}
			return nil
		},
	}
}

func (a *App) latestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest [channel]",
		Short: "Show the release currently behind a channel (default: stable)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.channels == nil {
				return errors.New("latest command is unavailable")
			}
			channel := "stable"
			if len(args) > 0 {
				channel = args[0]
			}
			release, err := a.channels.FetchChannel(cmd.Context(), channel)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: Rust %s (released %s)\n", release.Channel, release.Version, release.Date)
			return nil
		},
	}
}

func (a *App) currentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.lister == nil {
				return errors.New("current command is unavailable")
			}
			current, err := a.lister.CurrentToolchain()
			if err != nil {
				return err
			}
			if current == nil {
				fmt.Fprintln(a.out, "No active Rust toolchain.")
				return nil
			}
			fmt.Fprintf(a.out, "Current toolchain: %s\n", toolchain.FormatToolchain(*current))
			return nil
		},
	}
}
