package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redersoft/rustvm/internal/toolchain"
	"github.com/redersoft/rustvm/pkg/models"
)

func (a *App) installCommand() *cobra.Command {
	var (
		preferSystem bool
		skipRustup   bool
	)

	cmd := &cobra.Command{
		Use:   "install <version>",
		Short: "Install a Rust toolchain (stable, beta, nightly, 1.75.0, nightly-2024-01-15)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.installer == nil || a.store == nil {
				return errors.New("install command is unavailable")
			}

			version := args[0]
			if err := toolchain.ValidateVersion(version); err != nil {
				return err
			}

			req := models.Request{
				Version:           version,
				PreferSystemTools: preferSystem,
				InstallRustup:     !skipRustup,
			}
			home := a.store.GetHomePath(version)

			tc, err := a.installer.EnsureInstalled(cmd.Context(), home, req)
			if err != nil {
				return err
			}

			if err := a.store.SaveRecord(tc); err != nil {
				return fmt.Errorf("save toolchain record: %w", err)
			}

			if tc.CargoVersion != "" && tc.CargoVersion != toolchain.VersionNotFound {
				fmt.Fprintf(a.out, "Installed Rust %s (cargo %s)\n", tc.Version, tc.CargoVersion)
			} else {
				fmt.Fprintf(a.out, "Installed Rust %s\n", tc.Version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&preferSystem, "prefer-system", false, "use cargo from PATH when available instead of installing")
	cmd.Flags().BoolVar(&skipRustup, "skip-rustup", false, "do not bootstrap rustup when it is missing")
	return cmd
}

func (a *App) uninstallCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "uninstall <version>",
		Short: "Remove an installed toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.uninstaller == nil {
				return errors.New("uninstall command is unavailable")
			}

			remaining, err := a.uninstaller.Uninstall(args[0], force)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Uninstalled Rust %s\n", args[0])
			fmt.Fprintln(a.out, "Remaining toolchains:")
			if len(remaining) == 0 {
				fmt.Fprintln(a.out, "  (none)")
				return nil
			}
			for _, tc := range remaining {
				fmt.Fprintf(a.out, "  %s\n", toolchain.FormatToolchain(tc))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "allow removing the active toolchain")
	return cmd
}
