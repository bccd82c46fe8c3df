package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redersoft/rustvm/internal/command"
	"github.com/redersoft/rustvm/internal/env"
)

// cargoCommand 用当前激活工具链的环境运行 cargo，参数原样透传。
func (a *App) cargoCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "cargo [args...]",
		Short:              "Run cargo from the active toolchain",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.lister == nil || a.runner == nil {
				return errors.New("cargo command is unavailable")
			}
			current, err := a.lister.CurrentToolchain()
			if err != nil {
				return err
			}
			if current == nil {
				return errors.New("no active Rust toolchain, run 'rustvm use <version>' first")
			}

			spec := command.Spec{
				Name: current.CargoPath,
				Args: args,
			}
			if !current.UsedSystem {
				spec.Env = env.Environ(current.HomeDir)
			}

			a.logger.Debug("running cargo", "path", spec.Name, "args", args)
			result, err := a.runner.Run(cmd.Context(), spec)
			fmt.Fprint(a.out, result.Output)
			if err != nil {
				return err
			}
			if result.ExitCode != 0 {
				return fmt.Errorf("cargo exited with code %d", result.ExitCode)
			}
			return nil
		},
	}
}
