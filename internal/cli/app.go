package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/redersoft/rustvm/internal/command"
	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/pkg/models"
)

// InstallService 描述安装能力。
type InstallService interface {
	EnsureInstalled(ctx context.Context, home string, req models.Request) (models.Toolchain, error)
}

// SwitchService 描述版本切换能力。
type SwitchService interface {
	UseVersion(version string) error
}

// UninstallService 描述卸载能力。
type UninstallService interface {
	Uninstall(version string, force bool) ([]models.Toolchain, error)
}

// ListService 描述本地工具链查询能力。
type ListService interface {
	LocalToolchains() ([]models.Toolchain, error)
	CurrentToolchain() (*models.Toolchain, error)
}

// ChannelService 描述远程通道查询能力。
type ChannelService interface {
	FetchChannel(ctx context.Context, channel string) (models.ChannelRelease, error)
}

// App 负责 CLI 命令解析与分发。
type App struct {
	out     io.Writer
	logger  *log.Logger
	version string

	store       registry.Store
	runner      command.Runner
	installer   InstallService
	switcher    SwitchService
	uninstaller UninstallService
	lister      ListService
	channels    ChannelService
}

// Options 聚合 App 依赖，全部必填项缺失时对应命令会返回错误。
type Options struct {
	Out         io.Writer
	Logger      *log.Logger
	Version     string
	Store       registry.Store
	Runner      command.Runner
	Installer   InstallService
	Switcher    SwitchService
	Uninstaller UninstallService
	Lister      ListService
	Channels    ChannelService
}

// NewApp 创建 CLI 应用实例。
func NewApp(opts Options) *App {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &App{
		out:         out,
		logger:      logger,
		version:     opts.Version,
		store:       opts.Store,
		runner:      opts.Runner,
		installer:   opts.Installer,
		switcher:    opts.Switcher,
		uninstaller: opts.Uninstaller,
		lister:      opts.Lister,
		channels:    opts.Channels,
	}
}

// Run 解析参数并执行命令。
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "rustvm",
		Short:         "Rust toolchain version manager built on rustup",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				a.logger.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		a.installCommand(),
		a.listCommand(),
		a.latestCommand(),
		a.currentCommand(),
		a.useCommand(),
		a.uninstallCommand(),
		a.envCommand(),
		a.cargoCommand(),
	)
	return root
}
