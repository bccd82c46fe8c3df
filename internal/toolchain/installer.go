package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/redersoft/rustvm/internal/command"
	"github.com/redersoft/rustvm/internal/platform"
	"github.com/redersoft/rustvm/pkg/models"
)

const (
	bootstrapAttempts   = 3
	bootstrapRetryDelay = 2 * time.Second
)

// Installer 负责在目标目录准备出可用的 Rust 工具链，必要时通过 rustup 引导安装。
type Installer struct {
	runner   command.Runner
	verifier *Verifier
	profile  platform.Profile
	logger   *log.Logger

	retryDelay time.Duration
	mirrorEnv  map[string]string
	now        func() time.Time
}

// InstallerOption 配置 Installer。
type InstallerOption func(*Installer)

// WithLogger 指定日志器。
func WithLogger(logger *log.Logger) InstallerOption {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithRetryDelay 指定引导安装失败后的重试间隔。
func WithRetryDelay(delay time.Duration) InstallerOption {
	return func(i *Installer) {
		if delay > 0 {
			i.retryDelay = delay
		}
	}
}

// WithMirrorEnv 附加镜像相关环境变量（如 RUSTUP_DIST_SERVER）。
func WithMirrorEnv(env map[string]string) InstallerOption {
	return func(i *Installer) {
		i.mirrorEnv = env
	}
}

// NewInstaller 创建 Installer。
func NewInstaller(runner command.Runner, verifier *Verifier, profile platform.Profile, opts ...InstallerOption) *Installer {
	installer := &Installer{
		runner:     runner,
		verifier:   verifier,
		profile:    profile,
		logger:     log.Default(),
		retryDelay: bootstrapRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(installer)
	}
	return installer
}

// EnsureInstalled 确保 home 目录存在请求版本的工具链，按需引导安装。
// 已有有效安装时直接返回，不再触发任何子进程调用。
func (i *Installer) EnsureInstalled(ctx context.Context, home string, req models.Request) (models.Toolchain, error) {
	if i.runner == nil || i.verifier == nil {
		return models.Toolchain{}, errors.New("toolchain: missing dependencies")
	}
	if err := ValidateVersion(req.Version); err != nil {
		return models.Toolchain{}, err
	}
	version := strings.TrimSpace(req.Version)

	if tc, ok := i.verifier.Probe(home); ok {
		tc.Version = version
		tc.CargoVersion = QueryVersion(ctx, i.runner, tc.CargoPath, i.scopedEnv(home))
		i.logger.Info("toolchain already installed", "home", home, "cargo", tc.CargoVersion)
		return tc, nil
	}

	if req.PreferSystemTools {
		if cargoPath, err := i.runner.LookPath("cargo"); err == nil {
			i.logger.Info("using system cargo", "path", cargoPath)
			return models.Toolchain{
				Version:      version,
				HomeDir:      home,
				CargoPath:    cargoPath,
				CargoVersion: QueryVersion(ctx, i.runner, cargoPath, nil),
				UsedSystem:   true,
				InstalledAt:  i.now().UTC(),
			}, nil
		}
	}

	if err := os.MkdirAll(home, 0o755); err != nil {
		return models.Toolchain{}, fmt.Errorf("toolchain: prepare install dir %s: %w", home, err)
	}

	rustupBin := i.resolveRustup(home)
	if rustupBin == "" && req.InstallRustup {
		if err := i.bootstrapRustup(ctx, home); err != nil {
			return models.Toolchain{}, err
		}
		rustupBin = i.resolveRustup(home)
	}

	if rustupBin != "" {
		if err := i.installToolchain(ctx, rustupBin, home, version); err != nil {
			return models.Toolchain{}, err
		}
	} else {
		i.logger.Warn("rustup unavailable and bootstrap disabled, relying on pre-existing tools", "home", home)
	}

	tc, ok := i.verifier.Probe(home)
	if !ok {
		return models.Toolchain{}, fmt.Errorf("toolchain: verification failed, cargo or rustc missing under %s", filepath.Join(home, "bin"))
	}

	tc.Version = version
	tc.InstalledAt = i.now().UTC()
	tc.CargoVersion = QueryVersion(ctx, i.runner, tc.CargoPath, i.scopedEnv(home))
	if tc.CargoVersion == VersionNotFound {
		i.logger.Warn("could not determine installed cargo version", "home", home)
	} else {
		i.logger.Info("toolchain ready", "version", version, "cargo", tc.CargoVersion)
	}
	return tc, nil
}

// bootstrapRustup 下载并运行 rustup 引导安装器，失败时按固定间隔重试。
func (i *Installer) bootstrapRustup(ctx context.Context, home string) error {
	url, err := platform.InstallerURL(i.profile)
	if err != nil {
		return fmt.Errorf("toolchain: select installer: %w", err)
	}
	if i.profile.Arch == platform.ArchUnknown {
		i.logger.Warn("unrecognized architecture, relying on bootstrap self-detection")
	}

	installerPath := filepath.Join(home, platform.InstallerFileName(i.profile))
	attempt := 0

	operation := func() error {
		attempt++
		i.logger.Info("installing rustup", "attempt", attempt, "max", bootstrapAttempts, "url", url)
		if err := i.bootstrapOnce(ctx, home, url, installerPath); err != nil {
			i.logger.Warn("rustup bootstrap attempt failed", "attempt", attempt, "err", err)
			return err
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(i.retryDelay), bootstrapAttempts-1)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("toolchain: install rustup after %d attempts: %w", bootstrapAttempts, err)
	}

	i.logger.Info("rustup installed", "home", home)
	return nil
}

func (i *Installer) bootstrapOnce(ctx context.Context, home, url, installerPath string) error {
	if err := i.downloadInstaller(ctx, url, installerPath); err != nil {
		return err
	}

	spec := command.Spec{Env: i.scopedEnv(home)}
	if i.profile.IsWindows {
		spec.Name = installerPath
		spec.Args = []string{"-y", "--default-toolchain", "none", "--no-modify-path"}
	} else {
		if err := os.Chmod(installerPath, 0o755); err != nil {
			return fmt.Errorf("chmod installer: %w", err)
		}
		spec.Name = "sh"
		spec.Args = []string{installerPath, "-y", "--default-toolchain", "none", "--no-modify-path"}
	}

	result, err := i.runner.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("run installer: %w", err)
	}
	if result.ExitCode != 0 {
		return commandFailed("run installer", result)
	}
	return nil
}

func (i *Installer) downloadInstaller(ctx context.Context, url, installerPath string) error {
	var spec command.Spec
	if i.profile.IsWindows {
		spec = command.Spec{
			Name: "powershell",
			Args: []string{"-NoProfile", "-Command",
				fmt.Sprintf("Invoke-WebRequest -Uri '%s' -OutFile '%s' -UseBasicParsing", url, installerPath)},
		}
	} else {
		spec = command.Spec{
			Name: "curl",
			Args: []string{"--proto", "=https", "--tlsv1.2", "-sSf", url, "-o", installerPath},
		}
	}

	result, err := i.runner.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("download installer: %w", err)
	}
	if result.ExitCode != 0 {
		return commandFailed("download installer", result)
	}
	return nil
}

// installToolchain 安装并设为默认工具链。安装失败视为致命错误；
// 设置默认失败仅告警，安装仍视为成功。
func (i *Installer) installToolchain(ctx context.Context, rustupBin, home, version string) error {
	i.logger.Info("installing toolchain", "version", version, "home", home)

	env := i.scopedEnv(home)
	result, err := i.runner.Run(ctx, command.Spec{
		Name: rustupBin,
		Args: []string{"toolchain", "install", version},
		Env:  env,
	})
	if err != nil {
		return fmt.Errorf("toolchain: install %s: %w", version, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("toolchain: install %s: %s", version, exitDetail(result))
	}

	defaultResult, err := i.runner.Run(ctx, command.Spec{
		Name: rustupBin,
		Args: []string{"default", version},
		Env:  env,
	})
	if err != nil || defaultResult.ExitCode != 0 {
		i.logger.Warn("failed to set default toolchain, installation still succeeded",
			"version", version, "output", strings.TrimSpace(defaultResult.Output))
	}
	return nil
}

// resolveRustup 返回可用的 rustup 路径：优先本地安装，其次进程搜索路径。
func (i *Installer) resolveRustup(home string) string {
	local := i.verifier.BinaryPath(home, "rustup")
	if isExecutableFile(local, i.profile) {
		return local
	}
	if path, err := i.runner.LookPath("rustup"); err == nil {
		return path
	}
	return ""
}

func (i *Installer) scopedEnv(home string) map[string]string {
	env := map[string]string{
		"CARGO_HOME":  home,
		"RUSTUP_HOME": filepath.Join(home, "rustup"),
	}
	for key, value := range i.mirrorEnv {
		env[key] = value
	}
	return env
}

func commandFailed(action string, result command.Result) error {
	return fmt.Errorf("%s: %s", action, exitDetail(result))
}

func exitDetail(result command.Result) string {
	output := strings.TrimSpace(result.Output)
	if output == "" {
		output = "(no output)"
	}
	return fmt.Sprintf("exit code %d, output: %s", result.ExitCode, output)
}
