package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/redersoft/rustvm/internal/cli"
	"github.com/redersoft/rustvm/internal/command"
	"github.com/redersoft/rustvm/internal/env"
	"github.com/redersoft/rustvm/internal/platform"
	"github.com/redersoft/rustvm/internal/region"
	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/internal/remote"
	"github.com/redersoft/rustvm/internal/toolchain"
	"github.com/redersoft/rustvm/pkg/models"
)

const appVersion = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	cfg := models.Config{}
	profile := platform.Detect()
	store := registry.NewFileStore(cfg)
	runner := command.NewExecRunner()
	verifier := toolchain.NewVerifier(profile)
	mirror := selectMirror(ctx, logger)

	installer := toolchain.NewInstaller(runner, verifier, profile,
		toolchain.WithLogger(logger),
		toolchain.WithMirrorEnv(mirror.Env()),
	)
	envManager := env.NewManager(store, cfg)
	switcher := toolchain.NewSwitcher(store, envManager, verifier)
	uninstaller := toolchain.NewUninstaller(store)
	lister := toolchain.NewLister(store, verifier)
	channels := remote.NewClient(remote.WithDistServer(mirror.DistServer))

	app := cli.NewApp(cli.Options{
		Out:         os.Stdout,
		Logger:      logger,
		Version:     appVersion,
		Store:       store,
		Runner:      runner,
		Installer:   installer,
		Switcher:    switcher,
		Uninstaller: uninstaller,
		Lister:      lister,
		Channels:    channels,
	})
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// selectMirror 尽力探测所在地区并选择下载镜像，失败时回退官方源。
func selectMirror(ctx context.Context, logger *log.Logger) region.MirrorConfig {
	detectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	code, err := region.NewDetector().CountryCode(detectCtx)
	if err != nil {
		logger.Debug("region detection failed, using official mirror", "err", err)
		return region.OfficialMirror
	}
	return region.SelectMirror(code)
}
