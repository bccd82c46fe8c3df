package toolchain

import (
	"fmt"
	"strings"

	"github.com/redersoft/rustvm/internal/env"
	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/pkg/models"
)

// Switcher 负责切换当前使用的 Rust 工具链。
type Switcher struct {
	storage  registry.Store
	env      env.EnvManager
	verifier *Verifier
}

// NewSwitcher 创建 Switcher。
func NewSwitcher(store registry.Store, envManager env.EnvManager, verifier *Verifier) *Switcher {
	return &Switcher{storage: store, env: envManager, verifier: verifier}
}

// UseVersion 将指定版本设置为当前版本。
func (s *Switcher) UseVersion(version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return fmt.Errorf("switcher: version is required")
	}
	if s.storage == nil || s.env == nil || s.verifier == nil {
		return fmt.Errorf("switcher: missing dependencies")
	}

	records, err := s.storage.LoadRecords()
	if err != nil {
		return fmt.Errorf("switcher: load records: %w", err)
	}

	var target *models.Toolchain
	for i := range records {
		if records[i].Version == version {
			target = &records[i]
			break
		}
	}

	if target == nil {
		return fmt.Errorf("switcher: version %s not installed", version)
	}
	if target.HomeDir == "" {
		return fmt.Errorf("switcher: version %s missing home directory", version)
	}

	if !target.UsedSystem && !s.verifier.Verify(target.HomeDir) {
		return fmt.Errorf("switcher: cargo or rustc missing under %s", target.HomeDir)
	}

	if err := s.env.ConfigureEnvironment(target.HomeDir); err != nil {
		return fmt.Errorf("switcher: configure environment: %w", err)
	}

	if err := s.env.SetCurrentVersion(target.Version); err != nil {
		return fmt.Errorf("switcher: set current version: %w", err)
	}

	for _, tc := range records {
		tc.IsCurrent = tc.Version == target.Version
		if err := s.storage.SaveRecord(tc); err != nil {
			return fmt.Errorf("switcher: update records: %w", err)
		}
	}

	return nil
}
