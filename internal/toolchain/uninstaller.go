package toolchain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/pkg/models"
)

// Uninstaller 删除本地已安装的工具链。
type Uninstaller struct {
	storage registry.Store
}

// NewUninstaller 创建卸载器。
func NewUninstaller(store registry.Store) *Uninstaller {
	return &Uninstaller{storage: store}
}

// Uninstall 删除指定版本。当 force=true 时允许卸载当前版本。
func (u *Uninstaller) Uninstall(version string, force bool) ([]models.Toolchain, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, errors.New("uninstaller: version is required")
	}
	if u.storage == nil {
		return nil, errors.New("uninstaller: storage is required")
	}

	records, err := u.storage.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("uninstaller: load records: %w", err)
	}

	var target *models.Toolchain
	for i := range records {
		if records[i].Version == version {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("uninstaller: version %s not installed", version)
	}

	current, err := u.storage.GetCurrentVersionMarker()
	if err != nil {
		return nil, fmt.Errorf("uninstaller: read current marker: %w", err)
	}
	if current == target.Version && !force {
		return nil, fmt.Errorf("uninstaller: version %s is active, pass force to remove", version)
	}

	if target.HomeDir != "" && !target.UsedSystem {
		if err := os.RemoveAll(target.HomeDir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("uninstaller: remove dir: %w", err)
		}
	}

	if err := u.storage.DeleteRecord(target.Version); err != nil {
		return nil, fmt.Errorf("uninstaller: delete record: %w", err)
	}

	if current == target.Version {
		if err := u.storage.SetCurrentVersionMarker(""); err != nil {
			return nil, fmt.Errorf("uninstaller: clear current marker: %w", err)
		}
	}

	remaining, err := u.storage.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("uninstaller: reload records: %w", err)
	}

	return remaining, nil
}
