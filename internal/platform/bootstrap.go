package platform

import (
	"errors"
	"fmt"
)

const (
	unixInstallerURL        = "https://sh.rustup.rs"
	windowsInstallerURLBase = "https://win.rustup.rs/"
)

// ErrUnsupportedPlatform 表示当前平台没有可用的 rustup 引导安装包。
var ErrUnsupportedPlatform = errors.New("platform: no rustup installer for this platform")

// InstallerURL 返回平台对应的 rustup 引导安装包下载地址。
// Unix 使用统一的引导脚本，由脚本自行探测架构；Windows 的安装包按架构区分，
// 未识别的架构直接返回 ErrUnsupportedPlatform，不做猜测。
func InstallerURL(profile Profile) (string, error) {
	if !profile.IsWindows {
		return unixInstallerURL, nil
	}

	switch profile.Arch {
	case ArchX8664, ArchAarch64:
		return windowsInstallerURLBase + string(profile.Arch), nil
	default:
		return "", fmt.Errorf("%w: windows/%s", ErrUnsupportedPlatform, profile.Arch)
	}
}

// InstallerFileName 返回引导安装包在目标目录中的文件名。
func InstallerFileName(profile Profile) string {
	if profile.IsWindows {
		return "rustup-init.exe"
	}
	return "rustup-init.sh"
}
