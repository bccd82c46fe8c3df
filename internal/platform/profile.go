package platform

import (
	"os"
	"runtime"
	"strings"
)

// Architecture 表示归一化后的处理器架构标识。
type Architecture string

const (
	// ArchX8664 表示 x86_64/amd64 架构。
	ArchX8664 Architecture = "x86_64"
	// ArchAarch64 表示 aarch64/arm64 架构。
	ArchAarch64 Architecture = "aarch64"
	// ArchArm 表示 32 位 arm 系列架构。
	ArchArm Architecture = "arm"
	// ArchUnknown 表示无法识别的架构。
	ArchUnknown Architecture = "unknown"
)

// Profile 描述运行平台，解析一次后不再变更。
type Profile struct {
	IsWindows bool
	Arch      Architecture
}

// Resolve 根据路径分隔符与原始架构字符串计算平台信息。纯函数，无副作用。
func Resolve(pathListSeparator rune, rawArch string) Profile {
	return Profile{
		IsWindows: pathListSeparator == ';',
		Arch:      normalizeArch(rawArch),
	}
}

// Detect 返回当前进程所在平台的 Profile。
func Detect() Profile {
	return Resolve(rune(os.PathListSeparator), runtime.GOARCH)
}

// ExeSuffix 返回平台对应的可执行文件后缀。
func (p Profile) ExeSuffix() string {
	if p.IsWindows {
		return ".exe"
	}
	return ""
}

func normalizeArch(raw string) Architecture {
	arch := strings.ToLower(strings.TrimSpace(raw))
	switch arch {
	case "x86_64", "amd64":
		return ArchX8664
	case "aarch64", "arm64":
		return ArchAarch64
	}
	if strings.HasPrefix(arch, "arm") {
		return ArchArm
	}
	return ArchUnknown
}
