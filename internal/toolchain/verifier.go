package toolchain

import (
	"os"
	"path/filepath"

	"github.com/redersoft/rustvm/internal/platform"
	"github.com/redersoft/rustvm/pkg/models"
)

// Verifier 以只读方式检查安装目录是否包含可用的工具链。
type Verifier struct {
	profile platform.Profile
}

// NewVerifier 创建校验器。
func NewVerifier(profile platform.Profile) *Verifier {
	return &Verifier{profile: profile}
}

// Probe 探测 home 目录并返回推导出的工具链信息。
// cargo 与 rustc 必须同时存在且可执行才算有效，不建模部分有效状态。
func (v *Verifier) Probe(home string) (models.Toolchain, bool) {
	tc := models.Toolchain{
		HomeDir:   home,
		CargoPath: v.BinaryPath(home, "cargo"),
		RustcPath: v.BinaryPath(home, "rustc"),
	}

	cargoOK := isExecutableFile(tc.CargoPath, v.profile)
	rustcOK := isExecutableFile(tc.RustcPath, v.profile)
	if !cargoOK || !rustcOK {
		return models.Toolchain{HomeDir: home}, false
	}

	if rustupPath := v.BinaryPath(home, "rustup"); isExecutableFile(rustupPath, v.profile) {
		tc.RustupPath = rustupPath
	}
	return tc, true
}

// Verify 返回 home 目录是否包含有效安装。
func (v *Verifier) Verify(home string) bool {
	_, ok := v.Probe(home)
	return ok
}

// BinaryPath 返回 home 目录下指定工具的预期路径。
func (v *Verifier) BinaryPath(home, name string) string {
	return filepath.Join(home, "bin", name+v.profile.ExeSuffix())
}

func isExecutableFile(path string, profile platform.Profile) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if profile.IsWindows {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
