package region

import "strings"

// MirrorConfig 描述 rustup 分发服务器与更新源基础配置。
type MirrorConfig struct {
	DistServer string
	UpdateRoot string
}

var (
	// OfficialMirror 表示默认官方源。
	OfficialMirror = MirrorConfig{
		DistServer: "https://static.rust-lang.org",
		UpdateRoot: "https://static.rust-lang.org/rustup",
	}
	// RsproxyMirror 表示国内镜像源。
	RsproxyMirror = MirrorConfig{
		DistServer: "https://rsproxy.cn",
		UpdateRoot: "https://rsproxy.cn/rustup",
	}
)

// SelectMirror 根据国家代码返回镜像配置。
func SelectMirror(countryCode string) MirrorConfig {
	if strings.EqualFold(strings.TrimSpace(countryCode), "CN") {
		return RsproxyMirror
	}
	return OfficialMirror
}

// Env 返回镜像对应的 rustup 环境变量。官方源无需覆盖，返回 nil。
func (m MirrorConfig) Env() map[string]string {
	if m == OfficialMirror {
		return nil
	}
	return map[string]string{
		"RUSTUP_DIST_SERVER": m.DistServer,
		"RUSTUP_UPDATE_ROOT": m.UpdateRoot,
	}
}
