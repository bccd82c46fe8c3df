package models

import "time"

// Request 描述一次工具链安装请求，构造后不再修改。
type Request struct {
	Version           string // 通道名、语义版本或带日期的通道版本
	PreferSystemTools bool   // 优先使用系统 PATH 中已有的 cargo
	InstallRustup     bool   // rustup 缺失时自动引导安装
}

// Toolchain 描述本地已安装的 Rust 工具链元数据。
type Toolchain struct {
	Version      string    // 请求的版本标识，例如 stable、1.75.0
	HomeDir      string    // 安装根目录（即 CARGO_HOME）
	CargoPath    string    // cargo 可执行文件路径
	RustcPath    string    // rustc 可执行文件路径
	RustupPath   string    // rustup 可执行文件路径，可能为空
	CargoVersion string    // cargo --version 解析出的版本号
	UsedSystem   bool      // 是否直接复用系统工具链
	IsCurrent    bool      // 是否为当前激活版本
	InstalledAt  time.Time // 安装时间
}

// ChannelRelease 描述远程通道清单中的发布信息。
type ChannelRelease struct {
	Channel string // 通道名，例如 stable
	Version string // 具体版本号，例如 1.90.0
	Date    string // 发布日期，例如 2025-09-10
}
