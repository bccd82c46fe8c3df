package models

// Config 保存 rustvm 的全局配置，与用户主目录下的资源保持一致。
type Config struct {
	RootDir        string // rustvm 安装根目录，默认 ~/.rustvm
	ToolchainsDir  string // 各工具链安装目录，默认 ~/.rustvm/toolchains
	CurrentVersion string // 当前激活的版本标识
	DistServer     string // rustup 分发服务器，为空时使用官方源
}
