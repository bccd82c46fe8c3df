package toolchain

import (
	"context"
	"strings"

	"github.com/redersoft/rustvm/internal/command"
)

// VersionNotFound 是版本探测失败时的占位值。版本探测始终尽力而为，从不报错。
const VersionNotFound = "not found"

// ParseVersionOutput 从 `<binary> --version` 的首行输出中提取版本号。
// 输出格式形如 "cargo 1.75.0 (1bc8dbc342 2023-12-07)"，取第二个空白分隔的字段。
func ParseVersionOutput(output string) string {
	firstLine := output
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	fields := strings.Fields(firstLine)
	if len(fields) < 2 {
		return VersionNotFound
	}
	return fields[1]
}

// QueryVersion 执行 binaryPath --version 并解析版本号。进程退出码非零或
// 执行失败时返回 VersionNotFound。
func QueryVersion(ctx context.Context, runner command.Runner, binaryPath string, env map[string]string) string {
	result, err := runner.Run(ctx, command.Spec{
		Name: binaryPath,
		Args: []string{"--version"},
		Env:  env,
	})
	if err != nil || result.ExitCode != 0 {
		return VersionNotFound
	}
	return ParseVersionOutput(result.Output)
}
