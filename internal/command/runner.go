package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Spec 描述一次外部命令调用。
type Spec struct {
	Name string            // 可执行文件名或路径
	Args []string          // 命令参数
	Dir  string            // 工作目录，为空时继承进程目录
	Env  map[string]string // 附加环境变量，覆盖同名的进程环境变量
}

// Result 携带命令的合并输出与退出码。
type Result struct {
	Output   string // stdout 与 stderr 合并后的内容
	ExitCode int
}

// Runner 定义最小化的进程执行接口，便于测试时替换。
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner 基于 os/exec 实现 Runner。
type ExecRunner struct{}

// NewExecRunner 创建进程执行器。
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run 同步执行命令并捕获合并输出。命令以非零退出码结束时不视为错误，
// 调用方通过 Result.ExitCode 判断；错误只在进程无法启动或被取消时返回。
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Name == "" {
		return Result{}, errors.New("command: name is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)

	output, err := cmd.CombinedOutput()
	result := Result{Output: string(output)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("command: %s interrupted: %w", spec.Name, ctxErr)
			}
			return result, nil
		}
		return result, fmt.Errorf("command: start %s: %w", spec.Name, err)
	}

	return result, nil
}

// LookPath 在进程搜索路径中查找可执行文件。
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(extra))
	for _, entry := range base {
		key, _, ok := strings.Cut(entry, "=")
		if ok {
			if _, overridden := extra[key]; overridden {
				continue
			}
		}
		merged = append(merged, entry)
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+extra[key])
	}
	return merged
}
