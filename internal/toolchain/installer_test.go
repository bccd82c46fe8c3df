package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redersoft/rustvm/internal/command"
	"github.com/redersoft/rustvm/internal/platform"
	"github.com/redersoft/rustvm/pkg/models"
)

type stubRunner struct {
	mu     sync.Mutex
	calls  []command.Spec
	runFn  func(command.Spec) (command.Result, error)
	lookFn func(string) (string, error)
}

func (s *stubRunner) Run(_ context.Context, spec command.Spec) (command.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, spec)
	s.mu.Unlock()

	if s.runFn == nil {
		return command.Result{}, nil
	}
	return s.runFn(spec)
}

func (s *stubRunner) LookPath(name string) (string, error) {
	if s.lookFn == nil {
		return "", errors.New("not found")
	}
	return s.lookFn(name)
}

func (s *stubRunner) countByName(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, call := range s.calls {
		if call.Name == name {
			count++
		}
	}
	return count
}

func cargoVersionOutput() command.Result {
	return command.Result{Output: "cargo 1.75.0 (1bc8dbc342 2023-12-07)"}
}

func newTestInstaller(runner command.Runner) *Installer {
	return NewInstaller(runner, NewVerifier(unixProfile()), unixProfile(),
		WithRetryDelay(time.Millisecond))
}

func TestEnsureInstalledRejectsInvalidVersion(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	installer := newTestInstaller(runner)

	_, err := installer.EnsureInstalled(context.Background(), t.TempDir(), models.Request{Version: "rust-1.75.0"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no subprocess calls, got %d", len(runner.calls))
	}
}

func TestEnsureInstalledShortCircuitsOnValidInstall(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeExecutable(t, filepath.Join(home, "bin", "cargo"))
	writeExecutable(t, filepath.Join(home, "bin", "rustc"))

	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			if len(spec.Args) == 1 && spec.Args[0] == "--version" {
				return cargoVersionOutput(), nil
			}
			t.Errorf("unexpected subprocess call: %s %v", spec.Name, spec.Args)
			return command.Result{}, nil
		},
	}
	installer := newTestInstaller(runner)
	req := models.Request{Version: "stable", InstallRustup: true}

	for range 2 {
		tc, err := installer.EnsureInstalled(context.Background(), home, req)
		if err != nil {
			t.Fatalf("install failed: %v", err)
		}
		if tc.CargoVersion != "1.75.0" {
			t.Fatalf("cargo version = %q", tc.CargoVersion)
		}
	}

	if runner.countByName("curl") != 0 {
		t.Fatal("expected no installer download")
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected only version queries, got %d calls", len(runner.calls))
	}
}

func TestEnsureInstalledPrefersSystemCargo(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			return cargoVersionOutput(), nil
		},
		lookFn: func(name string) (string, error) {
			if name == "cargo" {
				return "/usr/bin/cargo", nil
			}
			return "", errors.New("not found")
		},
	}
	installer := newTestInstaller(runner)

	tc, err := installer.EnsureInstalled(context.Background(), t.TempDir(),
		models.Request{Version: "stable", PreferSystemTools: true})
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if !tc.UsedSystem {
		t.Fatal("expected system toolchain")
	}
	if tc.CargoPath != "/usr/bin/cargo" {
		t.Fatalf("cargo path = %s", tc.CargoPath)
	}
	if runner.countByName("curl") != 0 {
		t.Fatal("expected no installer download")
	}
}

func TestEnsureInstalledBootstrapAndInstall(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rustupPath := filepath.Join(home, "bin", "rustup")

	runner := &stubRunner{}
	runner.runFn = func(spec command.Spec) (command.Result, error) {
		switch {
		case spec.Name == "curl":
			writeExecutable(t, filepath.Join(home, "rustup-init.sh"))
			return command.Result{}, nil
		case spec.Name == "sh":
			if spec.Env["CARGO_HOME"] != home {
				t.Errorf("bootstrap CARGO_HOME = %q", spec.Env["CARGO_HOME"])
			}
			if spec.Env["RUSTUP_HOME"] != filepath.Join(home, "rustup") {
				t.Errorf("bootstrap RUSTUP_HOME = %q", spec.Env["RUSTUP_HOME"])
			}
			writeExecutable(t, rustupPath)
			return command.Result{}, nil
		case spec.Name == rustupPath && len(spec.Args) == 3 && spec.Args[0] == "toolchain":
			writeExecutable(t, filepath.Join(home, "bin", "cargo"))
			writeExecutable(t, filepath.Join(home, "bin", "rustc"))
			return command.Result{}, nil
		case spec.Name == rustupPath && len(spec.Args) == 2 && spec.Args[0] == "default":
			return command.Result{}, nil
		case len(spec.Args) == 1 && spec.Args[0] == "--version":
			return cargoVersionOutput(), nil
		}
		t.Errorf("unexpected subprocess call: %s %v", spec.Name, spec.Args)
		return command.Result{}, nil
	}

	installer := newTestInstaller(runner)
	tc, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "stable", InstallRustup: true})
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}

	if runner.countByName("curl") != 1 {
		t.Fatalf("curl calls = %d, want 1", runner.countByName("curl"))
	}
	if tc.CargoVersion != "1.75.0" {
		t.Fatalf("cargo version = %q", tc.CargoVersion)
	}
	if tc.RustupPath != rustupPath {
		t.Fatalf("rustup path = %s", tc.RustupPath)
	}
}

func TestEnsureInstalledRetriesBootstrapThreeTimes(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			if spec.Name == "curl" {
				return command.Result{Output: "network unreachable", ExitCode: 6}, nil
			}
			t.Errorf("unexpected subprocess call: %s %v", spec.Name, spec.Args)
			return command.Result{}, nil
		},
	}
	retryDelay := 20 * time.Millisecond
	installer := NewInstaller(runner, NewVerifier(unixProfile()), unixProfile(),
		WithRetryDelay(retryDelay))

	start := time.Now()
	_, err := installer.EnsureInstalled(context.Background(), t.TempDir(),
		models.Request{Version: "stable", InstallRustup: true})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected bootstrap failure")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("error %q does not mention attempt count", err)
	}
	if got := runner.countByName("curl"); got != 3 {
		t.Fatalf("curl calls = %d, want 3", got)
	}
	if elapsed < 2*retryDelay {
		t.Fatalf("retries finished too fast: %v", elapsed)
	}
}

func TestEnsureInstalledToolchainInstallFailureIsFatal(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rustupPath := filepath.Join(home, "bin", "rustup")
	writeExecutable(t, rustupPath)

	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			if spec.Name == rustupPath && spec.Args[0] == "toolchain" {
				return command.Result{Output: "no release found", ExitCode: 1}, nil
			}
			return command.Result{}, nil
		},
	}
	installer := newTestInstaller(runner)

	_, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "1.75.0", InstallRustup: true})
	if err == nil {
		t.Fatal("expected fatal install error")
	}
	if !strings.Contains(err.Error(), "exit code 1") || !strings.Contains(err.Error(), "no release found") {
		t.Fatalf("error missing exit detail: %v", err)
	}
}

func TestEnsureInstalledDefaultFailureIsWarning(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rustupPath := filepath.Join(home, "bin", "rustup")
	writeExecutable(t, rustupPath)

	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			switch {
			case spec.Name == rustupPath && spec.Args[0] == "toolchain":
				writeExecutable(t, filepath.Join(home, "bin", "cargo"))
				writeExecutable(t, filepath.Join(home, "bin", "rustc"))
				return command.Result{}, nil
			case spec.Name == rustupPath && spec.Args[0] == "default":
				return command.Result{Output: "could not write settings", ExitCode: 1}, nil
			case len(spec.Args) == 1 && spec.Args[0] == "--version":
				return cargoVersionOutput(), nil
			}
			return command.Result{}, nil
		},
	}
	installer := newTestInstaller(runner)

	if _, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "stable", InstallRustup: true}); err != nil {
		t.Fatalf("default failure should not be fatal: %v", err)
	}
}

func TestEnsureInstalledVerificationFailureReportsPath(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rustupPath := filepath.Join(home, "bin", "rustup")
	writeExecutable(t, rustupPath)

	runner := &stubRunner{}
	installer := newTestInstaller(runner)

	_, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "stable", InstallRustup: true})
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if !strings.Contains(err.Error(), filepath.Join(home, "bin")) {
		t.Fatalf("error %q does not report searched path", err)
	}
}

func TestEnsureInstalledUnsupportedWindowsArch(t *testing.T) {
	t.Parallel()

	profile := platform.Profile{IsWindows: true, Arch: platform.ArchArm}
	runner := &stubRunner{}
	installer := NewInstaller(runner, NewVerifier(profile), profile,
		WithRetryDelay(time.Millisecond))

	_, err := installer.EnsureInstalled(context.Background(), t.TempDir(),
		models.Request{Version: "stable", InstallRustup: true})
	if !errors.Is(err, platform.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no subprocess calls, got %d", len(runner.calls))
	}
}

func TestEnsureInstalledMirrorEnvPropagates(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rustupPath := filepath.Join(home, "bin", "rustup")
	writeExecutable(t, rustupPath)

	var sawMirror bool
	runner := &stubRunner{
		runFn: func(spec command.Spec) (command.Result, error) {
			switch {
			case spec.Name == rustupPath && spec.Args[0] == "toolchain":
				if spec.Env["RUSTUP_DIST_SERVER"] == "https://rsproxy.cn" {
					sawMirror = true
				}
				writeExecutable(t, filepath.Join(home, "bin", "cargo"))
				writeExecutable(t, filepath.Join(home, "bin", "rustc"))
				return command.Result{}, nil
			case len(spec.Args) == 1 && spec.Args[0] == "--version":
				return cargoVersionOutput(), nil
			}
			return command.Result{}, nil
		},
	}
	installer := NewInstaller(runner, NewVerifier(unixProfile()), unixProfile(),
		WithRetryDelay(time.Millisecond),
		WithMirrorEnv(map[string]string{"RUSTUP_DIST_SERVER": "https://rsproxy.cn"}))

	if _, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "stable", InstallRustup: true}); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if !sawMirror {
		t.Fatal("mirror env not passed to rustup")
	}
}

func TestEnsureInstalledWithoutRustupWarnsAndVerifies(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	runner := &stubRunner{}
	installer := newTestInstaller(runner)

	_, err := installer.EnsureInstalled(context.Background(), home,
		models.Request{Version: "stable", InstallRustup: false})
	if err == nil {
		t.Fatal("expected verification failure when nothing can be installed")
	}
	if runner.countByName("curl") != 0 {
		t.Fatal("bootstrap must not run when disabled")
	}
	if _, statErr := os.Stat(home); statErr != nil {
		t.Fatalf("home directory should exist: %v", statErr)
	}
}
