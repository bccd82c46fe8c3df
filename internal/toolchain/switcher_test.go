package toolchain

import (
	"path/filepath"
	"testing"

	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/pkg/models"
)

type stubEnvManager struct {
	configuredHome string
	currentVersion string
	failConfigure  error
}

func (s *stubEnvManager) SetCurrentVersion(version string) error {
	s.currentVersion = version
	return nil
}

func (s *stubEnvManager) ConfigureEnvironment(cargoHome string) error {
	if s.failConfigure != nil {
		return s.failConfigure
	}
	s.configuredHome = cargoHome
	return nil
}

func (s *stubEnvManager) DetectShell() (string, error) { return "bash", nil }

func (s *stubEnvManager) UpdateShellConfig(string, string) error { return nil }

func newTestStore(t *testing.T) *registry.FileStore {
	t.Helper()

	root := t.TempDir()
	return registry.NewFileStore(models.Config{
		RootDir:       root,
		ToolchainsDir: filepath.Join(root, "toolchains"),
	})
}

func TestSwitcherUseVersion(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	home := store.GetHomePath("stable")
	writeExecutable(t, filepath.Join(home, "bin", "cargo"))
	writeExecutable(t, filepath.Join(home, "bin", "rustc"))

	if err := store.SaveRecord(models.Toolchain{Version: "stable", HomeDir: home}); err != nil {
		t.Fatalf("save record: %v", err)
	}
	if err := store.SaveRecord(models.Toolchain{Version: "1.75.0", HomeDir: store.GetHomePath("1.75.0")}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	envManager := &stubEnvManager{}
	switcher := NewSwitcher(store, envManager, NewVerifier(unixProfile()))

	if err := switcher.UseVersion("stable"); err != nil {
		t.Fatalf("use failed: %v", err)
	}

	if envManager.configuredHome != home {
		t.Errorf("configured home = %s, want %s", envManager.configuredHome, home)
	}
	if envManager.currentVersion != "stable" {
		t.Errorf("current version = %s", envManager.currentVersion)
	}

	records, err := store.LoadRecords()
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	for _, tc := range records {
		want := tc.Version == "stable"
		if tc.IsCurrent != want {
			t.Errorf("record %s IsCurrent = %v, want %v", tc.Version, tc.IsCurrent, want)
		}
	}
}

func TestSwitcherUnknownVersion(t *testing.T) {
	t.Parallel()

	switcher := NewSwitcher(newTestStore(t), &stubEnvManager{}, NewVerifier(unixProfile()))
	if err := switcher.UseVersion("nightly"); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestSwitcherRejectsBrokenInstall(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	home := store.GetHomePath("beta")
	if err := store.SaveRecord(models.Toolchain{Version: "beta", HomeDir: home}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	switcher := NewSwitcher(store, &stubEnvManager{}, NewVerifier(unixProfile()))
	if err := switcher.UseVersion("beta"); err == nil {
		t.Fatal("expected error for missing binaries")
	}
}

func TestSwitcherAllowsSystemToolchain(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	record := models.Toolchain{Version: "stable", HomeDir: store.GetHomePath("stable"), UsedSystem: true}
	if err := store.SaveRecord(record); err != nil {
		t.Fatalf("save record: %v", err)
	}

	switcher := NewSwitcher(store, &stubEnvManager{}, NewVerifier(unixProfile()))
	if err := switcher.UseVersion("stable"); err != nil {
		t.Fatalf("system toolchain switch failed: %v", err)
	}
}

func TestSwitcherEmptyVersion(t *testing.T) {
	t.Parallel()

	switcher := NewSwitcher(newTestStore(t), &stubEnvManager{}, NewVerifier(unixProfile()))
	if err := switcher.UseVersion("  "); err == nil {
		t.Fatal("expected error for empty version")
	}
}
