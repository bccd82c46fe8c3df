package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redersoft/rustvm/pkg/models"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()

	root := t.TempDir()
	return NewFileStore(models.Config{
		RootDir:       root,
		ToolchainsDir: filepath.Join(root, "toolchains"),
	})
}

func TestSaveAndLoadRecords(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	tc := models.Toolchain{
		Version:      "1.75.0",
		HomeDir:      store.GetHomePath("1.75.0"),
		CargoVersion: "1.75.0",
		InstalledAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}

	if err := store.SaveRecord(tc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	records, err := store.LoadRecords()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Version != "1.75.0" || records[0].CargoVersion != "1.75.0" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if !records[0].InstalledAt.Equal(tc.InstalledAt) {
		t.Fatalf("installed at = %v", records[0].InstalledAt)
	}
}

func TestSaveRecordUpdatesExisting(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	if err := store.SaveRecord(models.Toolchain{Version: "stable", CargoVersion: "1.75.0"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveRecord(models.Toolchain{Version: "stable", CargoVersion: "1.76.0"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	records, err := store.LoadRecords()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want deduplicated 1", len(records))
	}
	if records[0].CargoVersion != "1.76.0" {
		t.Fatalf("cargo version = %s", records[0].CargoVersion)
	}
}

func TestLoadRecordsMissingFile(t *testing.T) {
	t.Parallel()

	records, err := newStore(t).LoadRecords()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty, got %d", len(records))
	}
}

func TestDeleteRecord(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	for _, version := range []string{"stable", "nightly"} {
		if err := store.SaveRecord(models.Toolchain{Version: version}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	if err := store.DeleteRecord("stable"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	records, err := store.LoadRecords()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 || records[0].Version != "nightly" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestCurrentVersionMarker(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	marker, err := store.GetCurrentVersionMarker()
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if marker != "" {
		t.Fatalf("initial marker = %q", marker)
	}

	if err := store.SetCurrentVersionMarker(" stable \n"); err != nil {
		t.Fatalf("set marker: %v", err)
	}

	marker, err = store.GetCurrentVersionMarker()
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if marker != "stable" {
		t.Fatalf("marker = %q, want trimmed", marker)
	}
}

func TestGetHomePathLayout(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	path := store.GetHomePath("1.75.0")
	if filepath.Base(path) != "rust-1.75.0" {
		t.Fatalf("home path = %s", path)
	}
}

func TestRecordsFileIsToml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore(models.Config{RootDir: root})
	if err := store.SaveRecord(models.Toolchain{Version: "stable"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "toolchains.toml"))
	if err != nil {
		t.Fatalf("read records file: %v", err)
	}
	if !strings.Contains(string(data), "[[toolchains]]") {
		t.Fatalf("unexpected records payload: %s", data)
	}
}

func TestDefaultsResolveFromHome(t *testing.T) {
	t.Parallel()

	store := NewFileStore(models.Config{RootDir: t.TempDir()})
	if !strings.HasSuffix(filepath.Dir(store.GetHomePath("stable")), "toolchains") {
		t.Fatalf("toolchains dir not derived: %s", store.GetHomePath("stable"))
	}
}
