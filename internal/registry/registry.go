package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/redersoft/rustvm/pkg/models"
)

// Store 定义本地工具链记录与当前版本标记的读写接口。
type Store interface {
	SaveRecord(tc models.Toolchain) error
	LoadRecords() ([]models.Toolchain, error)
	DeleteRecord(version string) error
	GetHomePath(version string) string
	GetCurrentVersionMarker() (string, error)
	SetCurrentVersionMarker(version string) error
}

// FileStore 通过文件系统持久化工具链记录，记录文件为 TOML 格式。
type FileStore struct {
	cfg           models.Config
	recordsPath   string
	currentPath   string
	toolchainsDir string
	mu            sync.Mutex
}

// recordsFile 表示 toolchains.toml 的结构。
type recordsFile struct {
	Toolchains []models.Toolchain `toml:"toolchains"`
}

// NewFileStore 构造一个文件系统存储实例。
func NewFileStore(cfg models.Config) *FileStore {
	root := cfg.RootDir
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, ".rustvm")
		}
	}
	toolchainsDir := cfg.ToolchainsDir
	if toolchainsDir == "" {
		if root != "" {
			toolchainsDir = filepath.Join(root, "toolchains")
		}
	}
	cfg.RootDir = root
	cfg.ToolchainsDir = toolchainsDir
	return &FileStore{
		cfg:           cfg,
		recordsPath:   filepath.Join(root, "toolchains.toml"),
		currentPath:   filepath.Join(root, "current"),
		toolchainsDir: toolchainsDir,
	}
}

// SaveRecord 保存或更新工具链记录。
func (s *FileStore) SaveRecord(tc models.Toolchain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRoot(); err != nil {
		return err
	}

	records, err := s.readRecordsLocked()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			records = []models.Toolchain{}
		} else {
			return err
		}
	}

	updated := false
	for i := range records {
		if records[i].Version == tc.Version {
			records[i] = tc
			updated = true
			break
		}
	}
	if !updated {
		records = append(records, tc)
	}

	return s.writeRecordsLocked(records)
}

// LoadRecords 读取所有本地工具链记录。
func (s *FileStore) LoadRecords() ([]models.Toolchain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecordsLocked()
	if errors.Is(err, os.ErrNotExist) {
		return []models.Toolchain{}, nil
	}
	return records, err
}

// DeleteRecord 移除指定版本的记录。
func (s *FileStore) DeleteRecord(version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecordsLocked()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	filtered := records[:0]
	for _, tc := range records {
		if tc.Version != version {
			filtered = append(filtered, tc)
		}
	}

	return s.writeRecordsLocked(filtered)
}

// GetHomePath 返回指定版本的安装目录。
func (s *FileStore) GetHomePath(version string) string {
	dir := s.toolchainsDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "rustvm", "toolchains")
	}
	return filepath.Join(dir, fmt.Sprintf("rust-%s", version))
}

// GetCurrentVersionMarker 读取当前版本标记。
func (s *FileStore) GetCurrentVersionMarker() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.currentPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SetCurrentVersionMarker 写入当前版本标记。
func (s *FileStore) SetCurrentVersionMarker(version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRoot(); err != nil {
		return err
	}

	return os.WriteFile(s.currentPath, []byte(strings.TrimSpace(version)), 0o644)
}

func (s *FileStore) ensureRoot() error {
	if s.recordsPath == "" {
		return errors.New("registry: records path is not configured")
	}
	return os.MkdirAll(filepath.Dir(s.recordsPath), 0o755)
}

func (s *FileStore) readRecordsLocked() ([]models.Toolchain, error) {
	if s.recordsPath == "" {
		return nil, errors.New("registry: records path is not configured")
	}

	data, err := os.ReadFile(s.recordsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Toolchain{}, os.ErrNotExist
		}
		return nil, err
	}

	if len(data) == 0 {
		return []models.Toolchain{}, nil
	}

	var file recordsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: decode records: %w", err)
	}
	if file.Toolchains == nil {
		file.Toolchains = []models.Toolchain{}
	}
	return file.Toolchains, nil
}

func (s *FileStore) writeRecordsLocked(records []models.Toolchain) error {
	if s.recordsPath == "" {
		return errors.New("registry: records path is not configured")
	}

	data, err := toml.Marshal(recordsFile{Toolchains: records})
	if err != nil {
		return fmt.Errorf("registry: encode records: %w", err)
	}

	return os.WriteFile(s.recordsPath, data, 0o644)
}
