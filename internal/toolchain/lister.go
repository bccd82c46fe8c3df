package toolchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redersoft/rustvm/internal/registry"
	"github.com/redersoft/rustvm/pkg/models"
)

// Lister 聚合本地工具链信息并标记当前版本。
type Lister struct {
	storage  registry.Store
	verifier *Verifier
}

// NewLister 创建工具链列表服务。
func NewLister(store registry.Store, verifier *Verifier) *Lister {
	return &Lister{storage: store, verifier: verifier}
}

// LocalToolchains 返回本地安装的工具链，标记当前版本。
func (l *Lister) LocalToolchains() ([]models.Toolchain, error) {
	if l.storage == nil {
		return nil, fmt.Errorf("lister: storage is required")
	}
	records, err := l.storage.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("lister: load records: %w", err)
	}

	current, err := l.storage.GetCurrentVersionMarker()
	if err != nil {
		return nil, fmt.Errorf("lister: current marker: %w", err)
	}

	for i := range records {
		records[i].IsCurrent = records[i].Version == current
	}

	sort.SliceStable(records, func(i, j int) bool {
		return compareVersionIdents(records[i].Version, records[j].Version) > 0
	})

	return records, nil
}

// CurrentToolchain 返回当前激活的工具链。
func (l *Lister) CurrentToolchain() (*models.Toolchain, error) {
	records, err := l.LocalToolchains()
	if err != nil {
		return nil, err
	}
	for _, tc := range records {
		if tc.IsCurrent {
			if !tc.UsedSystem && l.verifier != nil && !l.verifier.Verify(tc.HomeDir) {
				return nil, fmt.Errorf("lister: cargo or rustc missing under %s", tc.HomeDir)
			}
			return &tc, nil
		}
	}
	return nil, nil
}

// FormatToolchain 格式化工具链输出，包含安装路径并标记当前版本。
func FormatToolchain(tc models.Toolchain) string {
	marker := " "
	if tc.IsCurrent {
		marker = "*"
	}
	pathInfo := tc.HomeDir
	if tc.UsedSystem {
		pathInfo = "(system toolchain)"
	} else if pathInfo == "" {
		pathInfo = "(unknown path)"
	}
	detail := tc.Version
	if tc.CargoVersion != "" && tc.CargoVersion != VersionNotFound && tc.CargoVersion != tc.Version {
		detail = fmt.Sprintf("%s (cargo %s)", tc.Version, tc.CargoVersion)
	}
	return fmt.Sprintf("%s %s - %s", marker, detail, pathInfo)
}

// compareVersionIdents 比较两个版本标识。通道名排在语义版本之前，
// 语义版本按数值大小比较。
func compareVersionIdents(a, b string) int {
	rankA, rankB := channelRank(a), channelRank(b)
	if rankA != rankB {
		if rankA > rankB {
			return 1
		}
		return -1
	}
	if rankA > 0 {
		return strings.Compare(b, a)
	}

	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	max := len(ap)
	if len(bp) > max {
		max = len(bp)
	}
	for i := 0; i < max; i++ {
		ai := 0
		if i < len(ap) {
			ai = parseInt(ap[i])
		}
		bi := 0
		if i < len(bp) {
			bi = parseInt(bp[i])
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}

var channelOrder = map[string]int{
	"stable":  3,
	"beta":    2,
	"nightly": 1,
}

func channelRank(ident string) int {
	name, _, _ := strings.Cut(ident, "-")
	return channelOrder[name]
}

func parseInt(value string) int {
	var n int
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
