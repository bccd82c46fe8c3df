package toolchain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	channelPattern      = regexp.MustCompile(`^(stable|beta|nightly)$`)
	semverPattern       = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	datedChannelPattern = regexp.MustCompile(`^(stable|beta|nightly)-\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

// ValidateVersion 校验版本标识是否为合法的通道名、语义版本或带日期的通道版本。
// 非法输入属于配置错误，调用方不应重试。
func ValidateVersion(version string) error {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return fmt.Errorf("toolchain: version is required, use stable, beta, nightly or a version like 1.75.0")
	}

	if channelPattern.MatchString(trimmed) ||
		semverPattern.MatchString(trimmed) ||
		datedChannelPattern.MatchString(trimmed) {
		return nil
	}

	return fmt.Errorf("toolchain: invalid version %q, expected a channel (stable, beta, nightly), a version (1.75.0, 1.76) or a dated channel (nightly-2024-01-15)", trimmed)
}
