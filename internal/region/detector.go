package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 3 * time.Second

// HTTPClient 最小化 HTTP 客户端接口，便于测试替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// probe 描述一个国家探测接口及其响应解析方式。
type probe struct {
	endpoint string
	parse    func([]byte) (string, error)
}

// Detector 负责探测公网 IP 所在国家，用于选择下载镜像。
type Detector struct {
	probes  []probe
	client  HTTPClient
	timeout time.Duration

	mu    sync.Mutex
	cache string
}

// Option 用于配置 Detector。
type Option func(*Detector)

// WithEndpoints 替换默认探测接口，依次为纯文本接口与 JSON 备选接口。
func WithEndpoints(primary, fallback string) Option {
	return func(d *Detector) {
		var probes []probe
		if primary != "" {
			probes = append(probes, probe{endpoint: primary, parse: parsePlainCountry})
		}
		if fallback != "" {
			probes = append(probes, probe{endpoint: fallback, parse: parseJSONCountry})
		}
		if len(probes) > 0 {
			d.probes = probes
		}
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端。
func WithHTTPClient(client HTTPClient) Option {
	return func(d *Detector) {
		if client != nil {
			d.client = client
		}
	}
}

// WithTimeout 设置探测请求超时时间。
func WithTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDetector 创建 Detector 实例。
func NewDetector(opts ...Option) *Detector {
	detector := &Detector{
		probes: []probe{
			{endpoint: "https://ipinfo.io/country", parse: parsePlainCountry},
			{endpoint: "https://ipapi.co/json", parse: parseJSONCountry},
		},
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

// CountryCode 返回 ISO 国家代码（如 CN、US）。探测成功后结果会缓存，
// 后续调用不再触发 HTTP 请求。
func (d *Detector) CountryCode(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.cache != "" {
		code := d.cache
		d.mu.Unlock()
		return code, nil
	}
	d.mu.Unlock()

	if d.client == nil {
		return "", errors.New("region: http client is nil")
	}

	var errs []string
	for _, p := range d.probes {
		code, err := d.fetchCountry(ctx, p)
		if err == nil {
			d.mu.Lock()
			if d.cache == "" {
				d.cache = code
			}
			d.mu.Unlock()
			return code, nil
		}
		errs = append(errs, err.Error())
	}

	return "", fmt.Errorf("region: all probes failed: %s", strings.Join(errs, "; "))
}

func (d *Detector) fetchCountry(ctx context.Context, p probe) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("region: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("region: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("region: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("region: read body: %w", err)
	}

	return p.parse(data)
}

func parsePlainCountry(data []byte) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(string(data)))
	if code == "" {
		return "", errors.New("region: empty country code")
	}
	return code, nil
}

func parseJSONCountry(data []byte) (string, error) {
	var payload struct {
		CountryCode string `json:"country_code"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("region: decode response: %w", err)
	}
	return parsePlainCountry([]byte(payload.CountryCode))
}
