package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/redersoft/rustvm/pkg/models"
)

const (
	defaultDistServer = "https://static.rust-lang.org"
	defaultCacheTTL   = 5 * time.Minute
)

// ChannelClient 定义远程通道清单源应具备的能力。
type ChannelClient interface {
	FetchChannel(ctx context.Context, channel string) (models.ChannelRelease, error)
}

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 用于配置 Client。
type Option func(*Client)

// WithDistServer 设置自定义分发服务器地址。
func WithDistServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.distServer = strings.TrimRight(server, "/")
		}
	}
}

// WithHTTPClient 设置 HTTP 客户端。
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithCacheTTL 设置清单缓存时间。
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// Client 实现 ChannelClient 接口，按通道抓取 rustup 渠道清单。
type Client struct {
	distServer string
	httpClient HTTPClient
	cacheTTL   time.Duration

	mu     sync.Mutex
	cached map[string]cacheEntry
}

type cacheEntry struct {
	release  models.ChannelRelease
	cachedAt time.Time
}

// channelManifest 表示通道清单中 rustvm 关心的字段，其余字段忽略。
type channelManifest struct {
	Date string `toml:"date"`
	Pkg  map[string]struct {
		Version string `toml:"version"`
	} `toml:"pkg"`
}

// NewClient 创建通道清单客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		distServer: defaultDistServer,
		httpClient: http.DefaultClient,
		cacheTTL:   defaultCacheTTL,
		cached:     make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchChannel 获取指定通道背后的具体发布版本。支持 stable、beta、nightly
// 以及带日期的通道（如 nightly-2024-01-15）。
func (c *Client) FetchChannel(ctx context.Context, channel string) (models.ChannelRelease, error) {
	channel = strings.TrimSpace(channel)
	url, err := c.manifestURL(channel)
	if err != nil {
		return models.ChannelRelease{}, err
	}

	if release, ok := c.getCached(channel); ok {
		return release, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ChannelRelease{}, fmt.Errorf("remote: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ChannelRelease{}, fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ChannelRelease{}, fmt.Errorf("remote: unexpected status %d for %s", resp.StatusCode, channel)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ChannelRelease{}, fmt.Errorf("remote: read body: %w", err)
	}

	release, err := parseManifest(channel, body)
	if err != nil {
		return models.ChannelRelease{}, err
	}

	c.setCache(channel, release)
	return release, nil
}

// manifestURL 计算通道清单地址。带日期的通道指向归档目录。
func (c *Client) manifestURL(channel string) (string, error) {
	name, date, dated := splitDatedChannel(channel)
	switch name {
	case "stable", "beta", "nightly":
	default:
		return "", fmt.Errorf("remote: unknown channel %q", channel)
	}
	if dated {
		return fmt.Sprintf("%s/dist/%s/channel-rust-%s.toml", c.distServer, date, name), nil
	}
	return fmt.Sprintf("%s/dist/channel-rust-%s.toml", c.distServer, name), nil
}

func splitDatedChannel(channel string) (name, date string, dated bool) {
	name, date, dated = strings.Cut(channel, "-")
	if !dated {
		return channel, "", false
	}
	return name, date, true
}

func parseManifest(channel string, data []byte) (models.ChannelRelease, error) {
	var manifest channelManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return models.ChannelRelease{}, fmt.Errorf("remote: decode manifest: %w", err)
	}

	rust, ok := manifest.Pkg["rust"]
	if !ok || rust.Version == "" {
		return models.ChannelRelease{}, fmt.Errorf("remote: manifest for %s has no rust package", channel)
	}

	// 清单中的版本形如 "1.90.0 (1159e78c4 2025-09-14)"，只保留版本号。
	version := rust.Version
	if fields := strings.Fields(version); len(fields) > 0 {
		version = fields[0]
	}

	return models.ChannelRelease{
		Channel: channel,
		Version: version,
		Date:    manifest.Date,
	}, nil
}

func (c *Client) getCached(channel string) (models.ChannelRelease, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cached[channel]
	if !ok {
		return models.ChannelRelease{}, false
	}
	if c.cacheTTL > 0 && time.Since(entry.cachedAt) > c.cacheTTL {
		delete(c.cached, channel)
		return models.ChannelRelease{}, false
	}
	return entry.release, true
}

func (c *Client) setCache(channel string, release models.ChannelRelease) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cached[channel] = cacheEntry{release: release, cachedAt: time.Now()}
}
