package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/0xADE/ade-find/internal/indexer"
)

const rcTemplate = `# ade-find extra roots, appended to the platform defaults
# app_roots:
#   - ~/Applications
# file_roots:
#   - ~/Projects
`

// Config is the daemon configuration: static values from the environment
// and extra roots from the rc file, reloaded while Run is active.
type Config struct {
	static  env
	dynamic rc
	watcher *fsnotify.Watcher

	cbMu     sync.Mutex
	onChange []func()
	logger   *slog.Logger
}

type (
	env struct {
		UnixSocket  string `envconfig:"ADE_FIND_SOCK"`
		RCPath      string `envconfig:"ADE_FIND_RC" default:"~/.config/ade/find.yaml"`
		Workers     int    `envconfig:"ADE_FIND_WORKERS" default:"4"`
		FileDepth   int    `envconfig:"ADE_FIND_FILE_DEPTH" default:"3"`
		ResultLimit int    `envconfig:"ADE_FIND_RESULT_LIMIT" default:"8"`
		DebugLimit  int    `envconfig:"ADE_FIND_DEBUG_LIMIT" default:"20"`
		CacheSize   int    `envconfig:"ADE_FIND_CACHE_SIZE" default:"256"`
		MetricsAddr string `envconfig:"ADE_FIND_METRICS_ADDR"`
		LogLevel    string `envconfig:"ADE_FIND_LOG_LEVEL" default:"info"`
	}
	rc struct {
		sync.RWMutex
		file rcFile
	}
	rcFile struct {
		AppRoots  []string `yaml:"app_roots"`
		FileRoots []string `yaml:"file_roots"`
	}
)

// Load reads the environment and the rc file, creating an empty rc file
// when none exists
func Load() (*Config, error) {
	c := &Config{logger: slog.Default()}

	if err := envconfig.Process("", &c.static); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if c.static.UnixSocket == "" {
		socket, err := DefaultSocketPath()
		if err != nil {
			return nil, err
		}
		c.static.UnixSocket = socket
	}
	c.static.UnixSocket = ExpandPath(c.static.UnixSocket)
	c.static.RCPath = ExpandPath(c.static.RCPath)

	if err := c.loadRC(); err != nil {
		return nil, fmt.Errorf("load rc %s: %w", c.static.RCPath, err)
	}
	return c, nil
}

// DefaultSocketPath returns the per-user socket location
func DefaultSocketPath() (string, error) {
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("get current user: %w", err)
	}
	return fmt.Sprintf("/tmp/ade-%s/findd", currentUser.Uid), nil
}

// SetLogger sets the logger used by the rc watcher
func (c *Config) SetLogger(logger *slog.Logger) {
	c.logger = logger.With("component", "config")
}

// OnChange registers fn to run after every successful rc reload
func (c *Config) OnChange(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Run watches the rc file until ctx is done
func (c *Config) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(c.static.RCPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch rc dir: %w", err)
	}
	c.watcher = watcher

	go c.watchLoop(ctx)
	return nil
}

func (c *Config) watchLoop(ctx context.Context) {
	defer c.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.static.RCPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.loadRC(); err != nil {
				c.logger.Error("reload rc failed", "path", c.static.RCPath, "err", err)
				continue
			}
			c.logger.Info("rc reloaded", "path", c.static.RCPath)
			c.notify()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("rc watcher error", "err", err)
		}
	}
}

func (c *Config) notify() {
	c.cbMu.Lock()
	callbacks := append([]func(){}, c.onChange...)
	c.cbMu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (c *Config) loadRC() error {
	rcPath := c.static.RCPath

	if err := os.MkdirAll(filepath.Dir(rcPath), 0750); err != nil {
		return err
	}

	data, err := os.ReadFile(rcPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.WriteFile(rcPath, []byte(rcTemplate), 0640); err != nil {
			return err
		}
		data = nil
	}

	var parsed rcFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	parsed.AppRoots = expandAll(parsed.AppRoots)
	parsed.FileRoots = expandAll(parsed.FileRoots)

	c.dynamic.Lock()
	defer c.dynamic.Unlock()
	c.dynamic.file = parsed
	return nil
}

// Roots returns the platform default roots followed by the rc extras
func (c *Config) Roots() indexer.Roots {
	c.dynamic.RLock()
	defer c.dynamic.RUnlock()

	return indexer.DefaultRoots().Merge(indexer.Roots{
		Apps:  c.dynamic.file.AppRoots,
		Files: c.dynamic.file.FileRoots,
	})
}

// UnixSocket returns the Unix socket path
func (c *Config) UnixSocket() string {
	return c.static.UnixSocket
}

// RCPath returns the rc file path
func (c *Config) RCPath() string {
	return c.static.RCPath
}

// Workers returns the number of roots scanned concurrently
func (c *Config) Workers() int {
	if c.static.Workers <= 0 {
		return 4
	}
	return c.static.Workers
}

// FileDepth returns the depth bound of the files phase
func (c *Config) FileDepth() int {
	if c.static.FileDepth <= 0 {
		return 3
	}
	return c.static.FileDepth
}

// ResultLimit returns the maximum number of search results
func (c *Config) ResultLimit() int {
	if c.static.ResultLimit <= 0 {
		return 8
	}
	return c.static.ResultLimit
}

// DebugLimit returns the maximum number of debug search results
func (c *Config) DebugLimit() int {
	if c.static.DebugLimit <= 0 {
		return 20
	}
	return c.static.DebugLimit
}

// CacheSize returns the query cache size; zero disables the cache
func (c *Config) CacheSize() int {
	if c.static.CacheSize < 0 {
		return 0
	}
	return c.static.CacheSize
}

// MetricsAddr returns the Prometheus listen address, empty when disabled
func (c *Config) MetricsAddr() string {
	return c.static.MetricsAddr
}

// LogLevel returns the configured log level name
func (c *Config) LogLevel() string {
	return c.static.LogLevel
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return strings.Replace(path, "~", home, 1)
	}
	return path
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, ExpandPath(p))
	}
	return out
}
