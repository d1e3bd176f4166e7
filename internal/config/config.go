// Package config loads updater configuration from defaults, a YAML config
// file, AUTOUPDATE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/autoupdate/internal/cache"
	"github.com/jmylchreest/autoupdate/internal/plugin/remote"
	"github.com/jmylchreest/autoupdate/internal/security"
)

// Configuration keys.
const (
	KeyBaseURL        = "base-url"
	KeyPluginDir      = "plugin.dir"
	KeyPluginFile     = "plugin.file"
	KeyHostVersion    = "host.version"
	KeyRuntimeVersion = "runtime.version"
	KeyAdmin          = "host.admin"
	KeyCacheBackend   = "cache.backend"
	KeyCacheDir       = "cache.dir"
	KeyCacheRedisURL  = "cache.redis-url"
	KeyCacheTTL       = "cache.ttl"
	KeyHTTPTimeout    = "http.timeout"
	KeyVerbose        = "verbose"
)

const (
	envPrefix      = "AUTOUPDATE"
	configFileName = "autoupdate.yaml"
)

// Config is the resolved updater configuration.
type Config struct {
	BaseURL        string
	PluginDir      string
	PluginFile     string
	HostVersion    string
	RuntimeVersion string
	Admin          bool
	CacheBackend   string
	CacheDir       string
	CacheRedisURL  string
	CacheTTL       time.Duration
	HTTPTimeout    time.Duration
	Verbose        bool

	// File is the config file that was merged, if any.
	File string
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyBaseURL))
	} else if err := security.ValidateBaseURL(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyBaseURL, err))
	}
	if c.PluginFile == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyPluginFile))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyCacheTTL))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyHTTPTimeout))
	}
	return errors.Join(errs...)
}

// CacheConfig returns the cache settings in the form cache.Open expects.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Backend:  c.CacheBackend,
		Dir:      c.CacheDir,
		RedisURL: c.CacheRedisURL,
	}
}

// loadSettings holds Load options.
type loadSettings struct {
	configFile string
	workingDir string
	userDir    string
}

// Option configures Load. Useful for tests to override paths.
type Option func(*loadSettings)

// WithConfigFile sets an explicit config file; it must exist.
func WithConfigFile(path string) Option {
	return func(s *loadSettings) { s.configFile = path }
}

// WithWorkingDir overrides the directory searched for autoupdate.yaml.
func WithWorkingDir(dir string) Option {
	return func(s *loadSettings) { s.workingDir = dir }
}

// WithUserConfigDir overrides the user config directory.
func WithUserConfigDir(dir string) Option {
	return func(s *loadSettings) { s.userDir = dir }
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyBaseURL, "", "base URL of the update server")
	flags.String("plugin-dir", ".", "host plugins directory")
	flags.String("plugin-file", "", "plugin main file, relative to the plugins directory")
	flags.String("host-version", "", "host application version used for requirement checks")
	flags.String("runtime-version", "", "runtime version used for requirement checks")
	flags.String("cache-backend", cache.BackendMemory, "cache backend (memory, file, redis)")
	flags.String("cache-dir", "", "directory for the file cache backend")
	flags.String("cache-redis-url", "", "Redis URL for the redis cache backend")
	flags.Duration("cache-ttl", remote.DefaultTTL, "how long fetched metadata is reused")
	flags.Duration("http-timeout", remote.DefaultTimeout, "timeout for metadata requests")
}

// flagKeys maps flag names to configuration keys. Flags not listed here
// belong to individual commands and are never bound.
var flagKeys = map[string]string{
	"base-url":        KeyBaseURL,
	"verbose":         KeyVerbose,
	"plugin-dir":      KeyPluginDir,
	"plugin-file":     KeyPluginFile,
	"host-version":    KeyHostVersion,
	"runtime-version": KeyRuntimeVersion,
	"cache-backend":   KeyCacheBackend,
	"cache-dir":       KeyCacheDir,
	"cache-redis-url": KeyCacheRedisURL,
	"cache-ttl":       KeyCacheTTL,
	"http-timeout":    KeyHTTPTimeout,
}

// Load resolves the configuration. flags may be nil.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	settings := loadSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	file, err := resolveConfigFile(settings)
	if err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, file); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	return &Config{
		BaseURL:        strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		PluginDir:      v.GetString(KeyPluginDir),
		PluginFile:     v.GetString(KeyPluginFile),
		HostVersion:    v.GetString(KeyHostVersion),
		RuntimeVersion: v.GetString(KeyRuntimeVersion),
		Admin:          v.GetBool(KeyAdmin),
		CacheBackend:   v.GetString(KeyCacheBackend),
		CacheDir:       v.GetString(KeyCacheDir),
		CacheRedisURL:  v.GetString(KeyCacheRedisURL),
		CacheTTL:       v.GetDuration(KeyCacheTTL),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		Verbose:        v.GetBool(KeyVerbose),
		File:           file,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyPluginDir, ".")
	v.SetDefault(KeyPluginFile, "")
	v.SetDefault(KeyHostVersion, "")
	v.SetDefault(KeyRuntimeVersion, "")
	v.SetDefault(KeyAdmin, true)
	v.SetDefault(KeyCacheBackend, cache.BackendMemory)
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyCacheRedisURL, "")
	v.SetDefault(KeyCacheTTL, remote.DefaultTTL)
	v.SetDefault(KeyHTTPTimeout, remote.DefaultTimeout)
	v.SetDefault(KeyVerbose, false)
}

// bindFlags binds flags that were set explicitly, so unset flag defaults
// never shadow file or environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func resolveConfigFile(s loadSettings) (string, error) {
	if s.configFile != "" {
		if _, err := os.Stat(s.configFile); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return s.configFile, nil
	}

	workingDir := s.workingDir
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		workingDir = wd
	}
	candidates := []string{filepath.Join(workingDir, configFileName)}

	userDir := s.userDir
	if userDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			userDir = filepath.Join(dir, "autoupdate")
		}
	}
	if userDir != "" {
		candidates = append(candidates, filepath.Join(userDir, "config.yaml"))
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", c, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config path %s is a directory", c)
		}
		return c, nil
	}
	return "", nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - config file path is comes from the user
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
