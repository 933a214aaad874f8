// Package config resolves shimsync settings from defaults, an optional
// config file and SHIMSYNC_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/journal"
	"github.com/adamancini/shimsync/internal/update"
)

const (
	// AppName names the XDG subdirectories.
	AppName = "shimsync"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SHIMSYNC_"
	// EnvConfigFile points at an explicit config file.
	EnvConfigFile = EnvPrefix + "CONFIG"
	// SaveDirName is the emulator's save folder name.
	SaveDirName = "Goldberg SteamEmu Saves"
	// PackageDirName is the installed package tree under the data directory.
	PackageDirName = "emulator"

	DefaultHTTPTimeout = 30 * time.Second
	DefaultLockWait    = 10 * time.Second
)

// Config is the resolved configuration.
type Config struct {
	ReleaseIndexURL string          `koanf:"release_index_url" json:"release_index_url" yaml:"release_index_url"`
	AppListURL      string          `koanf:"app_list_url" json:"app_list_url" yaml:"app_list_url"`
	HTTPTimeout     time.Duration   `koanf:"http_timeout" json:"http_timeout" yaml:"http_timeout"`
	LockWait        time.Duration   `koanf:"lock_wait" json:"lock_wait" yaml:"lock_wait"`
	DataDir         string          `koanf:"data_dir" json:"data_dir" yaml:"data_dir"`
	CacheDir        string          `koanf:"cache_dir" json:"cache_dir" yaml:"cache_dir"`
	WorkDir         string          `koanf:"work_dir" json:"work_dir" yaml:"work_dir"`
	SaveDir         string          `koanf:"save_dir" json:"save_dir" yaml:"save_dir"`
	CredentialsFile string          `koanf:"credentials_file" json:"credentials_file" yaml:"credentials_file"`
	Generator       GeneratorConfig `koanf:"generator" json:"generator" yaml:"generator"`
	Journal         JournalConfig   `koanf:"journal" json:"journal" yaml:"journal"`

	// Path is the config file that was loaded, if any.
	Path string `koanf:"-" json:"path,omitempty" yaml:"path,omitempty"`
}

// GeneratorConfig names the external settings generator.
type GeneratorConfig struct {
	Command string   `koanf:"command" json:"command" yaml:"command"`
	Args    []string `koanf:"args" json:"args" yaml:"args"`
}

// JournalConfig controls the run journal.
type JournalConfig struct {
	Dir  string `koanf:"dir" json:"dir" yaml:"dir"`
	Keep int    `koanf:"keep" json:"keep" yaml:"keep"`
}

// PackageDir returns the installed package tree location.
func (c *Config) PackageDir() string {
	return filepath.Join(c.DataDir, PackageDirName)
}

// LockPath returns the pipeline lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, AppName+".lock")
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"release_index_url": update.DefaultIndexURL,
		"app_list_url":      catalog.DefaultAppListURL,
		"http_timeout":      DefaultHTTPTimeout.String(),
		"lock_wait":         DefaultLockWait.String(),
		"data_dir":          filepath.Join(xdg.DataHome, AppName),
		"cache_dir":         filepath.Join(xdg.CacheHome, AppName),
		"save_dir":          defaultSaveDir(),
		"credentials_file":  filepath.Join(xdg.ConfigHome, AppName, "creds.toml"),
		"generator.command": "",
		"generator.args":    []string{},
		"journal.dir":       journal.DefaultDir(),
		"journal.keep":      journal.DefaultKeepCount,
	}
}

// defaultSaveDir matches where the emulator itself looks for saves.
func defaultSaveDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, SaveDirName)
		}
	}
	return filepath.Join(xdg.DataHome, SaveDirName)
}

// Load resolves the configuration. explicitPath may be empty, in which case
// SHIMSYNC_CONFIG and then the standard locations are consulted; a missing
// config file is not an error.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to load defaults")
	}

	path, err := FindConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, "failed to read config file %s", path)
		}
		parser, err := parserFor(path, content)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, "failed to parse config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to load environment")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to decode configuration")
	}
	cfg.Path = path

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(cfg.DataDir, "work")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid configuration")
	}
	return &cfg, nil
}

// envKey maps SHIMSYNC_GENERATOR_COMMAND to generator.command and
// SHIMSYNC_HTTP_TIMEOUT to http_timeout.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"generator", "journal"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// SearchPaths returns the config file candidates in order of precedence.
func SearchPaths() []string {
	dir := filepath.Join(xdg.ConfigHome, AppName)
	names := []string{"config.toml", "config.yaml", "config.yml", "config.json", "config"}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}

// FindConfigFile returns the config file to load, or "" when there is none.
// An explicit path or SHIMSYNC_CONFIG must exist.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath == "" {
		explicitPath = os.Getenv(EnvConfigFile)
	}
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", errors.Newf(errors.KindConfig, "specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	for _, path := range SearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// String renders a one-line summary for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("data=%s cache=%s work=%s saves=%s", c.DataDir, c.CacheDir, c.WorkDir, c.SaveDir)
}
