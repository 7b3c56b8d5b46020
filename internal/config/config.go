// Package config loads kvstored's server configuration from a layered set
// of sources, following the precedence established by the teacher's own
// config loader: defaults, then a global user config file, then a project
// config file (or an explicit --config path), then CLI flag overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/agentkv/kvstored/pkg/fs"
)

// Config holds every server option that can come from a config file or
// flag.
type Config struct {
	Host       string  `json:"host"`
	Port       int     `json:"port"`
	DataFile   string  `json:"data_file"` //nolint:tagliatelle // snake_case for config file
	Unreliable float64 `json:"unreliable,omitempty"`
}

// Default returns the built-in configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     65432,
		DataFile: "data.log",
	}
}

// FileName is the default project config file name.
const FileName = ".kvstored.json"

// Sources records which config files, if any, contributed to a Load result.
type Sources struct {
	Global  string
	Project string
}

// Overrides carries CLI-flag-level values; a field only replaces the
// layered config if its corresponding Has* flag is true, mirroring the
// teacher's hasTicketDirOverride pattern for pflag.Changed detection.
type Overrides struct {
	Host     string
	HasHost  bool
	Port     int
	HasPort  bool
	DataFile string
	HasData  bool
}

var errDataFileEmpty = errors.New("config: data_file must not be empty")

// Load resolves Config with precedence (lowest to highest): defaults,
// global user config, project config (or explicit configPath), CLI
// overrides.
func Load(workDir, configPath string, overrides Overrides, env []string) (Config, Sources, error) {
	cfg := Default()

	var sources Sources

	globalCfg, globalPath, err := loadGlobalConfig(env)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if overrides.HasHost {
		cfg.Host = overrides.Host
	}

	if overrides.HasPort {
		cfg.Port = overrides.Port
	}

	if overrides.HasData {
		cfg.DataFile = overrides.DataFile
	}

	if cfg.DataFile == "" {
		return Config{}, Sources{}, errDataFileEmpty
	}

	return cfg, sources, nil
}

func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "kvstored", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kvstored", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "kvstored", "config.json")
	}

	return ""
}

func loadGlobalConfig(env []string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var path string

	var mustExist bool

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		if _, err := os.Stat(path); err != nil {
			return Config{}, "", fmt.Errorf("config: file not found: %s", configPath)
		}
	} else {
		path = filepath.Join(workDir, FileName)
		mustExist = false
	}

	cfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("config: invalid JSONC in %s: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}

	return cfg, true, nil
}

// Save writes cfg as the project config file at path, replacing it
// atomically so a concurrent reader never observes a half-written file.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	data = append(data, '\n')

	if err := fs.NewReal().WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

func merge(base, overlay Config) Config {
	if overlay.Host != "" {
		base.Host = overlay.Host
	}

	if overlay.Port != 0 {
		base.Port = overlay.Port
	}

	if overlay.DataFile != "" {
		base.DataFile = overlay.DataFile
	}

	if overlay.Unreliable != 0 {
		base.Unreliable = overlay.Unreliable
	}

	return base
}
