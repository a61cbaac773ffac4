package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"credmgr/internal/target"
	"credmgr/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/credmgr"
	configFileName = "config.yaml"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// FileConfig is the YAML configuration file.
//
//	default:
//	  credential:
//	    interactive: auto
//	targets:
//	  https://dev.azure.com/contoso:
//	    credential:
//	      authority: aad
type FileConfig struct {
	// Defaults holds section -> key -> value settings applying to every target.
	Defaults map[string]map[string]string `yaml:"default,omitempty"`

	// URLs holds per-URL-prefix settings. The longest matching prefix wins.
	URLs map[string]map[string]map[string]string `yaml:"targets,omitempty"`
}

// FileLookup resolves settings from a FileConfig.
type FileLookup struct {
	cfg      FileConfig
	prefixes []string
}

// NewFileLookup indexes cfg for lookups.
func NewFileLookup(cfg FileConfig) *FileLookup {
	prefixes := make([]string, 0, len(cfg.URLs))
	for p := range cfg.URLs {
		prefixes = append(prefixes, p)
	}
	// longest first so the most specific prefix wins
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return &FileLookup{cfg: cfg, prefixes: prefixes}
}

// Get implements Lookup.
func (f *FileLookup) Get(section string, t target.URI, key string) (string, bool) {
	full := t.String()
	for _, prefix := range f.prefixes {
		if !urlPrefixMatches(prefix, full) {
			continue
		}
		if v, ok := f.cfg.URLs[prefix][section][key]; ok {
			return v, true
		}
	}
	v, ok := f.cfg.Defaults[section][key]
	return v, ok
}

// urlPrefixMatches matches on whole path segments: https://host/org matches
// https://host/org/repo but not https://host/organization.
func urlPrefixMatches(prefix, full string) bool {
	norm := prefix
	if u, err := target.Normalize(prefix); err == nil {
		norm = u.String()
	}
	if full == norm {
		return true
	}
	return strings.HasPrefix(full, strings.TrimSuffix(norm, "/")+"/")
}

// DefaultConfigPath returns ~/.config/credmgr/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// LoadFile reads a FileConfig from path. A missing file yields an empty
// configuration.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig

	// #nosec G304 -- the config path is chosen by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config file found at %s, using defaults", path)
			return cfg, nil
		}
		return cfg, NewConfigurationError(path, "file", "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, NewConfigurationError(path, "file", "parse", err.Error())
	}

	logging.Debug("ConfigLoader", "Loaded configuration from %s", path)
	return cfg, nil
}

// Sources bundles the external inputs of NewLookup.
type Sources struct {
	// Getenv reads environment variables; nil means os.Getenv.
	Getenv func(string) string
	// Git runs git; nil executes the git binary. Set DisableGit to skip it.
	Git        GitRunner
	DisableGit bool
	// ConfigPath is the YAML file; "" selects DefaultConfigPath.
	ConfigPath string
}

// NewLookup builds the standard lookup chain: environment overrides, then
// git config, then the YAML file.
func NewLookup(src Sources) (Lookup, error) {
	env := NewEnvLookup(src.Getenv)

	path := src.ConfigPath
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			logging.Debug("ConfigLoader", "%v", err)
		}
		path = p
	}

	var file FileConfig
	if path != "" {
		cfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = cfg
	}

	chain := Chain{env}
	if !src.DisableGit {
		chain = append(chain, NewGitConfigLookup(src.Git))
	}
	chain = append(chain, NewFileLookup(file))
	return chain, nil
}
