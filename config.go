package etiquette

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
)

// Config is the JSON-on-disk configuration for one catalog data
// directory. Defaults are merged at load time via creasty/defaults and
// the file is rewritten if any default field was missing, mirroring
// tupyy-photos-ng's defaults.MustSet usage ahead of an options struct.
type Config struct {
	Tag struct {
		MinLength  int    `json:"min_length" default:"1"`
		MaxLength  int    `json:"max_length" default:"32"`
		ValidChars string `json:"valid_chars" default:"abcdefghijklmnopqrstuvwxyz0123456789_()"`
	} `json:"tag"`

	User struct {
		MinUsernameLength int    `json:"min_username_length" default:"2"`
		MaxUsernameLength int    `json:"max_username_length" default:"24"`
		MinPasswordLength int    `json:"min_password_length" default:"6"`
		ValidChars        string `json:"valid_chars" default:"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-.!@#$%^&*"`
	} `json:"user"`

	IDLength int `json:"id_length" default:"12"`

	ThumbnailWidth  int `json:"thumbnail_width" default:"400"`
	ThumbnailHeight int `json:"thumbnail_height" default:"400"`

	FileReadChunk int `json:"file_read_chunk" default:"1048576"`

	DigestExcludeFiles []string `json:"digest_exclude_files"`
	DigestExcludeDirs  []string `json:"digest_exclude_dirs"`

	EnableFeature map[string]bool `json:"enable_feature"`

	CacheSize map[string]int `json:"cache_size"`
}

const configFilename = "config.json"

// LoadConfig reads config.json from dataDir, merging in defaults for any
// field the file omitted, and rewrites the file if defaults were added.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, configFilename)

	cfg := &Config{}
	raw, err := os.ReadFile(path)
	wasMissing := os.IsNotExist(err)
	if err != nil && !wasMissing {
		return nil, err
	}

	if !wasMissing {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	before, _ := json.Marshal(cfg)
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	after, _ := json.Marshal(cfg)

	if wasMissing || string(before) != string(after) {
		if err := cfg.save(dataDir); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) save(dataDir string) error {
	path := filepath.Join(dataDir, configFilename)
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// FeatureEnabled reports whether the named feature flag is on. Unknown
// flags default to enabled, since EnableFeature only needs entries for
// flags a deployment wants to turn off.
func (c *Config) FeatureEnabled(name string) bool {
	if c.EnableFeature == nil {
		return true
	}
	v, ok := c.EnableFeature[name]
	if !ok {
		return true
	}
	return v
}

// requireFeature returns ErrFeatureDisabled if name is explicitly turned
// off in config.
func (c *Config) requireFeature(name string) error {
	if !c.FeatureEnabled(name) {
		return wrapError("FeatureDisabled", nil, "feature %q is disabled", name)
	}
	return nil
}
