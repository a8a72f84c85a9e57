package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Config holds optional JSONC defaults for qcgen, loaded from a
// ".qcgen.json" file if one is present. Explicit CLI flags always win
// over config values.
type Config struct {
	OutputDir string `json:"output_dir,omitempty"`
	Strict    bool   `json:"strict,omitempty"`
}

const configFileName = ".qcgen.json"

// loadConfig loads configFileName from dir if it exists. A missing file
// is not an error; a malformed one is.
func loadConfig(dir string) (Config, error) {
	path := filepath.Join(dir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, err
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, err
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

const defaultConfigJSON = `{
	// output_dir: where generated .qcdb files are written by default.
	"output_dir": ".",
	// strict: reject schemas that require non-zero inter-field padding.
	"strict": false
}
`

// writeDefaultConfig publishes a default configFileName into dir using the
// same temp-file-then-rename write github.com/natefinch/atomic performs,
// so a crash mid-write never leaves a truncated config file behind.
func writeDefaultConfig(dir string) error {
	path := filepath.Join(dir, configFileName)

	return atomic.WriteFile(path, strings.NewReader(defaultConfigJSON))
}
