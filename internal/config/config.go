// Package config loads the optional, overridable configuration a
// vkreplay invocation can take beyond its CLI flags: a JSON-with-
// comments overlay file, grounded on calvinalkan-agent-task's layered
// config file handling, that supplies defaults CLI flags then override.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// File is the shape of an optional --config overlay file. Every field
// is optional; a field left at its zero value never overrides whatever
// the CLI flag (or its own default) already resolved to.
type File struct {
	NumThreads       *int    `json:"num_threads,omitempty"`
	ShmemFD          *int    `json:"shmem_fd,omitempty"`
	EnableValidation *bool   `json:"enable_validation,omitempty"`
	DeviceIndex      *int    `json:"device_index,omitempty"`
	Progress         *bool   `json:"progress,omitempty"`
	JSONReportPath   *string `json:"json_report,omitempty"`
}

// Load reads and parses the hujson (JSON-with-comments) file at path.
// A missing path is an error — callers only invoke Load when --config
// was actually supplied, so a missing explicit path is always a hard
// error.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return File{}, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(standardized, &f); err != nil {
		return File{}, fmt.Errorf("config: %s is not valid JSON after standardizing: %w", path, err)
	}
	return f, nil
}

// ApplyDefaults overlays any field set in f onto flags, returning the
// merged result. Call before parsing CLI flags on top, so explicit
// flags always win over the config file, which in turn wins over the
// compiled-in defaults already present in flags.
func (f File) ApplyDefaults(flags Flags) Flags {
	if f.NumThreads != nil {
		flags.NumThreads = *f.NumThreads
	}
	if f.ShmemFD != nil {
		flags.ShmemFD = *f.ShmemFD
	}
	if f.EnableValidation != nil {
		flags.EnableValidation = *f.EnableValidation
	}
	if f.DeviceIndex != nil {
		flags.DeviceIndex = *f.DeviceIndex
	}
	if f.Progress != nil {
		flags.Progress = *f.Progress
	}
	if f.JSONReportPath != nil {
		flags.JSONReportPath = *f.JSONReportPath
	}
	return flags
}

// Flags mirrors the CLI flag set cmd/vkreplay recognizes, so a config
// file overlay and pflag-parsed values are the same shape and can be
// merged field by field.
type Flags struct {
	NumThreads       int
	ShmemFD          int
	EnableValidation bool
	DeviceIndex      int
	Progress         bool
	JSONReportPath   string
}
