// Package config loads the machine and kernel settings.
//
// Settings come from three layers, each overriding the previous one:
// built-in defaults, an optional JSON file, and NACHOS_* environment
// variables.
//
// Example file:
//
//	{
//		"num_phys_pages": 64,
//		"page_size": 1024,
//		"stack_pages": 8,
//		"log_level": "DEBUG"
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config holds every tunable of the simulated machine and kernel.
type Config struct {
	// NumPhysPages is the number of physical memory pages.
	NumPhysPages int `json:"num_phys_pages"`
	// PageSize is the page size in bytes.
	PageSize int `json:"page_size"`
	// StackPages is the number of stack pages reserved for each process.
	StackPages int `json:"stack_pages"`
	// MaxFiles is the capacity of each process's descriptor table,
	// including the two console descriptors.
	MaxFiles int `json:"max_files"`
	// MaxNameLength bounds file names read from user memory.
	MaxNameLength int `json:"max_name_length"`
	// FileSystemRoot is the host directory backing the file system.
	// Empty means an in-memory file system.
	FileSystemRoot string `json:"file_system_root"`
	// LogLevel is one of TRACE, DEBUG, INFO, WARN, ERROR.
	LogLevel string `json:"log_level"`
	// LogFile, when set, receives a copy of every log line.
	LogFile string `json:"log_file"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		NumPhysPages:  64,
		PageSize:      1024,
		StackPages:    8,
		MaxFiles:      16,
		MaxNameLength: 256,
		LogLevel:      "INFO",
	}
}

// Load reads a JSON file on top of the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from NACHOS_* variables found through lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"NACHOS_NUM_PHYS_PAGES", &c.NumPhysPages},
		{"NACHOS_PAGE_SIZE", &c.PageSize},
		{"NACHOS_STACK_PAGES", &c.StackPages},
		{"NACHOS_MAX_FILES", &c.MaxFiles},
		{"NACHOS_MAX_NAME_LENGTH", &c.MaxNameLength},
	}
	for _, v := range ints {
		s, ok := lookup(v.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, v.key, s)
		}
		*v.dst = n
	}

	if s, ok := lookup("NACHOS_FS_ROOT"); ok {
		c.FileSystemRoot = s
	}
	if s, ok := lookup("NACHOS_LOG_LEVEL"); ok {
		c.LogLevel = s
	}
	if s, ok := lookup("NACHOS_LOG_FILE"); ok {
		c.LogFile = s
	}
	return nil
}

// Validate checks that the geometry is usable.
func (c *Config) Validate() error {
	switch {
	case c.NumPhysPages <= 0:
		return fmt.Errorf("%w: num_phys_pages %d", ErrInvalid, c.NumPhysPages)
	case c.PageSize <= 0:
		return fmt.Errorf("%w: page_size %d", ErrInvalid, c.PageSize)
	case c.StackPages < 0:
		return fmt.Errorf("%w: stack_pages %d", ErrInvalid, c.StackPages)
	case c.MaxFiles < 3:
		return fmt.Errorf("%w: max_files %d leaves no room for files", ErrInvalid, c.MaxFiles)
	case c.MaxNameLength <= 0:
		return fmt.Errorf("%w: max_name_length %d", ErrInvalid, c.MaxNameLength)
	}
	return nil
}
