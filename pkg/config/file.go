package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

// FileName is the project configuration file looked up next to the sources.
const FileName = "swindle.toml"

// File mirrors the layout of swindle.toml.
type File struct {
	Warnings map[string]bool `toml:"warnings"`
	Features map[string]bool `toml:"features"`
	VM       VMSection       `toml:"vm"`
	Log      LogSection      `toml:"log"`
}

type VMSection struct {
	Trace     bool `toml:"trace"`
	LeakCheck bool `toml:"leak-check"`
}

type LogSection struct {
	Verbosity int `toml:"verbosity"`
}

// Load decodes a swindle.toml file and applies it to c.
func (c *Config) Load(path string) error {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 && c.IsWarningEnabled(WarnExtra) {
		return fmt.Errorf("%s: unknown key '%s'", path, undecoded[0])
	}
	return c.apply(path, &f)
}

// FindAndLoad searches dir and its parents for swindle.toml and loads the first one found.
// It returns the path that was loaded, or "" when there is none.
func (c *Config) FindAndLoad(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(abs, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, c.Load(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

func (c *Config) apply(path string, f *File) error {
	// Sorted so that "all" is applied before individual names regardless of map order.
	names := make([]string, 0, len(f.Warnings))
	for name := range f.Warnings {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "all" || names[j] == "all" {
			return names[i] == "all"
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		if err := c.SetWarningByName(name, f.Warnings[name]); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for name, enabled := range f.Features {
		if err := c.SetFeatureByName(name, enabled); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	c.Trace = c.Trace || f.VM.Trace
	c.LeakCheck = c.LeakCheck || f.VM.LeakCheck
	if f.Log.Verbosity != 0 {
		c.Verbosity = f.Log.Verbosity
	}
	return nil
}

// ApplyEnv lets SWINDLE_TRACE, SWINDLE_LEAK_CHECK and SWINDLE_VERBOSE override the file settings.
func (c *Config) ApplyEnv() {
	if env.Has("SWINDLE_TRACE") {
		c.Trace = env.Bool("SWINDLE_TRACE")
	}
	if env.Has("SWINDLE_LEAK_CHECK") {
		c.LeakCheck = env.Bool("SWINDLE_LEAK_CHECK")
	}
	c.Verbosity = env.Int("SWINDLE_VERBOSE", c.Verbosity)
}
