package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/cli"
)

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	be.True(t, cfg.IsWarningEnabled(WarnShadow))

	be.Err(t, cfg.ApplyFlag("-Wno-shadow"), nil)
	be.Equal(t, cfg.IsWarningEnabled(WarnShadow), false)

	be.Err(t, cfg.ApplyFlag("-Wconst-cond"), nil)
	be.True(t, cfg.IsWarningEnabled(WarnConstCond))

	be.Err(t, cfg.ApplyFlag("-Fno-stringify"), nil)
	be.Equal(t, cfg.IsFeatureEnabled(FeatStringify), false)

	be.True(t, cfg.ApplyFlag("-Wbogus") != nil)
	be.True(t, cfg.ApplyFlag("-Xshadow") != nil)
}

func TestWallSkipsPedantic(t *testing.T) {
	cfg := NewConfig()
	be.Err(t, cfg.ApplyFlag("-Wno-all"), nil)
	be.Equal(t, cfg.IsWarningEnabled(WarnSelfAssign), false)

	be.Err(t, cfg.ApplyFlag("-Wall"), nil)
	be.True(t, cfg.IsWarningEnabled(WarnConstCond))
	be.Equal(t, cfg.Warnings[WarnPedantic].Enabled, false)
}

func TestPedanticEnablesEverything(t *testing.T) {
	cfg := NewConfig()
	cfg.SetWarning(WarnShadow, false)
	cfg.SetWarning(WarnPedantic, true)
	be.True(t, cfg.IsWarningEnabled(WarnShadow))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := `
[warnings]
all = false
self-assign = true

[features]
remainder = false

[vm]
trace = true
leak-check = true

[log]
verbosity = 2
`
	be.Err(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644), nil)

	sub := filepath.Join(dir, "src", "nested")
	be.Err(t, os.MkdirAll(sub, 0o755), nil)

	cfg := NewConfig()
	path, err := cfg.FindAndLoad(sub)
	be.Err(t, err, nil)
	be.Equal(t, path, filepath.Join(dir, FileName))

	be.Equal(t, cfg.IsWarningEnabled(WarnShadow), false)
	be.True(t, cfg.IsWarningEnabled(WarnSelfAssign))
	be.Equal(t, cfg.IsFeatureEnabled(FeatRemainder), false)
	be.True(t, cfg.Trace)
	be.True(t, cfg.LeakCheck)
	be.Equal(t, cfg.Verbosity, 2)
}

func TestLoadRejectsUnknownNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	be.Err(t, os.WriteFile(path, []byte("[warnings]\nnonsense = true\n"), 0o644), nil)
	be.True(t, NewConfig().Load(path) != nil)

	be.Err(t, os.WriteFile(path, []byte("[vm]\nturbo = true\n"), 0o644), nil)
	be.True(t, NewConfig().Load(path) != nil)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SWINDLE_TRACE", "true")
	t.Setenv("SWINDLE_VERBOSE", "3")
	cfg := NewConfig()
	cfg.ApplyEnv()
	be.True(t, cfg.Trace)
	be.Equal(t, cfg.LeakCheck, false)
	be.Equal(t, cfg.Verbosity, 3)
}

func TestFlagGroupsOnlyApplyGivenFlags(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("swindle")
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)
	be.Err(t, fs.Parse([]string{"-Wno-all", "-Wshadow", "-Fno-remainder", "x.sw"}), nil)

	cfg.SetWarning(WarnConstCond, true)
	cfg.ApplyFlagGroups(warningFlags, featureFlags, fs.Changed)
	be.True(t, cfg.IsWarningEnabled(WarnShadow))
	be.Equal(t, cfg.IsWarningEnabled(WarnSelfAssign), false)
	be.Equal(t, cfg.IsWarningEnabled(WarnConstCond), false)
	be.Equal(t, cfg.IsFeatureEnabled(FeatRemainder), false)
	be.True(t, cfg.IsFeatureEnabled(FeatStringify))
	be.Equal(t, fs.Args()[0], "x.sw")
}
