package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/swindle/pkg/cli"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatEscapes
	FeatStringify
	FeatRemainder
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnConstCond
	WarnSelfAssign
	WarnUnknownEscape
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// VM and logging settings, filled from swindle.toml, the environment and flags.
	Trace     bool
	LeakCheck bool
	Verbosity int
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatComments:  {"comments", true, "Recognize '//' line comments."},
		FeatEscapes:   {"escapes", true, "Recognize '\\' escapes in string literals."},
		FeatStringify: {"stringify", true, "Allow the '$' operator that converts a value to a string."},
		FeatRemainder: {"remainder", true, "Allow the '%' remainder operator."},
	}

	warnings := map[Warning]Info{
		WarnShadow:        {"shadow", true, "Warn when a declaration shadows a variable of an enclosing block."},
		WarnConstCond:     {"const-cond", false, "Warn when an 'if' or 'while' condition is a boolean literal."},
		WarnSelfAssign:    {"self-assign", true, "Warn on assignments of a variable to itself."},
		WarnUnknownEscape: {"unknown-escape", true, "Warn on unrecognized escape sequences in string literals."},
		WarnPedantic:      {"pedantic", false, "Issue every warning, including stylistic ones."},
		WarnExtra:         {"extra", true, "Enable extra miscellaneous warnings (e.g., unknown flags or config keys)."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool {
	if c.Warnings[WarnPedantic].Enabled {
		return true
	}
	return c.Warnings[wt].Enabled
}

// SetFeatureByName is used by the project file, which addresses features by name.
func (c *Config) SetFeatureByName(name string, enabled bool) error {
	ft, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(ft, enabled)
	return nil
}

func (c *Config) SetWarningByName(name string, enabled bool) error {
	if name == "all" {
		c.setAllWarnings(enabled)
		return nil
	}
	wt, ok := c.WarningMap[name]
	if !ok {
		return fmt.Errorf("unknown warning '%s'", name)
	}
	c.SetWarning(wt, enabled)
	return nil
}

func (c *Config) setAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		if i != WarnPedantic {
			c.SetWarning(i, enabled)
		}
	}
}

// ApplyFlag handles a single -W<name>, -Wno-<name>, -F<name> or -Fno-<name> flag.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	name := trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if isWarning {
		return c.SetWarningByName(name, enable)
	}
	return c.SetFeatureByName(name, enable)
}

// SetupFlagGroups registers the -W and -F flag families on fs. The returned slices are indexed by
// Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	var all, noAll bool
	fs.Bool(&all, "Wall", "", false, "Enable every warning except 'pedantic'.")
	fs.Bool(&noAll, "Wno-all", "", false, "Disable every warning except 'pedantic'.")
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific language features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed state of the entries returned by SetupFlagGroups back into c.
// Only flags that were given on the command line change anything; -Wall and -Wno-all apply first.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry, given func(name string) bool) {
	if given("Wall") {
		c.setAllWarnings(true)
	}
	if given("Wno-all") {
		c.setAllWarnings(false)
	}
	for i, entry := range warningFlags {
		if given(entry.Prefix + entry.Name) {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if given(entry.Prefix + "no-" + entry.Name) {
			c.SetWarning(Warning(i), !*entry.Disabled)
		}
	}
	for i, entry := range featureFlags {
		if given(entry.Prefix + entry.Name) {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if given(entry.Prefix + "no-" + entry.Name) {
			c.SetFeature(Feature(i), !*entry.Disabled)
		}
	}
}

// Describe lists the state of every warning and feature, sorted by name.
func (c *Config) Describe() string {
	var sb strings.Builder
	write := func(title string, infos []Info) {
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
		fmt.Fprintf(&sb, "%s:\n", title)
		for _, info := range infos {
			fmt.Fprintf(&sb, "  - %-16s: %v (%s)\n", info.Name, info.Enabled, info.Description)
		}
	}
	var ws, fs []Info
	for _, info := range c.Warnings {
		ws = append(ws, info)
	}
	for _, info := range c.Features {
		fs = append(fs, info)
	}
	write("Warnings", ws)
	write("Features", fs)
	fmt.Fprintf(&sb, "VM: trace=%v leak-check=%v\n", c.Trace, c.LeakCheck)
	return sb.String()
}
