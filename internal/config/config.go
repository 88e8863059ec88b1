// Package config loads and validates <project>/.excflow/config.yaml, the
// single place a project tunes resolution mode, exclusions, which base
// classes count as framework-handled when auditing entrypoints (any
// subclass of one is treated as covered), and which call shapes count as
// async boundaries (spec.md §6).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/excflow/excflow/internal/model"
)

// ErrInvalid wraps a structural problem with a config file.
type ErrInvalid struct {
	Path   string
	Reason string
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Reason)
}

// defaultTraceMaxDepth bounds a trace_function walk when config.yaml
// doesn't set trace_max_depth (spec §4.8: "maximum depth is bounded by
// configuration").
const defaultTraceMaxDepth = 25

// raw mirrors the on-disk YAML shape exactly.
type raw struct {
	ResolutionMode     string   `yaml:"resolution_mode"`
	Exclude            []string `yaml:"exclude"`
	HandledBaseClasses []string `yaml:"handled_base_classes"`
	AsyncBoundaries    []string `yaml:"async_boundaries"`
	TraceMaxDepth      int      `yaml:"trace_max_depth"`
}

// Config is the parsed, validated, and compiled project configuration.
type Config struct {
	ResolutionMode     model.ResolutionMode
	Exclude            []string
	HandledBaseClasses []string
	TraceMaxDepth      int

	// asyncBoundaryExprs are expr-lang programs compiled from
	// AsyncBoundaries; IsAsyncBoundary evaluates each against a call-site
	// environment (see CallEnv).
	asyncBoundaryExprs []*vm.Program
	rawAsyncBoundaries []string
}

// Default returns the configuration used when no config.yaml is present.
func Default() *Config {
	return &Config{
		ResolutionMode:     model.ModeDefault,
		HandledBaseClasses: []string{"Exception"},
		TraceMaxDepth:      defaultTraceMaxDepth,
	}
}

// Load reads <dir>/.excflow/config.yaml, or returns Default() if it
// doesn't exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".excflow", "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		ResolutionMode:     model.ModeDefault,
		Exclude:            r.Exclude,
		HandledBaseClasses: r.HandledBaseClasses,
		TraceMaxDepth:      r.TraceMaxDepth,
		rawAsyncBoundaries: r.AsyncBoundaries,
	}
	if r.ResolutionMode != "" {
		mode := model.ResolutionMode(r.ResolutionMode)
		if mode != model.ModeStrict && mode != model.ModeDefault && mode != model.ModeAggressive {
			return nil, &ErrInvalid{Path: path, Reason: fmt.Sprintf("resolution_mode %q is not one of strict|default|aggressive", r.ResolutionMode)}
		}
		cfg.ResolutionMode = mode
	}
	if len(cfg.HandledBaseClasses) == 0 {
		cfg.HandledBaseClasses = []string{"Exception"}
	}
	if cfg.TraceMaxDepth <= 0 {
		cfg.TraceMaxDepth = defaultTraceMaxDepth
	}

	for _, pattern := range r.AsyncBoundaries {
		program, err := expr.Compile(pattern, expr.Env(CallEnv{}))
		if err != nil {
			return nil, &ErrInvalid{Path: path, Reason: fmt.Sprintf("async_boundaries pattern %q: %v", pattern, err)}
		}
		cfg.asyncBoundaryExprs = append(cfg.asyncBoundaryExprs, program)
	}

	return cfg, nil
}

// CallEnv is the environment an async_boundaries expression is evaluated
// against — one per call site passed to IsAsyncBoundary.
type CallEnv struct {
	CalleeName string
	IsMethod   bool
	Keywords   []string
}

// IsAsyncBoundary reports whether any configured pattern matches env.
// internal/propagate does not call it, so a matching call still
// propagates its callee's exceptions.
func (c *Config) IsAsyncBoundary(env CallEnv) (bool, error) {
	for _, program := range c.asyncBoundaryExprs {
		out, err := expr.Run(program, env)
		if err != nil {
			return false, fmt.Errorf("evaluate async boundary expression: %w", err)
		}
		if matched, ok := out.(bool); ok && matched {
			return true, nil
		}
	}
	return false, nil
}
