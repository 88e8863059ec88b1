package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawPatterns mirrors one user-supplied detector file (spec.md §6,
// "<config-dir>/detectors/*"): a project can add its own route, class-route,
// registration-call and handler patterns on top of Default()'s bundled set,
// for in-house frameworks Default() doesn't know about.
type rawPatterns struct {
	Routes       []DecoratorRoutePattern   `yaml:"routes"`
	ClassRoutes  []ClassRoutePattern       `yaml:"class_routes"`
	Registration []RegistrationCallPattern `yaml:"registration"`
	Handlers     []HandlerPattern          `yaml:"handlers"`
	CLIMarkers   []string                  `yaml:"cli_markers"`
}

// LoadDir extends base with every *.yaml/*.yml detector file under dir,
// returning the extended Registry. A directory that doesn't exist leaves
// base untouched — detector files are optional.
func LoadDir(dir string, base Registry) (Registry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return Registry{}, fmt.Errorf("read detector directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return Registry{}, fmt.Errorf("read detector file %s: %w", path, readErr)
		}
		var doc rawPatterns
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return Registry{}, fmt.Errorf("parse detector file %s: %w", path, err)
		}
		base.Routes = append(base.Routes, doc.Routes...)
		base.ClassRoutes = append(base.ClassRoutes, doc.ClassRoutes...)
		base.Registration = append(base.Registration, doc.Registration...)
		base.Handlers = append(base.Handlers, doc.Handlers...)
		base.CLIMarkers = append(base.CLIMarkers, doc.CLIMarkers...)
	}
	return base, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
