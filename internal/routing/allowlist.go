package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed allowlist.yaml
var defaultAllowlist []byte

type Allowlist struct {
	Version     int                   `yaml:"version"`
	Entrypoints map[string]Entrypoint `yaml:"entrypoints"`
}

type Entrypoint struct {
	Routes []Route `yaml:"routes"`
}

type Route struct {
	Path       string   `yaml:"path"`
	Methods    []string `yaml:"methods"`
	RouteClass string   `yaml:"route_class"`
}

var knownMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func ParseAllowlistYAML(b []byte) (Allowlist, error) {
	var a Allowlist
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Allowlist{}, err
	}
	if a.Version != 1 {
		return Allowlist{}, errors.New("allowlist: unsupported version")
	}
	if a.Entrypoints == nil {
		return Allowlist{}, errors.New("allowlist: missing entrypoints")
	}
	for name, ep := range a.Entrypoints {
		for _, r := range ep.Routes {
			if err := r.validate(); err != nil {
				return Allowlist{}, fmt.Errorf("allowlist: %s: %w", name, err)
			}
		}
	}
	return a, nil
}

func (r Route) validate() error {
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("route %q must be absolute", r.Path)
	}
	if strings.HasPrefix(r.Path, "/api/") && !strings.HasPrefix(r.Path, "/api/v1/") {
		return fmt.Errorf("route %q is not versioned", r.Path)
	}
	if !RouteClass(r.RouteClass).Valid() {
		return fmt.Errorf("route %q has unknown class %q", r.Path, r.RouteClass)
	}
	if len(r.Methods) == 0 {
		return fmt.Errorf("route %q has no methods", r.Path)
	}
	for _, m := range r.Methods {
		if !slices.Contains(knownMethods, m) {
			return fmt.Errorf("route %q has unknown method %q", r.Path, m)
		}
	}
	return nil
}

func LoadAllowlist(path string) (Allowlist, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Allowlist{}, err
	}
	return ParseAllowlistYAML(b)
}

// DefaultAllowlist is the allowlist compiled into the binary.
func DefaultAllowlist() (Allowlist, error) {
	return ParseAllowlistYAML(defaultAllowlist)
}
