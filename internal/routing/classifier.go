package routing

import (
	"errors"
	"slices"
	"strings"
)

type RouteClass string

const (
	// RouteClassPublicAPI needs no actor.
	RouteClassPublicAPI RouteClass = "public_api"
	// RouteClassTenantAPI needs an authenticated actor scoped to a team.
	RouteClassTenantAPI RouteClass = "tenant_api"
	RouteClassOps       RouteClass = "ops"
)

func (rc RouteClass) Valid() bool {
	switch rc {
	case RouteClassPublicAPI, RouteClassTenantAPI, RouteClassOps:
		return true
	default:
		return false
	}
}

type allowedRoute struct {
	rc      RouteClass
	methods []string
}

type Classifier struct {
	entrypoint string
	routes     map[string]allowedRoute
}

func NewClassifier(a Allowlist, entrypoint string) (*Classifier, error) {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return nil, errors.New("allowlist: missing entrypoint")
	}
	if len(ep.Routes) == 0 {
		return nil, errors.New("allowlist: entrypoint routes empty")
	}

	routes := make(map[string]allowedRoute, len(ep.Routes))
	for _, r := range ep.Routes {
		if r.Path == "" || r.RouteClass == "" {
			return nil, errors.New("allowlist: invalid route")
		}
		if _, dup := routes[r.Path]; dup {
			return nil, errors.New("allowlist: duplicate route " + r.Path)
		}
		routes[r.Path] = allowedRoute{rc: RouteClass(r.RouteClass), methods: slices.Clone(r.Methods)}
	}
	return &Classifier{entrypoint: entrypoint, routes: routes}, nil
}

// Classify returns the allowlisted class of path. Unlisted /api paths are public_api, anything else ops.
func (c *Classifier) Classify(path string) RouteClass {
	if r, ok := c.routes[path]; ok {
		return r.rc
	}
	if hasPrefixSegment(path, "/api") {
		return RouteClassPublicAPI
	}
	return RouteClassOps
}

// Allowed reports whether method on path is allowlisted, and its class.
func (c *Classifier) Allowed(method string, path string) (RouteClass, bool) {
	r, ok := c.routes[path]
	if !ok || !slices.Contains(r.methods, method) {
		return "", false
	}
	return r.rc, true
}

func hasPrefixSegment(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
