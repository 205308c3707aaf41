package routing

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

type Router struct {
	classifier *Classifier
	logger     *slog.Logger
	routes     map[string]map[string]routeEntry
}

type routeEntry struct {
	rc      RouteClass
	handler http.Handler
}

func NewRouter(classifier *Classifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: classifier,
		logger:     logger,
		routes:     make(map[string]map[string]routeEntry),
	}
}

// Handle registers h for an allowlisted method and path.
func (r *Router) Handle(method string, path string, h http.Handler) error {
	rc, ok := r.classifier.Allowed(method, path)
	if !ok {
		return fmt.Errorf("routing: %s %s is not allowlisted", method, path)
	}
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]routeEntry)
	}

	r.routes[path][method] = routeEntry{
		rc: rc,
		handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("handler panic", "method", req.Method, "path", req.URL.Path, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
					httperr.Write(w, req, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			h.ServeHTTP(w, req)
		}),
	}
	return nil
}

// RouteClass returns the class of a registered route, falling back to the classifier.
func (r *Router) RouteClass(method string, path string) RouteClass {
	if e, ok := r.routes[path][method]; ok {
		return e.rc
	}
	return r.classifier.Classify(path)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	methods, ok := r.routes[req.URL.Path]
	if !ok {
		httperr.Write(w, req, http.StatusNotFound, "not_found", "not found")
		return
	}
	entry, ok := methods[req.Method]
	if !ok {
		allow := make([]string, 0, len(methods))
		for m := range methods {
			allow = append(allow, m)
		}
		slices.Sort(allow)
		w.Header().Set("Allow", strings.Join(allow, ", "))
		httperr.Write(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	entry.handler.ServeHTTP(w, req)
}
