package server

import (
	"log/slog"
	"net/http"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/routing"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

type authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

// withAuthz gates tenant_api routes on the actor's role. It runs after withActor.
func withAuthz(classifier *routing.Classifier, a authorizer, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || classifier.Classify(path) != routing.RouteClassTenantAPI {
			next.ServeHTTP(w, r)
			return
		}

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := currentActor(r.Context())
		if !ok {
			httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
			return
		}
		subject := authz.SubjectFromRole(actor.Role)
		domain := authz.DomainFromTeamID(actor.TeamID)

		allowed, enforced, err := a.Authorize(subject, domain, object, action)
		if err != nil {
			httperr.Write(w, r, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if !allowed {
			if enforced {
				httperr.Write(w, r, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			logger.Warn("authz shadow deny", "subject", subject, "domain", domain, "object", object, "action", action, "path", path)
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	switch path {
	case "/api/v1/task-instances":
		switch method {
		case http.MethodGet:
			return authz.ObjectTaskInstances, authz.ActionRead, true
		case http.MethodPost:
			return authz.ObjectTaskInstances, authz.ActionCreate, true
		case http.MethodPatch:
			return authz.ObjectTaskInstances, authz.ActionUpdate, true
		case http.MethodDelete:
			return authz.ObjectTaskInstances, authz.ActionDelete, true
		}
		return "", "", false
	case "/api/v1/task-instances/view":
		if method == http.MethodGet {
			return authz.ObjectTaskInstances, authz.ActionRead, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}
