package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/routing"
	cataloguecontrollers "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/presentation/controllers"
	catalogueservices "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/services"
	taskcontrollers "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/presentation/controllers"
	taskservices "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/services"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

type HandlerOptions struct {
	Config     Config
	Catalogue  *catalogueservices.Catalogue
	Stores     Stores
	Authorizer *authz.Authorizer
	Logger     *slog.Logger
	NowUTC     func() time.Time
}

// NewHandler wires the catalogue, calculators and instance service behind the allowlisted router.
// Middleware order: rate limit, actor token, authorization, router.
func NewHandler(opts HandlerOptions) (http.Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.NowUTC
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	a, err := loadAllowlist(opts.Config.AllowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	catalogue := opts.Catalogue
	if catalogue == nil {
		catalogue, err = catalogueservices.LoadDefault()
		if err != nil {
			return nil, err
		}
	}
	az := opts.Authorizer
	if az == nil {
		mode := opts.Config.AuthzMode
		if mode == "" {
			mode = authz.ModeEnforce
		}
		az, err = authz.NewDefaultAuthorizer(mode)
		if err != nil {
			return nil, err
		}
	}
	store := opts.Stores.Instances
	if store == nil {
		return nil, fmt.Errorf("server: instance store is required")
	}

	binder, err := taskservices.NewBinder(catalogue, logger)
	if err != nil {
		return nil, err
	}
	instances := taskservices.NewInstanceService(taskservices.InstanceServiceOptions{
		Store:      store,
		Audit:      opts.Stores.Audit,
		Authorizer: az,
		Binder:     binder,
		Catalogue:  catalogue,
		Logger:     logger,
		NowUTC:     now,
	})

	catalogueAPI := cataloguecontrollers.CatalogueController{Catalogue: catalogue}
	viewsAPI := taskcontrollers.TaskViewsController{Resolver: binder, NowUTC: now}
	calcAPI := taskcontrollers.CalcController{Tables: catalogue, NowUTC: now}
	instancesAPI := taskcontrollers.TaskInstancesController{Actor: currentActor, Service: instances}

	router := routing.NewRouter(classifier, logger)
	routes := []struct {
		method string
		path   string
		h      http.HandlerFunc
	}{
		{http.MethodGet, "/health", func(w http.ResponseWriter, _ *http.Request) {
			httperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "catalogue_version": catalogue.Version()})
		}},
		{http.MethodGet, "/api/v1/practice-areas", catalogueAPI.HandlePracticeAreasAPI},
		{http.MethodGet, "/api/v1/tasks", catalogueAPI.HandleTasksAPI},
		{http.MethodGet, "/api/v1/task", catalogueAPI.HandleTaskAPI},
		{http.MethodGet, "/api/v1/table", catalogueAPI.HandleTableAPI},
		{http.MethodPost, "/api/v1/task-views", viewsAPI.HandleTaskViewsAPI},
		{http.MethodPost, "/api/v1/calc/deadline", calcAPI.HandleDeadlineAPI},
		{http.MethodPost, "/api/v1/calc/bracket", calcAPI.HandleBracketAPI},
		{http.MethodPost, "/api/v1/calc/percentage", calcAPI.HandlePercentageAPI},
		{http.MethodPost, "/api/v1/calc/time-budget", calcAPI.HandleTimeBudgetAPI},
		{http.MethodGet, "/api/v1/task-instances", instancesAPI.HandleTaskInstancesAPI},
		{http.MethodPost, "/api/v1/task-instances", instancesAPI.HandleTaskInstancesAPI},
		{http.MethodPatch, "/api/v1/task-instances", instancesAPI.HandleTaskInstancesAPI},
		{http.MethodDelete, "/api/v1/task-instances", instancesAPI.HandleTaskInstancesAPI},
		{http.MethodGet, "/api/v1/task-instances/view", instancesAPI.HandleTaskInstanceViewAPI},
	}
	for _, rt := range routes {
		if err := router.Handle(rt.method, rt.path, rt.h); err != nil {
			return nil, err
		}
	}

	var h http.Handler = router
	h = withAuthz(classifier, az, logger, h)
	h = withActor(classifier, opts.Config.ActorTokenSecret, now, h)
	if opts.Config.RateLimit > 0 {
		h = newIPRateLimiter(opts.Config.RateLimit, max(opts.Config.RateBurst, 1)).middleware(h)
	}
	return h, nil
}

func loadAllowlist(path string) (routing.Allowlist, error) {
	if path == "" {
		return routing.DefaultAllowlist()
	}
	return routing.LoadAllowlist(path)
}
