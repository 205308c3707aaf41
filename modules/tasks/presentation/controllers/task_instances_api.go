package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/services"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type InstanceAPI interface {
	Create(ctx context.Context, actor types.Actor, req services.CreateInstanceRequest) (types.TaskInstance, error)
	Get(ctx context.Context, actor types.Actor, id string) (types.TaskInstance, error)
	ListForMatter(ctx context.Context, actor types.Actor, matterID string) ([]types.TaskInstance, error)
	Update(ctx context.Context, actor types.Actor, id string, patch types.InstancePatch) (types.TaskInstance, error)
	Delete(ctx context.Context, actor types.Actor, id string) error
	View(ctx context.Context, actor types.Actor, id string) (types.TaskView, error)
}

type TaskInstancesController struct {
	Actor   ActorGetter
	Service InstanceAPI
}

func (c TaskInstancesController) actor(w http.ResponseWriter, r *http.Request) (types.Actor, bool) {
	actor, ok := c.Actor(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return types.Actor{}, false
	}
	return actor, true
}

// HandleTaskInstancesAPI serves GET (?id= or ?matter_id=), POST, PATCH ?id= and DELETE ?id=.
func (c TaskInstancesController) HandleTaskInstancesAPI(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	switch r.Method {
	case http.MethodGet:
		if id != "" {
			inst, err := c.Service.Get(r.Context(), actor, id)
			if err != nil {
				httperr.WriteErr(w, r, err)
				return
			}
			httperr.WriteJSON(w, http.StatusOK, inst)
			return
		}
		matterID := strings.TrimSpace(r.URL.Query().Get("matter_id"))
		list, err := c.Service.ListForMatter(r.Context(), actor, matterID)
		if err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		httperr.WriteJSON(w, http.StatusOK, map[string]any{
			"matter_id":      matterID,
			"task_instances": list,
		})

	case http.MethodPost:
		var req services.CreateInstanceRequest
		if err := readJSON(w, r, &req); err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		inst, err := c.Service.Create(r.Context(), actor, req)
		if err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		httperr.WriteJSON(w, http.StatusCreated, inst)

	case http.MethodPatch:
		if id == "" {
			httperr.WriteErr(w, r, fmt.Errorf("%w: id is required", ruleerr.ErrInvalidInput))
			return
		}
		var patch types.InstancePatch
		if err := readJSON(w, r, &patch); err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		inst, err := c.Service.Update(r.Context(), actor, id, patch)
		if err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		httperr.WriteJSON(w, http.StatusOK, inst)

	case http.MethodDelete:
		if id == "" {
			httperr.WriteErr(w, r, fmt.Errorf("%w: id is required", ruleerr.ErrInvalidInput))
			return
		}
		if err := c.Service.Delete(r.Context(), actor, id); err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r)
	}
}

func (c TaskInstancesController) HandleTaskInstanceViewAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	actor, ok := c.actor(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httperr.WriteErr(w, r, fmt.Errorf("%w: id is required", ruleerr.ErrInvalidInput))
		return
	}
	view, err := c.Service.View(r.Context(), actor, id)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, view)
}
