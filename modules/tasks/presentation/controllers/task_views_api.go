package controllers

import (
	"net/http"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

type TaskViewResolver interface {
	ResolveTaskView(area string, taskID string, values types.FieldValues, now time.Time) (types.TaskView, error)
}

type TaskViewsController struct {
	Resolver TaskViewResolver
	NowUTC   func() time.Time
}

type taskViewAPIRequest struct {
	PracticeArea string            `json:"practice_area"`
	TaskID       string            `json:"task_id"`
	Values       types.FieldValues `json:"values"`
	AsOf         string            `json:"as_of"`
}

// HandleTaskViewsAPI resolves an unsaved set of values against a catalogue task.
func (c TaskViewsController) HandleTaskViewsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req taskViewAPIRequest
	if err := readJSON(w, r, &req); err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	now, err := resolveNow(req.AsOf, c.NowUTC)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	view, err := c.Resolver.ResolveTaskView(req.PracticeArea, req.TaskID, req.Values, now)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, view)
}
