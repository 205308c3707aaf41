package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type CatalogueReader interface {
	Version() string
	ListPracticeAreas() []types.PracticeAreaSummary
	ListTasks(area string) ([]types.TaskDefinition, error)
	LookupTask(area string, taskID string) (types.TaskDefinition, error)
	LookupTable(area string, name string) (types.Table, error)
}

type CatalogueController struct {
	Catalogue CatalogueReader
}

func requiredQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ruleerr.ErrInvalidInput, name)
	}
	return v, nil
}

func (c CatalogueController) HandlePracticeAreasAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperr.Write(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{
		"version":        c.Catalogue.Version(),
		"practice_areas": c.Catalogue.ListPracticeAreas(),
	})
}

func (c CatalogueController) HandleTasksAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperr.Write(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	area, err := requiredQuery(r, "area")
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	tasks, err := c.Catalogue.ListTasks(area)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{
		"practice_area": area,
		"tasks":         tasks,
	})
}

func (c CatalogueController) HandleTaskAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperr.Write(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	area, err := requiredQuery(r, "area")
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	taskID, err := requiredQuery(r, "task_id")
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	task, err := c.Catalogue.LookupTask(area, taskID)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, task)
}

func (c CatalogueController) HandleTableAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperr.Write(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	area, err := requiredQuery(r, "area")
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	name, err := requiredQuery(r, "name")
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	table, err := c.Catalogue.LookupTable(area, name)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, table)
}
