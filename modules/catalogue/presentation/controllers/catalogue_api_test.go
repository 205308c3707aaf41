package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/services"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

func newController(t *testing.T) CatalogueController {
	t.Helper()
	c, err := services.LoadDefault()
	require.NoError(t, err)
	return CatalogueController{Catalogue: c}
}

func serve(h http.HandlerFunc, method string, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httperr.Envelope {
	t.Helper()
	var env httperr.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandlePracticeAreasAPI(t *testing.T) {
	c := newController(t)

	rec := serve(c.HandlePracticeAreasAPI, http.MethodGet, "/api/v1/practice-areas")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Version       string                      `json:"version"`
		PracticeAreas []types.PracticeAreaSummary `json:"practice_areas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Version)
	require.Len(t, body.PracticeAreas, 4)

	rec = serve(c.HandlePracticeAreasAPI, http.MethodPost, "/api/v1/practice-areas")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleTasksAPI(t *testing.T) {
	c := newController(t)

	rec := serve(c.HandleTasksAPI, http.MethodGet, "/api/v1/tasks?area=family-law")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tasks []types.TaskDefinition `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 7)

	rec = serve(c.HandleTasksAPI, http.MethodGet, "/api/v1/tasks")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", decodeEnvelope(t, rec).Code)

	rec = serve(c.HandleTasksAPI, http.MethodGet, "/api/v1/tasks?area=maritime")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTaskAPI(t *testing.T) {
	c := newController(t)

	rec := serve(c.HandleTaskAPI, http.MethodGet, "/api/v1/task?area=personal-injury&task_id=pi-notice-of-claim")
	require.Equal(t, http.StatusOK, rec.Code)
	var task types.TaskDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.Equal(t, "pi-notice-of-claim", task.ID)
	require.NotNil(t, task.Deadline)
	require.Equal(t, 90, *task.Deadline.OffsetDays)

	rec = serve(c.HandleTaskAPI, http.MethodGet, "/api/v1/task?area=personal-injury")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(c.HandleTaskAPI, http.MethodGet, "/api/v1/task?area=personal-injury&task_id=cd-arraignment")
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "not_found", env.Code)
	require.Equal(t, "/api/v1/task", env.Meta.Path)
}

func TestHandleTableAPI(t *testing.T) {
	c := newController(t)

	rec := serve(c.HandleTableAPI, http.MethodGet, "/api/v1/table?area=real-estate&name=mansion_tax_tiers")
	require.Equal(t, http.StatusOK, rec.Code)
	var table types.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	require.Equal(t, types.TableBracket, table.Kind)
	require.NotNil(t, table.Brackets)
	require.NotEmpty(t, table.Brackets.Brackets)

	rec = serve(c.HandleTableAPI, http.MethodGet, "/api/v1/table?area=real-estate&name=nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
