package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

const maxBodyBytes = 1 << 20

// ActorGetter resolves the authenticated actor placed on the request context by the server.
type ActorGetter func(ctx context.Context) (types.Actor, bool)

// readJSON decodes the request body keeping numbers as json.Number.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", ruleerr.ErrInvalidInput, err)
	}
	return nil
}

// resolveNow returns as_of (YYYY-MM-DD, midnight UTC) when set, otherwise the clock.
func resolveNow(asOf string, clock func() time.Time) (time.Time, error) {
	asOf = strings.TrimSpace(asOf)
	if asOf == "" {
		if clock == nil {
			clock = time.Now
		}
		return clock().UTC(), nil
	}
	d, err := deadline.ParseDate(asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of", err)
	}
	return d, nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httperr.Write(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
