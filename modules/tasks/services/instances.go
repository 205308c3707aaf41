package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/fieldmeta"
	cataloguetypes "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/ports"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type Authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

type InstanceServiceOptions struct {
	Store      ports.InstanceStore
	Audit      ports.AuditRecorder
	Authorizer Authorizer
	Binder     *Binder
	Catalogue  ports.Catalogue
	Logger     *slog.Logger
	NowUTC     func() time.Time
}

// InstanceService is the write path for task instances: authorization,
// value checks, persistence and audit.
type InstanceService struct {
	store     ports.InstanceStore
	audit     ports.AuditRecorder
	authz     Authorizer
	binder    *Binder
	catalogue ports.Catalogue
	logger    *slog.Logger
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

func NewInstanceService(opts InstanceServiceOptions) *InstanceService {
	s := &InstanceService{
		store:     opts.Store,
		audit:     opts.Audit,
		authz:     opts.Authorizer,
		binder:    opts.Binder,
		catalogue: opts.Catalogue,
		logger:    opts.Logger,
		now:       opts.NowUTC,
		newID:     uuid.NewV7,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type CreateInstanceRequest struct {
	MatterID     string            `json:"matter_id"`
	PracticeArea string            `json:"practice_area"`
	TaskID       string            `json:"task_id"`
	Status       types.Status      `json:"status"`
	Values       types.FieldValues `json:"values"`
}

func (s *InstanceService) authorize(actor types.Actor, action string) error {
	if strings.TrimSpace(actor.TeamID) == "" || strings.TrimSpace(actor.UserID) == "" {
		return fmt.Errorf("%w: actor is incomplete", ruleerr.ErrForbidden)
	}
	if s.authz == nil {
		return nil
	}
	subject := authz.SubjectFromRole(actor.Role)
	domain := authz.DomainFromTeamID(actor.TeamID)
	allowed, enforced, err := s.authz.Authorize(subject, domain, authz.ObjectTaskInstances, action)
	if err != nil {
		return err
	}
	if !allowed {
		if enforced {
			return fmt.Errorf("%w: %s may not %s task instances", ruleerr.ErrForbidden, actor.Role, action)
		}
		s.logger.Warn("authz shadow deny", "subject", subject, "domain", domain, "object", authz.ObjectTaskInstances, "action", action)
	}
	return nil
}

// record is fire-and-forget: a failing recorder is logged and never surfaces.
func (s *InstanceService) record(ctx context.Context, actor types.Actor, action string, inst types.TaskInstance, details map[string]any) {
	if s.audit == nil {
		return
	}
	id, err := s.newID()
	if err != nil {
		s.logger.Warn("audit id", "err", err)
		return
	}
	if details == nil {
		details = map[string]any{}
	}
	details["practice_area"] = inst.PracticeArea
	details["task_id"] = inst.TaskID
	details["matter_id"] = inst.MatterID
	entry := types.AuditEntry{
		ID:         id.String(),
		TeamID:     actor.TeamID,
		UserID:     actor.UserID,
		Action:     action,
		EntityType: types.EntityTask,
		EntityID:   inst.ID,
		Details:    details,
		At:         s.now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "action", action, "entity_id", inst.ID, "err", err)
	}
}

// checkValues rejects malformed stored values. Missing required fields are allowed in drafts.
func checkValues(task cataloguetypes.TaskDefinition, values types.FieldValues) error {
	verr := &ruleerr.ValidationError{}
	for _, f := range task.Fields {
		if _, _, code := fieldmeta.Normalize(f, values[f.Name]); code != "" {
			verr.Add(f.Name, code)
		}
	}
	return verr.OrNil()
}

func (s *InstanceService) Create(ctx context.Context, actor types.Actor, req CreateInstanceRequest) (types.TaskInstance, error) {
	if err := s.authorize(actor, authz.ActionCreate); err != nil {
		return types.TaskInstance{}, err
	}
	req.MatterID = strings.TrimSpace(req.MatterID)
	if req.MatterID == "" {
		return types.TaskInstance{}, fmt.Errorf("%w: matter_id is required", ruleerr.ErrInvalidInput)
	}
	if req.Status == "" {
		req.Status = types.StatusNotStarted
	}
	if !req.Status.Valid() {
		return types.TaskInstance{}, fmt.Errorf("%w: status %q", ruleerr.ErrInvalidInput, req.Status)
	}
	task, err := s.catalogue.LookupTask(req.PracticeArea, req.TaskID)
	if err != nil {
		return types.TaskInstance{}, err
	}
	if err := checkValues(task, req.Values); err != nil {
		return types.TaskInstance{}, err
	}

	id, err := s.newID()
	if err != nil {
		return types.TaskInstance{}, err
	}
	now := s.now().UTC()
	values := maps.Clone(req.Values)
	if values == nil {
		values = types.FieldValues{}
	}
	inst, err := s.store.Create(ctx, types.TaskInstance{
		ID:           id.String(),
		TeamID:       actor.TeamID,
		MatterID:     req.MatterID,
		PracticeArea: req.PracticeArea,
		TaskID:       task.ID,
		Status:       req.Status,
		Values:       values,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return types.TaskInstance{}, err
	}
	s.record(ctx, actor, types.AuditCreated, inst, map[string]any{"status": string(inst.Status)})
	return inst, nil
}

func (s *InstanceService) Get(ctx context.Context, actor types.Actor, id string) (types.TaskInstance, error) {
	if err := s.authorize(actor, authz.ActionRead); err != nil {
		return types.TaskInstance{}, err
	}
	return s.store.Get(ctx, actor.TeamID, id)
}

func (s *InstanceService) ListForMatter(ctx context.Context, actor types.Actor, matterID string) ([]types.TaskInstance, error) {
	if err := s.authorize(actor, authz.ActionRead); err != nil {
		return nil, err
	}
	matterID = strings.TrimSpace(matterID)
	if matterID == "" {
		return nil, fmt.Errorf("%w: matter_id is required", ruleerr.ErrInvalidInput)
	}
	return s.store.ListForMatter(ctx, actor.TeamID, matterID)
}

// Update merges patch.Values over the stored values; a nil value clears a field.
func (s *InstanceService) Update(ctx context.Context, actor types.Actor, id string, patch types.InstancePatch) (types.TaskInstance, error) {
	if err := s.authorize(actor, authz.ActionUpdate); err != nil {
		return types.TaskInstance{}, err
	}
	inst, err := s.store.Get(ctx, actor.TeamID, id)
	if err != nil {
		return types.TaskInstance{}, err
	}
	task, err := s.catalogue.LookupTask(inst.PracticeArea, inst.TaskID)
	if err != nil {
		return types.TaskInstance{}, err
	}

	changed := make([]string, 0, len(patch.Values)+1)
	if patch.Status != nil && *patch.Status != inst.Status {
		if !patch.Status.Valid() {
			return types.TaskInstance{}, fmt.Errorf("%w: status %q", ruleerr.ErrInvalidInput, *patch.Status)
		}
		inst.Status = *patch.Status
		changed = append(changed, "status")
	}
	merged := maps.Clone(inst.Values)
	if merged == nil {
		merged = types.FieldValues{}
	}
	for k, v := range patch.Values {
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = v
		}
		changed = append(changed, k)
	}
	if err := checkValues(task, merged); err != nil {
		return types.TaskInstance{}, err
	}
	inst.Values = merged
	inst.UpdatedAt = s.now().UTC()

	out, err := s.store.Update(ctx, inst)
	if err != nil {
		return types.TaskInstance{}, err
	}
	s.record(ctx, actor, types.AuditUpdated, out, map[string]any{"changed": changed})
	return out, nil
}

func (s *InstanceService) Delete(ctx context.Context, actor types.Actor, id string) error {
	if err := s.authorize(actor, authz.ActionDelete); err != nil {
		return err
	}
	inst, err := s.store.Get(ctx, actor.TeamID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, actor.TeamID, id); err != nil {
		return err
	}
	s.record(ctx, actor, types.AuditDeleted, inst, nil)
	return nil
}

// View loads an instance and resolves it against the catalogue at now.
func (s *InstanceService) View(ctx context.Context, actor types.Actor, id string) (types.TaskView, error) {
	inst, err := s.Get(ctx, actor, id)
	if err != nil {
		return types.TaskView{}, err
	}
	return s.binder.ResolveTaskView(inst.PracticeArea, inst.TaskID, inst.Values, s.now())
}
