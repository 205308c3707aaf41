package ports

import (
	"context"

	cataloguetypes "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
)

// InstanceStore persists task instances. Every call is scoped by teamID.
type InstanceStore interface {
	Create(ctx context.Context, inst types.TaskInstance) (types.TaskInstance, error)
	Get(ctx context.Context, teamID string, id string) (types.TaskInstance, error)
	ListForMatter(ctx context.Context, teamID string, matterID string) ([]types.TaskInstance, error)
	Update(ctx context.Context, inst types.TaskInstance) (types.TaskInstance, error)
	Delete(ctx context.Context, teamID string, id string) error
}

// AuditRecorder receives mutation records. Callers never fail on its errors.
type AuditRecorder interface {
	Record(ctx context.Context, entry types.AuditEntry) error
}

// Catalogue is the read surface the binder resolves tasks and tables through.
type Catalogue interface {
	LookupTask(area string, taskID string) (cataloguetypes.TaskDefinition, error)
	LookupTable(area string, name string) (cataloguetypes.Table, error)
	Areas() []cataloguetypes.PracticeArea
}
