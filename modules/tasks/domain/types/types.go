package types

import (
	"slices"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

// FieldValues is the stored value map of a task instance, keyed by field name.
type FieldValues map[string]any

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Actor is the caller on whose behalf an instance operation runs.
type Actor struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	Role   string `json:"role"`
}

type TaskInstance struct {
	ID           string      `json:"id"`
	TeamID       string      `json:"team_id"`
	MatterID     string      `json:"matter_id"`
	PracticeArea string      `json:"practice_area"`
	TaskID       string      `json:"task_id"`
	Status       Status      `json:"status"`
	Values       FieldValues `json:"values"`
	CreatedBy    string      `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// InstancePatch carries the mutable parts of an instance; nil members are left alone.
type InstancePatch struct {
	Status *Status     `json:"status,omitempty"`
	Values FieldValues `json:"values,omitempty"`
}

type DeadlineView struct {
	Rule          string          `json:"rule"`
	Computable    bool            `json:"computable"`
	TriggerField  string          `json:"trigger_field,omitempty"`
	OffsetDays    int             `json:"offset_days,omitempty"`
	Trigger       string          `json:"trigger,omitempty"`
	Due           string          `json:"due,omitempty"`
	DaysRemaining *int            `json:"days_remaining,omitempty"`
	Status        deadline.Status `json:"status,omitempty"`
}

// CalculationResult is one calculation run against an instance's values.
type CalculationResult struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Table   string `json:"table"`
	Statute string `json:"statute,omitempty"`

	Bracket    *tiered.BracketResult `json:"bracket,omitempty"`
	Basis      string                `json:"basis,omitempty"`
	CappedAt   string                `json:"capped_at,omitempty"`
	Rate       string                `json:"rate,omitempty"`
	Amount     string                `json:"amount,omitempty"`
	Display    string                `json:"display,omitempty"`
	TimeBudget *timebudget.Result    `json:"time_budget,omitempty"`
	Expires    string                `json:"expires,omitempty"`
	Status     deadline.Status       `json:"status,omitempty"`
}

type AdvisoryHit struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	Citation string `json:"citation,omitempty"`
}

// TaskView is a task definition resolved against stored values.
type TaskView struct {
	PracticeArea string              `json:"practice_area"`
	TaskID       string              `json:"task_id"`
	Name         string              `json:"name"`
	Statute      string              `json:"statute,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Deadline     *DeadlineView       `json:"deadline,omitempty"`
	Values       map[string]any      `json:"values"`
	Calculations []CalculationResult `json:"calculations"`
	Advisories   []AdvisoryHit       `json:"advisories"`
}

// AuditEntry is a fire-and-forget record of a mutation.
type AuditEntry struct {
	ID         string         `json:"id"`
	TeamID     string         `json:"team_id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	At         time.Time      `json:"at"`
}

const (
	AuditCreated = "created"
	AuditUpdated = "updated"
	AuditDeleted = "deleted"

	EntityTask = "task"
)
