package authz

import "strings"

// Role levels carried over from the practice-management roster.
const (
	RoleAdmin     = "admin"
	RoleAttorney  = "attorney"
	RoleParalegal = "paralegal"
	RoleAssistant = "assistant"
	RoleAnonymous = "anonymous"
)

var roleLevels = map[string]int{
	RoleAdmin:     100,
	RoleAttorney:  80,
	RoleParalegal: 60,
	RoleAssistant: 40,
}

func RoleLevel(role string) int {
	return roleLevels[strings.ToLower(strings.TrimSpace(role))]
}

func KnownRole(role string) bool {
	_, ok := roleLevels[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAdmin  = "admin"
)

const (
	ObjectCatalogueTasks = "catalogue.tasks"
	ObjectTaskInstances  = "tasks.instances"
)
