package authz

import "testing"

func TestModeFromEnv_Default(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeEnforce {
		t.Fatalf("mode=%q", m)
	}
}

func TestModeFromEnv_Shadow(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "Shadow")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeShadow {
		t.Fatalf("mode=%q", m)
	}
}

func TestModeFromEnv_DisabledRequiresUnsafe(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "disabled")
	t.Setenv("AUTHZ_UNSAFE_ALLOW_DISABLED", "")
	if _, err := ModeFromEnv(); err == nil {
		t.Fatal("expected error")
	}
	t.Setenv("AUTHZ_UNSAFE_ALLOW_DISABLED", "1")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeDisabled {
		t.Fatalf("mode=%q", m)
	}
}

func TestParseMode_Invalid(t *testing.T) {
	if _, err := ParseMode("nope", true); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaultPolicy_RoleHierarchy(t *testing.T) {
	a, err := NewDefaultAuthorizer(ModeEnforce)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	cases := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{RoleAssistant, ObjectTaskInstances, ActionRead, true},
		{RoleAssistant, ObjectTaskInstances, ActionCreate, false},
		{RoleParalegal, ObjectTaskInstances, ActionCreate, true},
		{RoleParalegal, ObjectTaskInstances, ActionUpdate, true},
		{RoleParalegal, ObjectTaskInstances, ActionDelete, false},
		{RoleAttorney, ObjectTaskInstances, ActionDelete, true},
		{RoleAttorney, ObjectTaskInstances, ActionRead, true},
		{RoleAdmin, ObjectCatalogueTasks, ActionAdmin, true},
		{RoleAttorney, ObjectCatalogueTasks, ActionAdmin, false},
		{"", ObjectTaskInstances, ActionRead, false},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.object+"/"+tc.action, func(t *testing.T) {
			allowed, enforced, err := a.Authorize(SubjectFromRole(tc.role), DomainFromTeamID("Team-1"), tc.object, tc.action)
			if err != nil {
				t.Fatalf("err=%v", err)
			}
			if !enforced || allowed != tc.want {
				t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
			}
		})
	}
}

func TestAuthorize_Modes(t *testing.T) {
	shadow, err := NewDefaultAuthorizer(ModeShadow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	allowed, enforced, err := shadow.Authorize(SubjectFromRole(RoleAssistant), "t1", ObjectTaskInstances, ActionDelete)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if enforced || allowed {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}

	disabled, err := NewDefaultAuthorizer(ModeDisabled)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	allowed, enforced, err = disabled.Authorize(SubjectFromRole(RoleAssistant), "t1", ObjectTaskInstances, ActionDelete)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if enforced || !allowed {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}
}

func TestNewAuthorizer_BadModel(t *testing.T) {
	if _, err := NewAuthorizer("nope", defaultPolicy, ModeEnforce); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuthorize_UnknownMode(t *testing.T) {
	a := &Authorizer{mode: Mode("nope")}
	if _, _, err := a.Authorize("role:x", "d", "o", "a"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRoles(t *testing.T) {
	if SubjectFromRole("") != "role:anonymous" || SubjectFromRole(" Paralegal ") != "role:paralegal" {
		t.Fatal("unexpected subject")
	}
	if RoleLevel("ADMIN") != 100 || RoleLevel("assistant") != 40 || RoleLevel("ghost") != 0 {
		t.Fatal("unexpected level")
	}
	if !KnownRole("attorney") || KnownRole("ghost") {
		t.Fatal("unexpected known role")
	}
}
