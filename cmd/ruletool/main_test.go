package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/server"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/infrastructure/yamlsource"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

var testNow = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

func runTool(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func() time.Time { return testNow })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decodeJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m), raw)
	return m
}

func TestAreasCommand(t *testing.T) {
	out, err := runTool(t, "areas", "--json")
	require.NoError(t, err)
	m := decodeJSON(t, out)
	require.NotEmpty(t, m["version"])
	require.Len(t, m["practice_areas"], 4)

	out, err = runTool(t, "areas")
	require.NoError(t, err)
	require.Contains(t, out, "personal-injury")
	require.Contains(t, out, "mansion_tax_tiers")
}

func TestAreasFromCatalogueFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.yaml")
	require.NoError(t, os.WriteFile(path, yamlsource.Embedded(), 0o600))

	out, err := runTool(t, "areas", "--json", "--catalogue", path)
	require.NoError(t, err)
	require.Len(t, decodeJSON(t, out)["practice_areas"], 4)

	_, err = runTool(t, "areas", "--catalogue", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTasksCommand(t *testing.T) {
	out, err := runTool(t, "tasks", "--area", "criminal-defense")
	require.NoError(t, err)
	require.Contains(t, out, "cd-arraignment")
	require.Contains(t, out, "cd-yo-eligibility")

	_, err = runTool(t, "tasks", "--area", "maritime")
	require.True(t, ruleerr.IsNotFound(err), "err=%v", err)

	_, err = runTool(t, "tasks")
	require.Error(t, err)
}

func TestDeadlineCommand(t *testing.T) {
	t.Run("explicit offset", func(t *testing.T) {
		out, err := runTool(t, "deadline", "--trigger", "2024-03-15", "--offset", "30", "--json")
		require.NoError(t, err)
		m := decodeJSON(t, out)
		require.Equal(t, "2024-04-14", m["due"])
		require.EqualValues(t, 25, m["days_remaining"])
		require.Equal(t, "upcoming", m["status"])
	})

	t.Run("offset from task", func(t *testing.T) {
		out, err := runTool(t, "deadline", "--area", "personal-injury", "--task", "pi-notice-of-claim",
			"--trigger", "2024-01-01", "--as-of", "2024-03-20", "--json")
		require.NoError(t, err)
		m := decodeJSON(t, out)
		require.EqualValues(t, 90, m["offset_days"])
		require.Equal(t, "2024-03-31", m["due"])
		require.EqualValues(t, 11, m["days_remaining"])
		require.Equal(t, "pi-notice-of-claim", m["task"])
	})

	t.Run("passed", func(t *testing.T) {
		out, err := runTool(t, "deadline", "--trigger", "2023-01-01", "--offset", "30")
		require.NoError(t, err)
		require.Contains(t, out, "2023-01-31")
		require.Contains(t, out, "passed")
	})

	t.Run("offset or task required", func(t *testing.T) {
		_, err := runTool(t, "deadline", "--trigger", "2024-03-15")
		require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)
	})

	t.Run("offset and task conflict", func(t *testing.T) {
		_, err := runTool(t, "deadline", "--trigger", "2024-03-15", "--offset", "5",
			"--area", "personal-injury", "--task", "pi-notice-of-claim")
		require.Error(t, err)
	})

	t.Run("bad trigger", func(t *testing.T) {
		_, err := runTool(t, "deadline", "--trigger", "03/15/2024", "--offset", "5")
		require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := runTool(t, "deadline", "--trigger", "2024-03-15", "--offset", "-1")
		require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)
	})
}

func TestBracketCommand(t *testing.T) {
	out, err := runTool(t, "bracket", "--area", "real-estate", "--table", "mansion_tax_tiers", "--amount", "2500000", "--json")
	require.NoError(t, err)
	m := decodeJSON(t, out)
	require.Equal(t, "0.0125", m["rate"])
	require.Equal(t, "31250", m["computed"])

	out, err = runTool(t, "bracket", "--area", "real-estate", "--table", "mansion_tax_tiers", "--amount", "2500000")
	require.NoError(t, err)
	require.Contains(t, out, "31250.00")

	_, err = runTool(t, "bracket", "--area", "real-estate", "--table", "mansion_tax_tiers", "--amount", "-1")
	require.ErrorIs(t, err, ruleerr.ErrOutOfRange)

	_, err = runTool(t, "bracket", "--area", "real-estate", "--table", "mansion_tax_tiers", "--amount", "lots")
	require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)

	_, err = runTool(t, "bracket", "--area", "real-estate", "--table", "nope", "--amount", "1")
	require.True(t, ruleerr.IsNotFound(err), "err=%v", err)
}

func TestLintCommand(t *testing.T) {
	out, err := runTool(t, "lint", "--json")
	require.NoError(t, err)
	require.Contains(t, decodeJSON(t, out), "findings")

	policy := `package catalogue.lint

findings contains f if {
	some area in input.areas
	f := {
		"rule": "frozen",
		"severity": "error",
		"area": area.id,
		"subject": area.id,
		"message": "catalogue is frozen",
	}
}
`
	path := filepath.Join(t.TempDir(), "frozen.rego")
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o600))

	out, err = runTool(t, "lint", "--policy", path)
	require.Error(t, err)
	require.Contains(t, out, "catalogue is frozen")
	require.Contains(t, out, "family-law")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ACTOR_TOKEN_SECRET", "cli-secret")

	out, err := runTool(t, "token", "--user", "u-7", "--team", "team-1", "--role", "attorney", "--json")
	require.NoError(t, err)
	m := decodeJSON(t, out)
	require.Equal(t, "2024-03-20T01:00:00Z", m["expires_at"])

	claims := &server.ActorClaims{}
	_, err = jwt.ParseWithClaims(m["token"].(string), claims, func(*jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return testNow }))
	require.NoError(t, err)
	require.Equal(t, "u-7", claims.Subject)
	require.Equal(t, "team-1", claims.TeamID)
	require.Equal(t, "attorney", claims.Role)

	_, err = runTool(t, "token", "--user", "u-7", "--team", "team-1", "--role", "judge")
	require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)

	t.Setenv("ACTOR_TOKEN_SECRET", "")
	_, err = runTool(t, "token", "--user", "u-7", "--team", "team-1")
	require.True(t, ruleerr.IsInvalidInput(err), "err=%v", err)
}
