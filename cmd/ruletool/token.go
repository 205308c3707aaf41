package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/server"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		actor types.Actor
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an actor bearer token for the task instance API.",
		Long:  `Signs an HS256 actor token with ACTOR_TOKEN_SECRET, the same secret the server verifies against.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("ACTOR_TOKEN_SECRET")
			if secret == "" {
				return fmt.Errorf("%w: ACTOR_TOKEN_SECRET is not set", ruleerr.ErrInvalidInput)
			}
			if !authz.KnownRole(actor.Role) {
				return fmt.Errorf("%w: unknown role %q", ruleerr.ErrInvalidInput, actor.Role)
			}
			if ttl <= 0 {
				return fmt.Errorf("%w: --ttl must be positive", ruleerr.ErrInvalidInput)
			}
			tok, err := server.IssueActorToken([]byte(secret), actor, ttl, opts.now())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      tok,
					"expires_at": opts.now().Add(ttl).Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor.UserID, "user", "", "User id (token subject).")
	cmd.Flags().StringVar(&actor.TeamID, "team", "", "Team id the actor works in.")
	cmd.Flags().StringVar(&actor.Role, "role", authz.RoleParalegal, "Role: admin, attorney, paralegal or assistant.")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime.")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}
