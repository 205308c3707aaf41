package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/server"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/infrastructure/persistence"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the task instance schema.",
		Long:  `Applies or reports the embedded goose migrations. The DSN defaults to DATABASE_URL or the DB_* environment variables.`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres connection string.")

	resolve := func() string {
		if dsn != "" {
			return dsn
		}
		return server.DatabaseDSN()
	}
	report := func(cmd *cobra.Command, results []persistence.MigrationResult) error {
		if opts.jsonOut {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"migrations": results})
		}
		rows := [][]string{{"VERSION", "SOURCE", "APPLIED"}}
		for _, r := range results {
			rows = append(rows, []string{strconv.FormatInt(r.Version, 10), r.Source, strconv.FormatBool(r.Applied)})
		}
		return writeTable(cmd.OutOrStdout(), rows)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				results, err := persistence.MigrateUp(cmd.Context(), resolve())
				if err != nil {
					return err
				}
				return report(cmd, results)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show every migration and whether it is applied.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				results, err := persistence.MigrationStatus(cmd.Context(), resolve())
				if err != nil {
					return err
				}
				return report(cmd, results)
			},
		},
	)
	return cmd
}
