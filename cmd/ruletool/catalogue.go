package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	catalogueservices "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/services"
)

func newAreasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "areas",
		Short: "List practice areas with their task counts and tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := opts.loadCatalogue()
			if err != nil {
				return err
			}
			areas := cat.ListPracticeAreas()
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"version":        cat.Version(),
					"practice_areas": areas,
				})
			}
			rows := [][]string{{"ID", "NAME", "TASKS", "TABLES"}}
			for _, a := range areas {
				rows = append(rows, []string{string(a.ID), a.Name, strconv.Itoa(a.TaskCount), strings.Join(a.Tables, ",")})
			}
			return writeTable(cmd.OutOrStdout(), rows)
		},
	}
}

func newTasksCmd(opts *rootOptions) *cobra.Command {
	var area string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of one practice area in catalogue order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := opts.loadCatalogue()
			if err != nil {
				return err
			}
			tasks, err := cat.ListTasks(area)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"practice_area": area,
					"tasks":         tasks,
				})
			}
			rows := [][]string{{"ID", "NAME", "STATUTE", "DEADLINE"}}
			for _, t := range tasks {
				dl := "-"
				if t.Deadline != nil {
					dl = t.Deadline.Text
					if t.Deadline.Computable() {
						dl = fmt.Sprintf("%s (+%dd from %s)", dl, *t.Deadline.OffsetDays, t.Deadline.TriggerField)
					}
				}
				rows = append(rows, []string{t.ID, t.Name, t.Statute, dl})
			}
			return writeTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "Practice area id (e.g. personal-injury).")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

func newLintCmd(opts *rootOptions) *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the catalogue against the authoring policy.",
		Long:  `Evaluates the Rego authoring policy over the catalogue. Exits non-zero when any finding has error severity.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cat, err := opts.loadCatalogue()
			if err != nil {
				return err
			}

			var linter *catalogueservices.Linter
			if policyPath == "" {
				linter, err = catalogueservices.NewLinter(ctx)
			} else {
				policy, readErr := os.ReadFile(policyPath)
				if readErr != nil {
					return fmt.Errorf("could not read policy '%s': %w", policyPath, readErr)
				}
				linter, err = catalogueservices.NewLinterWithPolicy(ctx, string(policy))
			}
			if err != nil {
				return err
			}

			findings, err := linter.Lint(ctx, cat.Areas())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{"findings": findings}); err != nil {
					return err
				}
			} else if len(findings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no findings")
			} else {
				rows := [][]string{{"SEVERITY", "RULE", "AREA", "SUBJECT", "MESSAGE"}}
				for _, f := range findings {
					rows = append(rows, []string{f.Severity, f.Rule, f.Area, f.Subject, f.Message})
				}
				if err := writeTable(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
			}

			if catalogueservices.HasErrors(findings) {
				return fmt.Errorf("lint: catalogue has error findings")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "Path to a Rego policy replacing the built-in authoring rules.")
	return cmd
}
